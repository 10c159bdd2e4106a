package local

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"
	"time"

	"github.com/creativeprojects/feedme/lib"
	bolt "go.etcd.io/bbolt"
)

// msgProps is saved next to each message body
type msgProps struct {
	Flags []string
	Date  time.Time
	Size  uint32
}

func SerializeInt(value int) ([]byte, error) {
	buffer := &bytes.Buffer{}
	err := gob.NewEncoder(buffer).Encode(value)
	return buffer.Bytes(), err
}

func DeserializeInt(input []byte) (int, error) {
	output := 0
	err := gob.NewDecoder(bytes.NewReader(input)).Decode(&output)
	return output, err
}

// putObject saves a gob encoded value under key
func putObject[T any](bucket *bolt.Bucket, key []byte, value *T) error {
	buffer := &bytes.Buffer{}
	if err := gob.NewEncoder(buffer).Encode(value); err != nil {
		return fmt.Errorf("cannot encode %q: %w", string(key), err)
	}
	return bucket.Put(key, buffer.Bytes())
}

func getObject[T any](bucket *bolt.Bucket, key []byte) (*T, error) {
	data := bucket.Get(key)
	if data == nil {
		return nil, fmt.Errorf("%w: %q", lib.ErrInfoNotFound, string(key))
	}
	output := new(T)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(output); err != nil {
		return nil, fmt.Errorf("cannot decode %q: %w", string(key), err)
	}
	return output, nil
}

// SerializeUID pads the UID so the keys are sorted in numerical order
func SerializeUID(prefix string, uid uint64) []byte {
	return []byte(prefix + fmt.Sprintf("%010d", uid))
}

func DeserializeUID(prefix string, key []byte) uint64 {
	uid, _ := strconv.ParseUint(string(bytes.TrimPrefix(key, []byte(prefix))), 10, 32)
	return uid
}
