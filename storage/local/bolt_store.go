package local

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	bolt "go.etcd.io/bbolt"
)

const (
	Delimiter = "."

	metadataBucket  = "metadata"
	foldersBucket   = "folders"
	indexBucket     = "index"
	infoKey         = "info"
	statusKey       = "status"
	bodyPrefix      = "body-"
	propsPrefix     = "props-"
	versionKey      = "version"
	boltFileVersion = 2
)

// indexedHeaders are looked up in the index bucket of the folder instead of reading every message
var indexedHeaders = []string{mailbox.HeaderFeedID}

// BoltStore keeps the folders in a single bbolt file. Each folder bucket holds the compressed
// messages, their properties, and an index of the feed item IDs they carry.
type BoltStore struct {
	dbFile   string
	db       *bolt.DB
	log      lib.Logger
	selected string
}

func NewBoltStore(filename string) *BoltStore {
	return NewBoltStoreWithLogger(filename, nil)
}

func NewBoltStoreWithLogger(filename string, logger lib.Logger) *BoltStore {
	return &BoltStore{
		dbFile: filename,
		log:    lib.OrNoLog(logger),
	}
}

func (s *BoltStore) DebugLogger(logger lib.Logger) {
	s.log = lib.OrNoLog(logger)
}

// Login opens the database file, creating it if needed
func (s *BoltStore) Login(ctx context.Context) error {
	if s.db != nil {
		return errors.New("already connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dbFile == "" {
		return errors.New("missing database filename")
	}
	err := os.MkdirAll(filepath.Dir(s.dbFile), 0700)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", s.dbFile, err)
	}
	options := *bolt.DefaultOptions
	options.Timeout = 10 * time.Second
	db, err := bolt.Open(s.dbFile, 0600, &options)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", s.dbFile, err)
	}
	s.db = db
	s.log.Printf("opened database %q", s.dbFile)

	err = s.checkVersion()
	if err != nil {
		_ = s.Logout()
		return err
	}
	return nil
}

// checkVersion refuses a file written with another layout
func (s *BoltStore) checkVersion() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if data := bucket.Get([]byte(versionKey)); data != nil {
			version, err := DeserializeInt(data)
			if err != nil {
				return fmt.Errorf("invalid database version: %w", err)
			}
			if version != boltFileVersion {
				return fmt.Errorf("unsupported database version %d (expected %d)", version, boltFileVersion)
			}
			return nil
		}
		version, err := SerializeInt(boltFileVersion)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(versionKey), version)
	})
}

func (s *BoltStore) Logout() error {
	if s.db == nil {
		return lib.ErrNotConnected
	}
	err := s.db.Close()
	s.db = nil
	s.selected = ""
	return err
}

func (s *BoltStore) Delimiter() string {
	return Delimiter
}

// Exists returns true when the database file has been created
func (s *BoltStore) Exists() bool {
	_, err := os.Stat(s.dbFile)
	return err == nil
}

func (s *BoltStore) name(info mailbox.Info) string {
	return lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
}

// folder returns the bucket of a folder, or nil
func folder(tx *bolt.Tx, name string) *bolt.Bucket {
	root := tx.Bucket([]byte(foldersBucket))
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(name))
}

func (s *BoltStore) MailboxExists(info mailbox.Info) (bool, error) {
	if s.db == nil {
		return false, lib.ErrNotConnected
	}
	found := false
	name := s.name(info)
	err := s.db.View(func(tx *bolt.Tx) error {
		found = folder(tx, name) != nil
		return nil
	})
	return found, err
}

// CreateMailbox doesn't return an error if the folder already exists
func (s *BoltStore) CreateMailbox(info mailbox.Info) error {
	if s.db == nil {
		return lib.ErrNotConnected
	}
	info = mailbox.ChangeDelimiter(info, Delimiter)
	created := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(foldersBucket))
		if err != nil {
			return err
		}
		bucket, err := root.CreateBucket([]byte(info.Name))
		if errors.Is(err, bolt.ErrBucketExists) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err = bucket.CreateBucket([]byte(indexBucket)); err != nil {
			return err
		}
		if err = putObject(bucket, []byte(infoKey), &info); err != nil {
			return err
		}
		created = true
		return putObject(bucket, []byte(statusKey), &mailbox.Status{
			Name:        info.Name,
			UidValidity: lib.NewUID(),
		})
	})
	if err != nil {
		return err
	}
	if created {
		s.log.Printf("created folder %q", info.Name)
	}
	return nil
}

func (s *BoltStore) ListMailbox() ([]mailbox.Info, error) {
	if s.db == nil {
		return nil, lib.ErrNotConnected
	}
	list := make([]mailbox.Info, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(foldersBucket))
		if root == nil {
			return nil
		}
		return root.ForEach(func(k, v []byte) error {
			// values are not folders
			if v != nil {
				return nil
			}
			info, err := getObject[mailbox.Info](root.Bucket(k), []byte(infoKey))
			if err != nil {
				return fmt.Errorf("folder %q: %w", string(k), err)
			}
			list = append(list, *info)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *BoltStore) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	if s.db == nil {
		return nil, lib.ErrNotConnected
	}
	var status *mailbox.Status
	name := s.name(info)
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := folder(tx, name)
		if bucket == nil {
			return lib.ErrMailboxNotFound
		}
		var err error
		status, err = getObject[mailbox.Status](bucket, []byte(statusKey))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.selected = name
	return status, nil
}

// SearchHeader uses the index for the feed item ID header, and reads every message for any other header
func (s *BoltStore) SearchHeader(key, value string) ([]mailbox.MessageID, error) {
	if s.db == nil {
		return nil, lib.ErrNotConnected
	}
	if s.selected == "" {
		return nil, lib.ErrNotSelected
	}
	var found []mailbox.MessageID
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := folder(tx, s.selected)
		if bucket == nil {
			return lib.ErrMailboxNotFound
		}
		var uids []uint64
		if isIndexed(key) {
			uids = lookupIndex(bucket, key, value)
		} else {
			uids = s.scanHeaders(bucket, key, value)
		}
		for _, uid := range uids {
			found = append(found, mailbox.UID(uint32(uid)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (s *BoltStore) scanHeaders(bucket *bolt.Bucket, key, value string) []uint64 {
	var uids []uint64
	cursor := bucket.Cursor()
	prefix := []byte(bodyPrefix)
	for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
		reader, err := zlib.NewReader(bytes.NewReader(v))
		if err != nil {
			s.log.Printf("message %q: %s", string(k), err)
			continue
		}
		match, err := mailbox.HasHeaderValue(reader, key, value)
		reader.Close()
		if err != nil {
			s.log.Printf("message %q: %s", string(k), err)
			continue
		}
		if match {
			uids = append(uids, DeserializeUID(bodyPrefix, k))
		}
	}
	return uids
}

// PutMessage saves the compressed message, its properties and the index entries in one transaction
func (s *BoltStore) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	if s.db == nil {
		return mailbox.EmptyMessageID, lib.ErrNotConnected
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return mailbox.EmptyMessageID, fmt.Errorf("cannot read message body: %w", err)
	}
	if props.Size > 0 && len(content) != int(props.Size) {
		return mailbox.EmptyMessageID, fmt.Errorf("message body size advertised as %d bytes but read %d bytes from buffer", props.Size, len(content))
	}
	compressed, err := compress(content)
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	name := s.name(info)
	var messageID mailbox.MessageID
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket := folder(tx, name)
		if bucket == nil {
			return lib.ErrMailboxNotFound
		}
		status, err := getObject[mailbox.Status](bucket, []byte(statusKey))
		if err != nil {
			return err
		}
		uid, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("cannot get next message ID: %w", err)
		}
		if err = bucket.Put(SerializeUID(bodyPrefix, uid), compressed); err != nil {
			return fmt.Errorf("cannot save message body: %w", err)
		}
		err = putObject(bucket, SerializeUID(propsPrefix, uid), &msgProps{
			Flags: props.Flags,
			Date:  props.InternalDate,
			Size:  uint32(len(content)),
		})
		if err != nil {
			return err
		}
		if err = addToIndex(bucket, content, uid); err != nil {
			return err
		}
		status.Messages++
		if !isSeen(props.Flags) {
			status.Unseen++
		}
		messageID = mailbox.UID(uint32(uid))
		return putObject(bucket, []byte(statusKey), status)
	})
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	s.log.Printf("message saved: folder=%q uid=%s size=%d flags=%v", name, messageID, len(content), props.Flags)
	return messageID, nil
}

func (s *BoltStore) UnselectMailbox() error {
	s.selected = ""
	return nil
}

func compress(content []byte) ([]byte, error) {
	buffer := &bytes.Buffer{}
	writer := zlib.NewWriter(buffer)
	if _, err := writer.Write(content); err != nil {
		return nil, fmt.Errorf("cannot compress message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("cannot compress message: %w", err)
	}
	return buffer.Bytes(), nil
}

func isIndexed(key string) bool {
	for _, header := range indexedHeaders {
		if strings.EqualFold(header, key) {
			return true
		}
	}
	return false
}

// indexKey is the lowercase header name and the value separated by a NUL byte
func indexKey(key, value string) []byte {
	return []byte(strings.ToLower(key) + "\x00" + value)
}

func addToIndex(bucket *bolt.Bucket, content []byte, uid uint64) error {
	index := bucket.Bucket([]byte(indexBucket))
	if index == nil {
		return lib.ErrInfoNotFound
	}
	for _, key := range indexedHeaders {
		values, err := mailbox.HeaderValues(bytes.NewReader(content), key)
		if err != nil {
			return err
		}
		for _, value := range values {
			entry, err := index.CreateBucketIfNotExists(indexKey(key, value))
			if err != nil {
				return err
			}
			if err = entry.Put(SerializeUID("", uid), []byte{}); err != nil {
				return err
			}
		}
	}
	return nil
}

func lookupIndex(bucket *bolt.Bucket, key, value string) []uint64 {
	index := bucket.Bucket([]byte(indexBucket))
	if index == nil {
		return nil
	}
	entry := index.Bucket(indexKey(key, value))
	if entry == nil {
		return nil
	}
	var uids []uint64
	_ = entry.ForEach(func(k, _ []byte) error {
		uids = append(uids, DeserializeUID("", k))
		return nil
	})
	return uids
}

func isSeen(flags []string) bool {
	for _, flag := range flags {
		if flag == mailbox.FlagSeen {
			return true
		}
	}
	return false
}
