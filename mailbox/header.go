package mailbox

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/textproto"
)

// HeaderFeedID carries the canonical ID of the feed item a message was made from
const HeaderFeedID = "X-Feed-Me-ID"

// HeaderValues reads the header section of a message and returns the values of key
func HeaderValues(message io.Reader, key string) ([]string, error) {
	header, err := textproto.ReadHeader(bufio.NewReader(message))
	if err != nil {
		return nil, fmt.Errorf("cannot read message header: %w", err)
	}
	values := make([]string, 0, 1)
	fields := header.FieldsByKey(key)
	for fields.Next() {
		values = append(values, strings.TrimSpace(fields.Value()))
	}
	return values, nil
}

// HasHeaderValue returns true when the message header contains key with this exact value
func HasHeaderValue(message io.Reader, key, value string) (bool, error) {
	values, err := HeaderValues(message, key)
	if err != nil {
		return false, err
	}
	for _, found := range values {
		if found == value {
			return true, nil
		}
	}
	return false, nil
}
