package syncer

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/creativeprojects/feedme/feed"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/emersion/go-message/mail"
)

const (
	DefaultFrom = "sender@localhost"
	DefaultTo   = "recipient@localhost"
)

var lineBreaks = strings.NewReplacer("\r\n", "\r\n", "\r", "\r\n", "\n", "\r\n")

// Composer turns an item into a plain text message
type Composer struct {
	from     []*mail.Address
	to       []*mail.Address
	assigner *feed.Assigner
}

func NewComposer(from, to string, assigner *feed.Assigner) (*Composer, error) {
	if from == "" {
		from = DefaultFrom
	}
	if to == "" {
		to = DefaultTo
	}
	fromAddress, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	toAddresses, err := mail.ParseAddressList(to)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	if assigner == nil {
		assigner = feed.NewAssigner("", "", nil)
	}
	return &Composer{
		from:     []*mail.Address{fromAddress},
		to:       toAddresses,
		assigner: assigner,
	}, nil
}

func (c *Composer) Compose(item feed.Item) ([]byte, error) {
	var header mail.Header
	header.SetDate(item.Timestamp)
	header.SetSubject(strings.Join(strings.Fields(item.Title), " "))
	header.SetAddressList("From", c.from)
	header.SetAddressList("To", c.to)
	header.SetMessageID(c.assigner.MessageID(item.CanonicalID))
	header.Set(mailbox.HeaderFeedID, item.CanonicalID)
	header.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	header.Set("Content-Transfer-Encoding", "8bit")

	buffer := &bytes.Buffer{}
	writer, err := mail.CreateSingleInlineWriter(buffer, header)
	if err != nil {
		return nil, fmt.Errorf("cannot create message: %w", err)
	}
	_, err = io.WriteString(writer, lineBreaks.Replace(body(item)))
	if err != nil {
		return nil, fmt.Errorf("cannot write message body: %w", err)
	}
	err = writer.Close()
	if err != nil {
		return nil, fmt.Errorf("cannot write message body: %w", err)
	}
	return buffer.Bytes(), nil
}

func body(item feed.Item) string {
	return item.LinkString() + "\n\n" + item.Title + "\n\n" + item.Body + "\n"
}
