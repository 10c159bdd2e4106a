package mem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
)

const Delimiter = "."

// Backend keeps mailboxes in memory. It is used as a dry-run store and in tests.
type Backend struct {
	data      map[string]*memMailbox
	log       lib.Logger
	delimiter string
	selected  string
	connected bool
}

func New() *Backend {
	return NewWithLogger(nil)
}

func NewWithLogger(logger lib.Logger) *Backend {
	return NewWithDelimiter(Delimiter, logger)
}

// NewWithDelimiter creates a memory backend using a specific hierarchy delimiter.
// An empty delimiter makes a flat namespace.
func NewWithDelimiter(delimiter string, logger lib.Logger) *Backend {
	return &Backend{
		data:      make(map[string]*memMailbox),
		log:       lib.OrNoLog(logger),
		delimiter: delimiter,
	}
}

func (m *Backend) DebugLogger(logger lib.Logger) {
	m.log = lib.OrNoLog(logger)
}

func (m *Backend) Login(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.connected = true
	return nil
}

// Logout keeps the data so the same backend can be used again with a new session
func (m *Backend) Logout() error {
	m.connected = false
	m.selected = ""
	return nil
}

func (m *Backend) Delimiter() string {
	return m.delimiter
}

func (m *Backend) name(info mailbox.Info) string {
	return lib.VerifyDelimiter(info.Name, info.Delimiter, m.delimiter)
}

func (m *Backend) MailboxExists(info mailbox.Info) (bool, error) {
	if !m.connected {
		return false, lib.ErrNotConnected
	}
	_, ok := m.data[m.name(info)]
	return ok, nil
}

func (m *Backend) CreateMailbox(info mailbox.Info) error {
	if !m.connected {
		return lib.ErrNotConnected
	}
	name := m.name(info)
	if _, ok := m.data[name]; ok {
		// already exists
		return nil
	}
	m.log.Printf("creating mailbox %q", name)
	m.data[name] = &memMailbox{
		uidValidity: lib.NewUID(),
		messages:    make(map[uint32]*memMessage),
	}
	return nil
}

func (m *Backend) ListMailbox() ([]mailbox.Info, error) {
	if !m.connected {
		return nil, lib.ErrNotConnected
	}
	list := make([]mailbox.Info, 0, len(m.data))
	for name := range m.data {
		list = append(list, mailbox.Info{
			Delimiter: m.delimiter,
			Name:      name,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (m *Backend) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	if !m.connected {
		return nil, lib.ErrNotConnected
	}
	name := m.name(info)
	mbox, ok := m.data[name]
	if !ok {
		return nil, lib.ErrMailboxNotFound
	}
	m.selected = name
	return &mailbox.Status{
		Name:        name,
		Messages:    uint32(len(mbox.messages)),
		Unseen:      mbox.unseen(),
		UidValidity: mbox.uidValidity,
	}, nil
}

// SearchHeader returns a nil slice when nothing matches
func (m *Backend) SearchHeader(key, value string) ([]mailbox.MessageID, error) {
	if m.selected == "" {
		return nil, lib.ErrNotSelected
	}
	var found []mailbox.MessageID
	for _, uid := range m.data[m.selected].search(key, value) {
		found = append(found, mailbox.UID(uid))
	}
	return found, nil
}

func (m *Backend) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	if !m.connected {
		return mailbox.EmptyMessageID, lib.ErrNotConnected
	}
	name := m.name(info)
	mbox, ok := m.data[name]
	if !ok {
		return mailbox.EmptyMessageID, lib.ErrMailboxNotFound
	}
	buffer := &bytes.Buffer{}
	read, err := buffer.ReadFrom(body)
	if err != nil {
		return mailbox.EmptyMessageID, fmt.Errorf("cannot read message source: %w", err)
	}
	if props.Size > 0 && read != int64(props.Size) {
		return mailbox.EmptyMessageID, fmt.Errorf("message body size advertised as %d bytes but read %d bytes from buffer", props.Size, read)
	}
	uid, err := mbox.add(buffer.Bytes(), props)
	if err != nil {
		return mailbox.EmptyMessageID, fmt.Errorf("invalid message header: %w", err)
	}
	m.log.Printf("message saved: mailbox=%q uid=%d size=%d flags=%v", name, uid, read, props.Flags)
	return mailbox.UID(uid), nil
}

func (m *Backend) UnselectMailbox() error {
	m.selected = ""
	return nil
}

// Messages returns the raw content of all the messages of a mailbox, in delivery order
func (m *Backend) Messages(info mailbox.Info) [][]byte {
	mbox, ok := m.data[m.name(info)]
	if !ok {
		return nil
	}
	uids := mbox.uids()
	messages := make([][]byte, len(uids))
	for i, uid := range uids {
		messages[i] = mbox.messages[uid].content
	}
	return messages
}
