package mdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/emersion/go-maildir"
)

const (
	Delimiter = "."
	Inbox     = "INBOX"

	// marks a Maildir++ sub-folder
	folderMarker = "maildirfolder"
	statusFile   = "feedme-status.json"
)

// Maildir stores the mailboxes in the Maildir++ layout: INBOX is the root directory
// and every other mailbox is a sub-directory named after it with a leading dot (".News.Tech").
type Maildir struct {
	root      string
	log       lib.Logger
	selected  string
	connected bool
}

func New(root string) (*Maildir, error) {
	return NewWithLogger(root, nil)
}

func NewWithLogger(root string, logger lib.Logger) (*Maildir, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.New("maildir is not supported on Windows")
	}
	if root == "" {
		return nil, errors.New("maildir root directory is missing")
	}
	return &Maildir{
		root: root,
		log:  lib.OrNoLog(logger),
	}, nil
}

func (m *Maildir) DebugLogger(logger lib.Logger) {
	m.log = lib.OrNoLog(logger)
}

// Login creates the root directory if needed
func (m *Maildir) Login(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.MkdirAll(m.root, 0700)
	if err != nil {
		return err
	}
	m.connected = true
	return nil
}

func (m *Maildir) Logout() error {
	m.connected = false
	m.selected = ""
	return nil
}

func (m *Maildir) Root() string {
	return m.root
}

func (m *Maildir) Delimiter() string {
	return Delimiter
}

func (m *Maildir) name(info mailbox.Info) (string, error) {
	name := lib.VerifyDelimiter(info.Name, info.Delimiter, Delimiter)
	if name == "" || strings.ContainsRune(name, filepath.Separator) || strings.HasPrefix(name, Delimiter) {
		return "", fmt.Errorf("invalid maildir folder name %q", name)
	}
	if strings.EqualFold(name, Inbox) {
		return Inbox, nil
	}
	return name, nil
}

// dir returns the directory of the mailbox
func (m *Maildir) dir(name string) maildir.Dir {
	if name == Inbox {
		return maildir.Dir(m.root)
	}
	return maildir.Dir(filepath.Join(m.root, Delimiter+name))
}

func (m *Maildir) MailboxExists(info mailbox.Info) (bool, error) {
	if !m.connected {
		return false, lib.ErrNotConnected
	}
	name, err := m.name(info)
	if err != nil {
		return false, err
	}
	return m.mailboxExists(name), nil
}

// CreateMailbox doesn't return an error if the mailbox already exists
func (m *Maildir) CreateMailbox(info mailbox.Info) error {
	if !m.connected {
		return lib.ErrNotConnected
	}
	name, err := m.name(info)
	if err != nil {
		return err
	}
	if m.mailboxExists(name) {
		return nil
	}
	dir := m.dir(name)
	m.log.Printf("creating maildir folder %q in %q", name, dir)
	err = dir.Init()
	if err != nil {
		return err
	}
	if name != Inbox {
		err = os.WriteFile(filepath.Join(string(dir), folderMarker), nil, 0600)
		if err != nil {
			return err
		}
	}
	return m.saveUidValidity(name, lib.NewUID())
}

func (m *Maildir) ListMailbox() ([]mailbox.Info, error) {
	if !m.connected {
		return nil, lib.ErrNotConnected
	}
	list := make([]mailbox.Info, 0)
	if m.mailboxExists(Inbox) {
		list = append(list, mailbox.Info{Delimiter: Delimiter, Name: Inbox})
	}
	files, err := os.ReadDir(m.root)
	if err != nil {
		return nil, err
	}
	folders := make([]string, 0, len(files))
	for _, file := range files {
		if !file.IsDir() || !strings.HasPrefix(file.Name(), Delimiter) {
			continue
		}
		folders = append(folders, strings.TrimPrefix(file.Name(), Delimiter))
	}
	sort.Strings(folders)
	for _, name := range folders {
		list = append(list, mailbox.Info{Delimiter: Delimiter, Name: name})
	}
	return list, nil
}

// SelectMailbox counts the messages from the directory content
func (m *Maildir) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	if !m.connected {
		return nil, lib.ErrNotConnected
	}
	name, err := m.name(info)
	if err != nil {
		return nil, err
	}
	if !m.mailboxExists(name) {
		return nil, lib.ErrMailboxNotFound
	}
	msgs, err := m.dir(name).Messages()
	if err != nil {
		return nil, err
	}
	status := &mailbox.Status{
		Name:     name,
		Messages: uint32(len(msgs)),
	}
	for _, msg := range msgs {
		if !hasFlag(msg.Flags(), maildir.FlagSeen) {
			status.Unseen++
		}
	}
	status.UidValidity, err = m.loadUidValidity(name)
	if err != nil {
		return nil, err
	}
	m.selected = name
	return status, nil
}

// SearchHeader reads the header of every message of the selected mailbox
func (m *Maildir) SearchHeader(key, value string) ([]mailbox.MessageID, error) {
	if m.selected == "" {
		return nil, lib.ErrNotSelected
	}
	msgs, err := m.dir(m.selected).Messages()
	if err != nil {
		return nil, err
	}
	found := make([]mailbox.MessageID, 0, 1)
	for _, msg := range msgs {
		match, err := matchHeader(msg, key, value)
		if err != nil {
			m.log.Printf("message %q: %s", msg.Key(), err)
			continue
		}
		if match {
			found = append(found, mailbox.Key(msg.Key()))
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i] < found[j]
	})
	return found, nil
}

func matchHeader(msg *maildir.Message, key, value string) (bool, error) {
	file, err := msg.Open()
	if err != nil {
		return false, err
	}
	defer file.Close()
	return mailbox.HasHeaderValue(file, key, value)
}

// PutMessage writes the message with the flags in its file name and the item date as modification time
func (m *Maildir) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	if !m.connected {
		return mailbox.EmptyMessageID, lib.ErrNotConnected
	}
	name, err := m.name(info)
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	if !m.mailboxExists(name) {
		return mailbox.EmptyMessageID, lib.ErrMailboxNotFound
	}
	msg, copied, err := writeMessage(m.dir(name), toFlags(props.Flags), body)
	if err != nil {
		return mailbox.EmptyMessageID, err
	}
	if props.Size > 0 && copied != int64(props.Size) {
		_ = os.Remove(msg.Filename())
		return mailbox.EmptyMessageID, fmt.Errorf("message body size advertised as %d bytes but read %d bytes from buffer", props.Size, copied)
	}
	if !props.InternalDate.IsZero() {
		_ = os.Chtimes(msg.Filename(), time.Now(), props.InternalDate)
	}
	m.log.Printf("message saved: folder=%q key=%q size=%d flags=%v", name, msg.Key(), copied, props.Flags)
	return mailbox.Key(msg.Key()), nil
}

func writeMessage(dir maildir.Dir, flags []maildir.Flag, body io.Reader) (*maildir.Message, int64, error) {
	msg, writer, err := dir.Create(flags)
	if err != nil {
		return nil, 0, err
	}
	copied, err := io.Copy(writer, body)
	if err != nil {
		writer.Close()
		return nil, copied, err
	}
	return msg, copied, writer.Close()
}

func (m *Maildir) UnselectMailbox() error {
	m.selected = ""
	return nil
}

func (m *Maildir) mailboxExists(name string) bool {
	stat, err := os.Stat(filepath.Join(string(m.dir(name)), "cur"))
	if err != nil {
		return false
	}
	return stat.IsDir()
}

type folderStatus struct {
	UidValidity uint32 `json:"uidValidity"`
}

func (m *Maildir) statusFile(name string) string {
	return filepath.Join(string(m.dir(name)), statusFile)
}

func (m *Maildir) saveUidValidity(name string, uidValidity uint32) error {
	data, err := json.Marshal(folderStatus{UidValidity: uidValidity})
	if err != nil {
		return err
	}
	return os.WriteFile(m.statusFile(name), data, 0600)
}

// loadUidValidity creates a new value when the folder was not created by this program
func (m *Maildir) loadUidValidity(name string) (uint32, error) {
	data, err := os.ReadFile(m.statusFile(name))
	if errors.Is(err, os.ErrNotExist) {
		uidValidity := lib.NewUID()
		return uidValidity, m.saveUidValidity(name, uidValidity)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStatusNotFound, err)
	}
	status := folderStatus{}
	err = json.Unmarshal(data, &status)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", lib.ErrStatusNotFound, err)
	}
	return status.UidValidity, nil
}

func hasFlag(flags []maildir.Flag, flag maildir.Flag) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
