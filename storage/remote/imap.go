package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/emersion/go-imap"
	compress "github.com/emersion/go-imap-compress"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
)

const (
	AuthLogin = "login"
	AuthPlain = "plain"
)

type Config struct {
	ServerURL           string
	Username            string
	Password            string
	DebugLogger         lib.Logger
	NoTLS               bool
	SkipTLSVerification bool
	// Auth is either AuthLogin (default) or AuthPlain
	Auth string
	// Compress enables COMPRESS=DEFLATE when the server supports it
	Compress bool
	// DialTimeout bounds the connection and the server greeting
	DialTimeout time.Duration
	// Timeout bounds every IMAP command. Zero means no timeout.
	Timeout time.Duration
}

type Imap struct {
	cfg           Config
	client        *client.Client
	uidplusClient *uidplus.Client
	log           lib.Logger
	delimiter     string
	selected      *mailbox.Status
	// ctx of the session: a command running when it's cancelled is cut short
	ctx        context.Context
	terminated atomic.Bool
}

func NewImap(cfg Config) (*Imap, error) {
	if cfg.ServerURL == "" || cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("missing information from Config object")
	}
	if cfg.Auth != "" && cfg.Auth != AuthLogin && cfg.Auth != AuthPlain {
		return nil, fmt.Errorf("unsupported authentication method %q", cfg.Auth)
	}
	return &Imap{
		cfg: cfg,
		log: lib.OrNoLog(cfg.DebugLogger),
	}, nil
}

func (i *Imap) DebugLogger(logger lib.Logger) {
	i.log = lib.OrNoLog(logger)
}

// Login connects to the server, authenticates and discovers the hierarchy delimiter.
// The context stays attached to the session until Logout.
func (i *Imap) Login(ctx context.Context) error {
	if i.client != nil {
		return errors.New("already connected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	i.log.Printf("Connecting to server %s...", i.cfg.ServerURL)
	conn, err := i.dial(ctx)
	if err != nil {
		return fmt.Errorf("cannot connect to server %s: %w", i.cfg.ServerURL, contextError(ctx, err))
	}
	// until the session is ready, cancelling closes the connection
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	imapClient, err := client.New(conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("cannot connect to server %s: %w", i.cfg.ServerURL, contextError(ctx, err))
	}
	_ = conn.SetDeadline(time.Time{})
	i.log.Print("Connected")
	imapClient.Timeout = i.cfg.Timeout

	if err := i.authenticate(imapClient); err != nil {
		_ = imapClient.Terminate()
		return fmt.Errorf("authentication failure: %w", contextError(ctx, err))
	}
	i.log.Printf("Logged in as %s", i.cfg.Username)

	if caps, err := imapClient.Capability(); err == nil {
		i.log.Printf("capabilities: %+v", caps)
	}

	if i.cfg.Compress {
		i.enableCompression(imapClient)
	}

	// try to enable UIDPLUS extension
	uidExt := uidplus.NewClient(imapClient)
	supported, err := uidExt.SupportUidPlus()
	if err != nil || !supported {
		i.log.Print("IMAP server does NOT support UIDPLUS extension")
		uidExt = nil
	}

	i.client = imapClient
	i.uidplusClient = uidExt
	i.ctx = ctx
	i.terminated.Store(false)

	if err := i.discoverDelimiter(); err != nil {
		_ = i.Logout()
		return fmt.Errorf("cannot discover hierarchy delimiter: %w", contextError(ctx, err))
	}
	return nil
}

// dial opens the connection with a deadline covering the TLS handshake and the server greeting
func (i *Imap) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: i.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", i.cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	if i.cfg.DialTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(i.cfg.DialTimeout))
	}
	if i.cfg.NoTLS {
		return conn, nil
	}
	tlsConfig := &tls.Config{}
	if host, _, err := net.SplitHostPort(i.cfg.ServerURL); err == nil {
		tlsConfig.ServerName = host
	}
	if i.cfg.SkipTLSVerification {
		tlsConfig.InsecureSkipVerify = true
	}
	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// watch terminates the connection if the session context is cancelled before the returned function is called
func (i *Imap) watch() (stop func() bool) {
	imapClient := i.client
	return context.AfterFunc(i.ctx, func() {
		i.terminated.Store(true)
		_ = imapClient.Terminate()
	})
}

// contextError returns the context error when the context was cancelled
func contextError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %s", ctx.Err(), err)
	}
	return err
}

func (i *Imap) authenticate(imapClient *client.Client) error {
	if i.cfg.Auth != AuthPlain {
		return imapClient.Login(i.cfg.Username, i.cfg.Password)
	}
	supported, err := imapClient.SupportAuth(sasl.Plain)
	if err != nil {
		return err
	}
	if !supported {
		return errors.New("server does not support AUTH=PLAIN")
	}
	return imapClient.Authenticate(sasl.NewPlainClient("", i.cfg.Username, i.cfg.Password))
}

func (i *Imap) enableCompression(imapClient *client.Client) {
	compressClient := compress.NewClient(imapClient)
	supported, err := compressClient.SupportCompress(compress.Deflate)
	if err != nil || !supported {
		i.log.Print("IMAP server does NOT support COMPRESS=DEFLATE extension")
		return
	}
	if err := compressClient.Compress(compress.Deflate); err != nil {
		i.log.Printf("cannot enable compression: %s", err)
		return
	}
	i.log.Print("Compression enabled")
}

// discoverDelimiter sends LIST "" "" which returns the hierarchy delimiter only.
// A NIL delimiter leaves the namespace flat.
func (i *Imap) discoverDelimiter() error {
	defer i.watch()()
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- i.client.List("", "", mailboxes)
	}()

	found := false
	for m := range mailboxes {
		if !found {
			i.delimiter = m.Delimiter
			found = true
		}
	}
	if err := <-done; err != nil {
		return err
	}
	if found {
		i.log.Printf("hierarchy delimiter is %q", i.delimiter)
		return nil
	}
	// some servers don't answer the special request: ListMailbox picks the delimiter from the first mailbox
	_, err := i.ListMailbox()
	return err
}

func (i *Imap) Logout() error {
	if i.client == nil {
		return lib.ErrNotConnected
	}
	var err error
	if i.terminated.Load() {
		i.log.Print("Connection was terminated on cancellation")
	} else {
		i.log.Print("Closing connection")
		err = i.client.Logout()
	}
	i.client = nil
	i.ctx = nil
	i.uidplusClient = nil
	i.selected = nil
	return err
}

func (i *Imap) Delimiter() string {
	return i.delimiter
}

func (i *Imap) name(info mailbox.Info) string {
	return lib.VerifyDelimiter(info.Name, info.Delimiter, i.delimiter)
}

func (i *Imap) ListMailbox() ([]mailbox.Info, error) {
	if i.client == nil {
		return nil, lib.ErrNotConnected
	}
	return i.list("*")
}

func (i *Imap) list(pattern string) ([]mailbox.Info, error) {
	defer i.watch()()
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- i.client.List("", pattern, mailboxes)
	}()

	i.log.Printf("Listing mailboxes %q:", pattern)
	info := make([]mailbox.Info, 0, 10)
	for m := range mailboxes {
		i.log.Printf("* %q: %+v (delimiter = %q)", m.Name, m.Attributes, m.Delimiter)
		info = append(info, mailbox.Info{
			Delimiter: m.Delimiter,
			Name:      m.Name,
		})
		// sets the delimiter (if not already set)
		if i.delimiter == "" {
			i.delimiter = m.Delimiter
		}
	}

	if err := <-done; err != nil {
		return nil, err
	}
	return info, nil
}

func (i *Imap) MailboxExists(info mailbox.Info) (bool, error) {
	if i.client == nil {
		return false, lib.ErrNotConnected
	}
	name := i.name(info)
	mailboxes, err := i.list(name)
	if err != nil {
		return false, err
	}
	for _, mbox := range mailboxes {
		// the name can contain wildcards: only an exact match counts
		if mbox.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (i *Imap) CreateMailbox(info mailbox.Info) error {
	exists, err := i.MailboxExists(info)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	name := i.name(info)
	i.log.Printf("Creating mailbox %q using delimiter %q", name, i.delimiter)
	stop := i.watch()
	err = i.client.Create(name)
	stop()
	if err != nil {
		// someone else could have created it in the meantime
		if exists, _ := i.MailboxExists(info); exists {
			return nil
		}
		return err
	}
	return nil
}

func (i *Imap) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	if i.client == nil {
		return nil, lib.ErrNotConnected
	}
	name := i.name(info)
	i.log.Printf("Selecting mailbox %q using delimiter %q", name, i.delimiter)
	defer i.watch()()
	status, err := i.client.Select(name, false)
	if err != nil {
		return nil, contextError(i.ctx, err)
	}
	i.selected = &mailbox.Status{
		Name:        status.Name,
		Messages:    status.Messages,
		Unseen:      status.Unseen,
		UidValidity: status.UidValidity,
	}
	return i.selected, nil
}

// SearchHeader asks the server for the messages having the header, then verifies each match:
// IMAP SEARCH HEADER is a case insensitive substring match.
func (i *Imap) SearchHeader(key, value string) ([]mailbox.MessageID, error) {
	if i.client == nil {
		return nil, lib.ErrNotConnected
	}
	if i.selected == nil {
		return nil, lib.ErrNotSelected
	}
	defer i.watch()()
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add(key, value)
	seqNums, err := i.client.Search(criteria)
	if err != nil {
		return nil, err
	}
	i.log.Printf("search %s=%q: %d candidate(s)", key, value, len(seqNums))
	if len(seqNums) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(seqNums...)
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	receiver := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- i.client.Fetch(seqset, items, receiver)
	}()

	found := make([]mailbox.MessageID, 0, 1)
	for msg := range receiver {
		header := msg.GetBody(section)
		if header == nil {
			i.log.Printf("no header received for message seq=%d", msg.SeqNum)
			continue
		}
		match, err := mailbox.HasHeaderValue(header, key, value)
		if err != nil {
			i.log.Printf("message seq=%d: %s", msg.SeqNum, err)
			continue
		}
		if match {
			found = append(found, mailbox.UID(msg.Uid))
		}
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return found, nil
}

func (i *Imap) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	if i.client == nil {
		return mailbox.EmptyMessageID, lib.ErrNotConnected
	}
	name := i.name(info)
	buffer := &bytes.Buffer{}
	read, err := buffer.ReadFrom(body)
	if err != nil {
		return mailbox.EmptyMessageID, fmt.Errorf("cannot read message body: %w", err)
	}
	if props.Size > 0 && read != int64(props.Size) {
		return mailbox.EmptyMessageID, fmt.Errorf("message body size advertised as %d bytes but read %d bytes from buffer", props.Size, read)
	}

	stop := i.watch()
	var uid uint32
	if i.uidplusClient != nil {
		_, uid, err = i.uidplusClient.Append(name, props.Flags, props.InternalDate, buffer)
	} else {
		err = i.client.Append(name, props.Flags, props.InternalDate, buffer)
	}
	stop()
	if err != nil {
		return mailbox.EmptyMessageID,
			fmt.Errorf("cannot append new message to IMAP server (mailbox=%q size=%d flags=%v): %w",
				name, read, props.Flags, contextError(i.ctx, err),
			)
	}
	i.log.Printf("Message saved: mailbox=%q uid=%v size=%d flags=%v date=%q", name, uid, read, props.Flags, props.InternalDate)

	return mailbox.UID(uid), nil
}

// UnselectMailbox leaves the mailbox selected when the server has no UNSELECT:
// the next SELECT replaces it, and CLOSE would expunge the deleted messages.
func (i *Imap) UnselectMailbox() error {
	if i.client == nil || i.selected == nil {
		return nil
	}
	i.selected = nil
	defer i.watch()()
	supported, err := i.client.Support("UNSELECT")
	if err != nil {
		return err
	}
	if !supported {
		i.log.Print("IMAP server does NOT support UNSELECT extension")
		return nil
	}
	return i.client.Unselect()
}
