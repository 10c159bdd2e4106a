package syncer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage/mem"
)

// faultyBackend is a memory backend with some errors injected
type faultyBackend struct {
	*mem.Backend
	loginErr      error
	onLogin       func()
	createErr     error
	putErr        func(body string) error
	existCalls    int
	selectCalls   int
	unselectCalls int
	logouts       int
}

func newFaultyBackend(delimiter string) *faultyBackend {
	return &faultyBackend{
		Backend: mem.NewWithDelimiter(delimiter, nil),
	}
}

func (b *faultyBackend) Login(ctx context.Context) error {
	if b.loginErr != nil {
		return b.loginErr
	}
	err := b.Backend.Login(ctx)
	if err == nil && b.onLogin != nil {
		b.onLogin()
	}
	return err
}

func (b *faultyBackend) Logout() error {
	b.logouts++
	return b.Backend.Logout()
}

func (b *faultyBackend) MailboxExists(info mailbox.Info) (bool, error) {
	b.existCalls++
	return b.Backend.MailboxExists(info)
}

func (b *faultyBackend) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	b.selectCalls++
	return b.Backend.SelectMailbox(info)
}

func (b *faultyBackend) UnselectMailbox() error {
	b.unselectCalls++
	return b.Backend.UnselectMailbox()
}

func (b *faultyBackend) CreateMailbox(info mailbox.Info) error {
	if b.createErr != nil {
		return b.createErr
	}
	return b.Backend.CreateMailbox(info)
}

func (b *faultyBackend) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	if b.putErr != nil {
		content, err := io.ReadAll(body)
		if err != nil {
			return mailbox.EmptyMessageID, err
		}
		if err := b.putErr(string(content)); err != nil {
			return mailbox.EmptyMessageID, err
		}
		body = strings.NewReader(string(content))
	}
	return b.Backend.PutMessage(info, props, body)
}

// feedServer serves feeds that can be changed during the test
type feedServer struct {
	*httptest.Server
	mu      sync.Mutex
	content map[string]string
}

func newFeedServer(t *testing.T) *feedServer {
	server := &feedServer{
		content: make(map[string]string),
	}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.mu.Lock()
		content, found := server.content[r.URL.Path]
		server.mu.Unlock()
		if !found {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, content)
	}))
	t.Cleanup(server.Close)
	return server
}

func (s *feedServer) set(path, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[path] = content
}

func rss(ids ...string) string {
	builder := &strings.Builder{}
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>test</title>`)
	for _, id := range ids {
		fmt.Fprintf(builder, "<item><title>Item %s</title><description>Description of item %s</description>"+
			"<link>https://example.com/%s</link><guid>%s</guid><pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate></item>",
			id, id, id, id)
	}
	builder.WriteString(`</channel></rss>`)
	return builder.String()
}

func atom(ids ...string) string {
	builder := &strings.Builder{}
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>test</title>`)
	for _, id := range ids {
		fmt.Fprintf(builder, `<entry><title>Entry %s</title><summary>Summary %s</summary>`+
			`<link href="https://example.com/atom/%s"/><id>%s</id><updated>2006-01-02T15:04:05Z</updated></entry>`,
			id, id, id, id)
	}
	builder.WriteString(`</feed>`)
	return builder.String()
}
