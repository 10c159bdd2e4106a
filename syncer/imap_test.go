package syncer

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/creativeprojects/feedme/feed"
	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage/remote"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
)

func newImapBackend(t *testing.T, address string) *remote.Imap {
	t.Helper()
	backend, err := remote.NewImap(remote.Config{
		ServerURL:   address,
		Username:    "username",
		Password:    "password",
		NoTLS:       true,
		Timeout:     10 * time.Second,
		DebugLogger: lib.NewTestLogger(t, "imap"),
	})
	require.NoError(t, err)
	return backend
}

func TestSyncIntoImapServer(t *testing.T) {
	imapServer := server.New(memory.New())
	imapServer.AllowInsecureAuth = true
	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = imapServer.Serve(listener)
	}()
	defer func() {
		assert.NoError(t, imapServer.Close())
		wg.Wait()
	}()
	address := listener.Addr().String()

	feeds := newFeedServer(t)
	feeds.set("/tech", rss("1", "2"))
	source := feed.Feed{URL: feeds.URL + "/tech", Folder: "News/Tech"}

	results := run(t, newImapBackend(t, address), source)
	assert.Equal(t, StateCompleted, results[0].State)
	assert.Equal(t, 2, results[0].Delivered)
	assert.Equal(t, "News/Tech", results[0].Folder)

	results = run(t, newImapBackend(t, address), source)
	assert.Equal(t, StateCompleted, results[0].State)
	assert.Equal(t, 0, results[0].Delivered)
	assert.Equal(t, 2, results[0].Skipped)

	// check with an independent connection
	check := newImapBackend(t, address)
	require.NoError(t, check.Login(context.Background()))
	defer check.Logout()
	status, err := check.SelectMailbox(mailbox.Info{Delimiter: "/", Name: "News/Tech"})
	require.NoError(t, err)
	assert.Equal(t, uint32(2), status.Messages)
	ids, err := check.SearchHeader(mailbox.HeaderFeedID, "2@feed-me-via-imap.localhost")
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestSyncCancelledWhileConnecting(t *testing.T) {
	// accepts the connection but never sends the greeting
	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(io.Discard, conn)
			}()
		}
	}()

	backend, err := remote.NewImap(remote.Config{
		ServerURL:   listener.Addr().String(),
		Username:    "username",
		Password:    "password",
		NoTLS:       true,
		DialTimeout: 5 * time.Second,
		Timeout:     10 * time.Second,
		DebugLogger: lib.NewTestLogger(t, "imap"),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	_, err = newTestSyncer(t, backend).Run(ctx, []feed.Feed{{URL: "http://localhost:1/feed", Folder: "INBOX"}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}
