package mem

import (
	"context"
	"strings"
	"testing"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	backend := NewWithLogger(lib.NewTestLogger(t, "mem"))

	err := backend.Login(context.Background())
	require.NoError(t, err)
	defer backend.Logout()

	test.RunTestsOnBackend(t, backend)
}

func TestMemoryBackendWithSlashDelimiter(t *testing.T) {
	backend := NewWithDelimiter("/", lib.NewTestLogger(t, "mem"))

	err := backend.Login(context.Background())
	require.NoError(t, err)
	defer backend.Logout()

	test.RunTestsOnBackend(t, backend)
}

func TestMemoryBackendNeedsLogin(t *testing.T) {
	backend := New()
	_, err := backend.MailboxExists(mailbox.Info{Name: "INBOX"})
	assert.ErrorIs(t, err, lib.ErrNotConnected)

	err = backend.CreateMailbox(mailbox.Info{Name: "INBOX"})
	assert.ErrorIs(t, err, lib.ErrNotConnected)
}

func TestMemoryBackendFlatNamespace(t *testing.T) {
	backend := NewWithDelimiter("", nil)
	require.NoError(t, backend.Login(context.Background()))

	info := mailbox.Info{Delimiter: "/", Name: "News/Tech"}
	require.NoError(t, backend.CreateMailbox(info))

	list, err := backend.ListMailbox()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "News/Tech", list[0].Name)
}

func TestMemoryBackendUnseenAndInvalidHeader(t *testing.T) {
	backend := New()
	require.NoError(t, backend.Login(context.Background()))
	info := mailbox.Info{Delimiter: Delimiter, Name: "INBOX"}
	require.NoError(t, backend.CreateMailbox(info))

	_, err := backend.PutMessage(info, mailbox.MessageProperties{Flags: []string{mailbox.FlagSeen}}, strings.NewReader("Subject: read\r\n\r\nbody"))
	require.NoError(t, err)
	_, err = backend.PutMessage(info, mailbox.MessageProperties{}, strings.NewReader("Subject: unread\r\n\r\nbody"))
	require.NoError(t, err)
	_, err = backend.PutMessage(info, mailbox.MessageProperties{}, strings.NewReader("not a header line\r\n\r\nbody"))
	assert.Error(t, err)

	status, err := backend.SelectMailbox(info)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), status.Messages)
	assert.Equal(t, uint32(1), status.Unseen)
}
