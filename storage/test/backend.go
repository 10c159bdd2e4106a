package test

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage"
	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sampleMessage = "From: sender@localhost\r\n" +
		"To: recipient@localhost\r\n" +
		"Subject: A little message, just for you\r\n" +
		"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
		"Message-ID: <0000000@localhost>\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Hi there :)"
	sampleMessageDate  = time.Date(2020, 10, 20, 12, 11, 0, 0, time.UTC)
	sampleMessageFlags = []string{imap.SeenFlag}
)

// feedMessage returns a message carrying a feed ID header, with a body mentioning another ID
func feedMessage(id, bodyID string) string {
	return fmt.Sprintf("From: sender@localhost\r\n"+
		"To: recipient@localhost\r\n"+
		"Subject: item %s\r\n"+
		"Date: Wed, 11 May 2016 14:31:59 +0000\r\n"+
		"Message-ID: <%s>\r\n"+
		"%s: %s\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"see also %s\r\n", id, id, mailbox.HeaderFeedID, id, bodyID)
}

// RunTestsOnBackend is the unit tests runner called by the concrete implementations of storage.Backend.
// The backend must be logged in.
func RunTestsOnBackend(t *testing.T, backend storage.Backend) {
	require.NotNil(t, backend)

	err := PrepareBackend(backend)
	require.NoError(t, err)

	work := mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      "Work",
	}

	t.Run("ListMailbox", func(t *testing.T) {
		list, err := backend.ListMailbox()
		require.NoError(t, err)

		// check there's at least one mailbox
		require.Greater(t, len(list), 0)
		// check the expected delimiter
		assert.Equal(t, backend.Delimiter(), list[0].Delimiter)
	})

	t.Run("CreateExistingMailbox", func(t *testing.T) {
		list, err := backend.ListMailbox()
		require.NoError(t, err)

		assert.True(t, mailboxExists("INBOX", list))

		err = backend.CreateMailbox(mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "INBOX",
		})
		require.NoError(t, err)
	})

	t.Run("MailboxExists", func(t *testing.T) {
		found, err := backend.MailboxExists(mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "INBOX",
		})
		require.NoError(t, err)
		assert.True(t, found)

		found, err = backend.MailboxExists(mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "No mailbox at that name",
		})
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("CreateMailboxSameDelimiter", func(t *testing.T) {
		parent := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Path",
		}
		createMailbox(t, backend, parent)
		createMailbox(t, backend, mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "Path" + backend.Delimiter() + "Mailbox",
		})
	})

	t.Run("CreateMailboxDifferentDelimiter", func(t *testing.T) {
		createMailbox(t, backend, mailbox.Info{
			Delimiter: "#",
			Name:      "Other",
		})
		createMailbox(t, backend, mailbox.Info{
			Delimiter: "#",
			Name:      "Other#Mailbox",
		})
	})

	t.Run("SelectMailboxDoesNotExist", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "No mailbox at that name",
		}
		status, err := backend.SelectMailbox(info)
		assert.Nil(t, status)
		require.Error(t, err)
		// IMAP doesn't have a specific error (it's up to the server implementation)
	})

	t.Run("SelectMailbox", func(t *testing.T) {
		info := mailbox.Info{
			Delimiter: backend.Delimiter(),
			Name:      "INBOX",
		}
		status, err := backend.SelectMailbox(info)
		require.NoError(t, err)
		t.Logf("%v", status)
		assert.Equal(t, info.Name, status.Name)

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
	})

	t.Run("CreateSimpleMailbox", func(t *testing.T) {
		createMailbox(t, backend, work)
	})

	t.Run("SearchEmptyMailbox", func(t *testing.T) {
		_, err := backend.SelectMailbox(work)
		require.NoError(t, err)

		found, err := backend.SearchHeader(mailbox.HeaderFeedID, "11@example.test")
		require.NoError(t, err)
		assert.Empty(t, found)

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
	})

	t.Run("AppendMessage", func(t *testing.T) {
		message := feedMessage("11@example.test", "1@example.test")
		props := mailbox.MessageProperties{
			Flags:        sampleMessageFlags,
			InternalDate: sampleMessageDate,
			Size:         uint32(len(message)),
		}
		body := bytes.NewBufferString(message)
		_, err := backend.PutMessage(work, props, body)
		require.NoError(t, err)

		// Verify the mailbox shows 1 message
		status, err := backend.SelectMailbox(work)
		require.NoError(t, err)
		t.Logf("%v", status)
		assert.Equal(t, work.Name, status.Name)
		assert.Equal(t, uint32(1), status.Messages)

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
	})

	t.Run("SearchHeaderExactMatch", func(t *testing.T) {
		_, err := backend.SelectMailbox(work)
		require.NoError(t, err)

		found, err := backend.SearchHeader(mailbox.HeaderFeedID, "11@example.test")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		// header keys are case insensitive
		found, err = backend.SearchHeader("x-feed-me-id", "11@example.test")
		require.NoError(t, err)
		assert.Len(t, found, 1)

		// no substring match, and the body is not searched
		found, err = backend.SearchHeader(mailbox.HeaderFeedID, "1@example.test")
		require.NoError(t, err)
		assert.Empty(t, found)

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
	})

	t.Run("SearchHeaderNotSelected", func(t *testing.T) {
		_, err := backend.SearchHeader(mailbox.HeaderFeedID, "11@example.test")
		assert.Error(t, err)
	})

	t.Run("AppendMessageWithWrongSize", func(t *testing.T) {
		message := feedMessage("12@example.test", "")
		props := mailbox.MessageProperties{
			InternalDate: sampleMessageDate,
			Size:         uint32(len(message)) - 1,
		}
		body := bytes.NewBufferString(message)
		_, err := backend.PutMessage(work, props, body)
		assert.Error(t, err)

		// Verify the mailbox still shows 1 message
		status, err := backend.SelectMailbox(work)
		assert.NoError(t, err)
		assert.Equal(t, uint32(1), status.Messages)

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
	})

	t.Run("AppendSecondMessage", func(t *testing.T) {
		message := feedMessage("12@example.test", "11@example.test")
		props := mailbox.MessageProperties{
			InternalDate: sampleMessageDate,
		}
		_, err := backend.PutMessage(work, props, bytes.NewBufferString(message))
		require.NoError(t, err)

		status, err := backend.SelectMailbox(work)
		require.NoError(t, err)
		assert.Equal(t, uint32(2), status.Messages)

		for _, id := range []string{"11@example.test", "12@example.test"} {
			found, err := backend.SearchHeader(mailbox.HeaderFeedID, id)
			require.NoError(t, err)
			assert.Len(t, found, 1, id)
		}

		err = backend.UnselectMailbox()
		assert.NoError(t, err)
	})
}

// PrepareBackend makes sure the INBOX exists with at least one message
func PrepareBackend(backend storage.Backend) error {
	info := mailbox.Info{
		Delimiter: backend.Delimiter(),
		Name:      "INBOX",
	}
	exists, err := backend.MailboxExists(info)
	if err != nil {
		return err
	}
	if exists {
		// no need to create the mailbox and add a message to it
		return nil
	}
	err = backend.CreateMailbox(info)
	if err != nil {
		return err
	}
	props := mailbox.MessageProperties{
		Flags:        []string{imap.SeenFlag},
		InternalDate: time.Now(),
		Size:         uint32(len(sampleMessage)),
	}
	buffer := bytes.NewBufferString(sampleMessage)
	_, err = backend.PutMessage(info, props, buffer)
	if err != nil {
		return err
	}
	return nil
}

func createMailbox(t *testing.T, backend storage.Backend, info mailbox.Info) {
	t.Helper()

	err := backend.CreateMailbox(info)
	require.NoError(t, err)

	list, err := backend.ListMailbox()
	require.NoError(t, err)

	name := lib.VerifyDelimiter(info.Name, info.Delimiter, backend.Delimiter())
	assert.True(t, mailboxExists(name, list))

	found, err := backend.MailboxExists(info)
	require.NoError(t, err)
	assert.True(t, found)
}

func mailboxExists(name string, in []mailbox.Info) bool {
	for _, mailbox := range in {
		if mailbox.Name == name {
			return true
		}
	}
	return false
}
