package syncer

import (
	"bytes"
	"net/url"
	"testing"
	"time"

	"github.com/creativeprojects/feedme/feed"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	composer, err := NewComposer("", "", nil)
	require.NoError(t, err)

	link, _ := url.Parse("https://example.com/1")
	timestamp := time.Date(2020, 10, 20, 12, 11, 0, 0, time.UTC)
	item := feed.Item{
		Title:       "Café\n  news",
		Body:        "line 1\nline 2\r\nline 3\rline 4",
		Link:        link,
		CanonicalID: "1@feed-me-via-imap.localhost",
		Timestamp:   timestamp,
	}
	message, err := composer.Compose(item)
	require.NoError(t, err)

	// all line endings are CRLF
	assert.NotRegexp(t, "[^\r]\n", string(message))
	assert.NotRegexp(t, "\r[^\n]", string(message))

	reader, err := mail.CreateReader(bytes.NewReader(message))
	require.NoError(t, err)
	defer reader.Close()

	subject, err := reader.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Café news", subject)

	date, err := reader.Header.Date()
	require.NoError(t, err)
	assert.True(t, timestamp.Equal(date))

	from, err := reader.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, DefaultFrom, from[0].Address)

	to, err := reader.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, DefaultTo, to[0].Address)

	messageID, err := reader.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, "1@feed-me-via-imap.localhost", messageID)
	assert.Equal(t, "1@feed-me-via-imap.localhost", reader.Header.Get(mailbox.HeaderFeedID))

	contentType, params, err := reader.Header.ContentType()
	require.NoError(t, err)
	assert.Equal(t, "text/plain", contentType)
	assert.Equal(t, "utf-8", params["charset"])

	index := bytes.Index(message, []byte("\r\n\r\n"))
	require.Greater(t, index, 0)
	body := string(message[index+4:])
	assert.Equal(t, "https://example.com/1\r\n\r\nCafé\r\n  news\r\n\r\nline 1\r\nline 2\r\nline 3\r\nline 4\r\n", body)
}

func TestComposeWithoutLink(t *testing.T) {
	composer, err := NewComposer("Feeds <feeds@example.com>", "me@example.com, you@example.com", nil)
	require.NoError(t, err)

	message, err := composer.Compose(feed.Item{
		Title:       "title",
		Body:        "body",
		CanonicalID: "https://example.com/?p=1@feed-me-via-imap.localhost",
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)

	reader, err := mail.CreateReader(bytes.NewReader(message))
	require.NoError(t, err)
	defer reader.Close()

	to, err := reader.Header.AddressList("To")
	require.NoError(t, err)
	assert.Len(t, to, 2)

	from, err := reader.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "Feeds", from[0].Name)

	// the canonical ID is not a valid message ID: a stable one is generated
	messageID, err := reader.Header.MessageID()
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}@feed-me-via-imap\.localhost$`, messageID)
	assert.Equal(t, "https://example.com/?p=1@feed-me-via-imap.localhost", reader.Header.Get(mailbox.HeaderFeedID))

	assert.True(t, bytes.HasSuffix(message, []byte("\r\n\r\ntitle\r\n\r\nbody\r\n")))
}

func TestComposerInvalidAddress(t *testing.T) {
	_, err := NewComposer("not an address", "", nil)
	assert.Error(t, err)

	_, err = NewComposer("", "@@", nil)
	assert.Error(t, err)
}
