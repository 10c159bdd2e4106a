package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMessage = "From: sender@localhost\r\n" +
	"To: recipient@localhost\r\n" +
	"Subject: sample\r\n" +
	"X-Feed-Me-ID: 11@feed-me-via-imap.localhost\r\n" +
	"\r\n" +
	"X-Feed-Me-ID: 1@feed-me-via-imap.localhost\r\n"

func TestHeaderValues(t *testing.T) {
	values, err := HeaderValues(strings.NewReader(sampleMessage), HeaderFeedID)
	require.NoError(t, err)
	assert.Equal(t, []string{"11@feed-me-via-imap.localhost"}, values)
}

func TestHasHeaderValueIsExact(t *testing.T) {
	found, err := HasHeaderValue(strings.NewReader(sampleMessage), HeaderFeedID, "11@feed-me-via-imap.localhost")
	require.NoError(t, err)
	assert.True(t, found)

	// the body must not be searched, and a substring is not a match
	found, err = HasHeaderValue(strings.NewReader(sampleMessage), HeaderFeedID, "1@feed-me-via-imap.localhost")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHeaderKeyIsCaseInsensitive(t *testing.T) {
	found, err := HasHeaderValue(strings.NewReader(sampleMessage), "x-feed-me-id", "11@feed-me-via-imap.localhost")
	require.NoError(t, err)
	assert.True(t, found)
}
