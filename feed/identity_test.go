package feed

import (
	"net/url"
	"testing"

	"github.com/creativeprojects/feedme/lib"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignRawID(t *testing.T) {
	assigner := NewAssigner("", "", nil)
	testCases := []struct {
		raw      string
		expected string
	}{
		{"1", "1@feed-me-via-imap.localhost"},
		{"  42\n", "42@feed-me-via-imap.localhost"},
		{"tag:example.com,2005:\r\n  entry\t 1", "tag:example.com,2005: entry 1@feed-me-via-imap.localhost"},
		{"a\x00b", "a b@feed-me-via-imap.localhost"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.raw, func(t *testing.T) {
			id := assigner.Assign(Entry{RawID: testCase.raw})
			assert.Equal(t, testCase.expected, id)
			// stable
			assert.Equal(t, id, assigner.Assign(Entry{RawID: testCase.raw, Title: "another title"}))
		})
	}
}

func TestAssignCustomNamespace(t *testing.T) {
	assigner := NewAssigner("feeds.example.com", FallbackContent, nil)
	assert.Equal(t, "feeds.example.com", assigner.Namespace())
	assert.Equal(t, "1@feeds.example.com", assigner.Assign(Entry{RawID: "1"}))
}

func TestAssignContentFallbackIsStable(t *testing.T) {
	link, _ := url.Parse("https://example.com/post")
	entry := Entry{Title: "title", Link: link}

	first := NewAssigner("", FallbackContent, lib.NewTestLogger(t, "")).Assign(entry)
	second := NewAssigner("", FallbackContent, nil).Assign(entry)
	assert.Equal(t, first, second)
	assert.Regexp(t, `^[0-9a-f-]{36}@feed-me-via-imap\.localhost$`, first)

	other := NewAssigner("", FallbackContent, nil).Assign(Entry{Title: "other title", Link: link})
	assert.NotEqual(t, first, other)
}

func TestAssignTimeFallbackIsUnique(t *testing.T) {
	assigner := NewAssigner("", FallbackTime, nil)
	first := assigner.Assign(Entry{Title: "title"})
	second := assigner.Assign(Entry{Title: "title"})
	assert.NotEqual(t, first, second)

	parsed, err := uuid.Parse(first[:36])
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestIdentifyDropsDuplicates(t *testing.T) {
	entries := []Entry{
		{Title: "one", RawID: "1"},
		{Title: "two", RawID: "2"},
		{Title: "one again", RawID: " 1 "},
		{Title: "three", RawID: "3"},
	}
	items := Identify(entries, NewAssigner("", "", nil), lib.NewTestLogger(t, ""))
	require.Len(t, items, 3)
	assert.Equal(t, "one", items[0].Title)
	assert.Equal(t, "1@feed-me-via-imap.localhost", items[0].CanonicalID)
	assert.Equal(t, "two", items[1].Title)
	assert.Equal(t, "three", items[2].Title)
}

func TestMessageID(t *testing.T) {
	assigner := NewAssigner("", "", nil)
	assert.Equal(t, "1@feed-me-via-imap.localhost", assigner.MessageID("1@feed-me-via-imap.localhost"))

	generated := assigner.MessageID("https://example.com/?p=1@feed-me-via-imap.localhost")
	assert.Regexp(t, `^[0-9a-f-]{36}@feed-me-via-imap\.localhost$`, generated)
	assert.Equal(t, generated, assigner.MessageID("https://example.com/?p=1@feed-me-via-imap.localhost"))

	assert.NotEqual(t, "a b@x", assigner.MessageID("a b@x"))
	assert.NotEqual(t, "a@b@c", assigner.MessageID("a@b@c"))
}
