package lib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelimiter(t *testing.T) {
	fixtures := []struct {
		name             string
		currentDelimiter string
		newDelimiter     string
		expected         string
	}{
		{"name", "", "", "name"},
		{"name", "n", "", "name"},
		{"name", "", "n", "name"},
		{"name", "n", "n", "name"},
		{"name", ".", "/", "name"},
		{"name", "/", ".", "name"},
		{"folder/name", "/", ".", "folder.name"},
		{"folder.name", ".", "/", "folder/name"},
		{"folder/na.me", "/", ".", "folder.na\\.me"},
		{"folder.na/me", ".", "/", "folder/na\\/me"},
		{"a/b", "", "/", "a/b"},
	}

	for _, fixture := range fixtures {
		result := VerifyDelimiter(fixture.name, fixture.currentDelimiter, fixture.newDelimiter)
		assert.Equal(t, fixture.expected, result)
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "", Summarize(nil, 10))
	assert.Equal(t, "short", Summarize([]byte("short"), 10))
	assert.Equal(t, "0123...", Summarize([]byte("0123456789"), 4))
}
