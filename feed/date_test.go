package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"Mon, 02 Jan 2006 15:04:05 +0000", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"Mon, 02 Jan 2006 15:04:05 GMT", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"  2006-01-02T15:04:05Z\n", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2006-01-02T17:04:05+02:00", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2006-01-02", time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"", fixedNow()},
		{"yesterday-ish", fixedNow()},
	}

	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			parsed := ParseDate(testCase.input, fixedNow, nil)
			assert.True(t, testCase.expected.Equal(parsed), "expected %s but found %s", testCase.expected, parsed)
		})
	}
}
