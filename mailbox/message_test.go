package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageID(t *testing.T) {
	assert.Equal(t, "12", UID(12).String())
	assert.Equal(t, "1700000000.M1P2.host", Key("1700000000.M1P2.host").String())
	assert.True(t, EmptyMessageID.IsZero())
	assert.False(t, UID(1).IsZero())
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"seen", `\Flagged`, "SEEN", " draft "})
	require.NoError(t, err)
	assert.Equal(t, []string{FlagSeen, FlagFlagged, FlagDraft}, flags)

	flags, err = ParseFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, flags)

	_, err = ParseFlags([]string{`\Deleted`})
	assert.Error(t, err)
	_, err = ParseFlags([]string{"recent"})
	assert.Error(t, err)
}
