package mailbox

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageID identifies a message inside its mailbox: the UID for IMAP, bolt and memory stores,
// the file key for a maildir.
type MessageID string

var EmptyMessageID MessageID

func UID(uid uint32) MessageID {
	return MessageID(strconv.FormatUint(uint64(uid), 10))
}

func Key(key string) MessageID {
	return MessageID(key)
}

func (i MessageID) IsZero() bool {
	return i == ""
}

func (i MessageID) String() string {
	return string(i)
}

// System flags a delivered message can carry
const (
	FlagSeen     = `\Seen`
	FlagFlagged  = `\Flagged`
	FlagAnswered = `\Answered`
	FlagDraft    = `\Draft`
)

var flagNames = map[string]string{
	"seen":     FlagSeen,
	"flagged":  FlagFlagged,
	"answered": FlagAnswered,
	"draft":    FlagDraft,
}

// ParseFlags accepts flag names with or without the leading backslash, in any case ("seen", "\Seen")
// and returns them in IMAP form. Duplicates are removed.
func ParseFlags(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	flags := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		flag, ok := flagNames[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), `\`))]
		if !ok {
			return nil, fmt.Errorf("unsupported message flag %q", name)
		}
		if seen[flag] {
			continue
		}
		seen[flag] = true
		flags = append(flags, flag)
	}
	return flags, nil
}

// MessageProperties are given to the store with the content of a new message
type MessageProperties struct {
	// Flags in IMAP form, see ParseFlags
	Flags []string
	// InternalDate is the date of the feed item rather than the time of delivery
	InternalDate time.Time
	// Size of the content in bytes, 0 when unknown
	Size uint32
}
