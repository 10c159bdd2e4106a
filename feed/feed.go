package feed

import (
	"fmt"
	"net/url"
	"time"

	"github.com/creativeprojects/feedme/mailbox"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatRSS
	FormatAtom
)

func (f Format) String() string {
	switch f {
	case FormatRSS:
		return "RSS"
	case FormatAtom:
		return "Atom"
	default:
		return "unknown"
	}
}

// Feed is a source of items and the folder receiving them
type Feed struct {
	URL    string
	Folder mailbox.FolderPath
}

func (f Feed) String() string {
	return f.URL
}

// Entry is an item as found in a feed document, before it gets an identity
type Entry struct {
	Title string
	Body  string
	// Link is nil when absent or invalid
	Link *url.URL
	// RawID is the guid (RSS) or id (Atom) of the item, empty when absent
	RawID     string
	Timestamp time.Time
}

// Item is an entry with its canonical ID, ready to be delivered
type Item struct {
	Title       string
	Body        string
	Link        *url.URL
	CanonicalID string
	Timestamp   time.Time
}

// LinkString returns the link, or an empty string when there's none
func (i Item) LinkString() string {
	if i.Link == nil {
		return ""
	}
	return i.Link.String()
}

func (i Item) String() string {
	return fmt.Sprintf("%q (%s)", i.Title, i.CanonicalID)
}
