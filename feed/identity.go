package feed

import (
	"strings"
	"unicode"

	"github.com/creativeprojects/feedme/lib"
	"github.com/google/uuid"
)

const DefaultNamespace = "feed-me-via-imap.localhost"

type Fallback string

const (
	// FallbackContent derives the ID from the title and link: stable across runs
	FallbackContent Fallback = "content"
	// FallbackTime generates a new time-ordered ID on each call
	FallbackTime Fallback = "time"
)

// Assigner gives each entry its canonical ID: the raw ID of the entry with the namespace appended
type Assigner struct {
	namespace string
	space     uuid.UUID
	fallback  Fallback
	log       lib.Logger
}

func NewAssigner(namespace string, fallback Fallback, logger lib.Logger) *Assigner {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if fallback == "" {
		fallback = FallbackContent
	}
	return &Assigner{
		namespace: namespace,
		space:     uuid.NewSHA1(uuid.NameSpaceDNS, []byte(namespace)),
		fallback:  fallback,
		log:       lib.OrNoLog(logger),
	}
}

func (a *Assigner) Namespace() string {
	return a.namespace
}

func (a *Assigner) Assign(entry Entry) string {
	raw := sanitizeID(entry.RawID)
	if raw == "" {
		raw = a.generate(entry)
		a.log.Warnf("no guid for item %q, generated %s", entry.Title, raw)
	}
	return raw + "@" + a.namespace
}

func (a *Assigner) generate(entry Entry) string {
	if a.fallback == FallbackTime {
		id, err := uuid.NewV7()
		if err == nil {
			return id.String()
		}
		a.log.Warnf("cannot generate time based UUID: %s", err)
	}
	link := ""
	if entry.Link != nil {
		link = entry.Link.String()
	}
	return uuid.NewSHA1(a.space, []byte(entry.Title+"\n"+link)).String()
}

// MessageID derives a valid message identifier from a canonical ID
func (a *Assigner) MessageID(canonicalID string) string {
	if isMessageID(canonicalID) {
		return canonicalID
	}
	return uuid.NewSHA1(a.space, []byte(canonicalID)).String() + "@" + a.namespace
}

// Identify assigns the canonical IDs; later entries with an ID already seen are dropped
func Identify(entries []Entry, assigner *Assigner, logger lib.Logger) []Item {
	logger = lib.OrNoLog(logger)
	items := make([]Item, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		id := assigner.Assign(entry)
		if _, found := seen[id]; found {
			logger.Warnf("duplicate item %q (%s) in the same feed: ignored", entry.Title, id)
			continue
		}
		seen[id] = struct{}{}
		items = append(items, Item{
			Title:       entry.Title,
			Body:        entry.Body,
			Link:        entry.Link,
			CanonicalID: id,
			Timestamp:   entry.Timestamp,
		})
	}
	return items
}

// sanitizeID trims the ID and collapses inner whitespace and control characters into a single space
func sanitizeID(raw string) string {
	builder := strings.Builder{}
	pending := false
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			pending = true
			continue
		}
		if pending && builder.Len() > 0 {
			builder.WriteRune(' ')
		}
		pending = false
		builder.WriteRune(r)
	}
	return builder.String()
}

// isMessageID accepts a dot-atom on each side of a single @
func isMessageID(id string) bool {
	left, right, found := strings.Cut(id, "@")
	if !found || strings.Contains(right, "@") {
		return false
	}
	return isDotAtom(left) && isDotAtom(right)
}

func isDotAtom(value string) bool {
	if value == "" || value[0] == '.' || value[len(value)-1] == '.' || strings.Contains(value, "..") {
		return false
	}
	for _, r := range value {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("!#$%&'*+-/=?^_`{|}~.", r)) {
			return false
		}
	}
	return true
}
