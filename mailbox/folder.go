package mailbox

import (
	"errors"
	"strings"
)

// LogicalDelimiter separates the segments of a FolderPath, whatever the store uses
const LogicalDelimiter = "/"

// FolderPath is a store independent folder name like "News/Tech"
type FolderPath string

// FromNative converts a mailbox name using the store delimiter back to a FolderPath
func FromNative(name, delimiter string) FolderPath {
	if delimiter == "" || delimiter == LogicalDelimiter {
		return FolderPath(name)
	}
	return FolderPath(strings.Join(strings.Split(name, delimiter), LogicalDelimiter))
}

func (p FolderPath) Validate() error {
	if p == "" {
		return errors.New("empty folder name")
	}
	for _, segment := range p.Segments() {
		if strings.TrimSpace(segment) == "" {
			return errors.New("empty segment in folder name")
		}
	}
	return nil
}

func (p FolderPath) Segments() []string {
	return strings.Split(string(p), LogicalDelimiter)
}

// Prefixes returns all the ancestors of the path followed by the path itself, shortest first
func (p FolderPath) Prefixes() []FolderPath {
	segments := p.Segments()
	prefixes := make([]FolderPath, len(segments))
	for i := range segments {
		prefixes[i] = FolderPath(strings.Join(segments[:i+1], LogicalDelimiter))
	}
	return prefixes
}

// ToNative joins the segments with the store delimiter.
// An empty delimiter is a flat namespace where the name is kept verbatim.
func (p FolderPath) ToNative(delimiter string) string {
	if delimiter == "" {
		return string(p)
	}
	return strings.Join(p.Segments(), delimiter)
}

// Info returns the native mailbox information
func (p FolderPath) Info(delimiter string) Info {
	return Info{
		Delimiter: delimiter,
		Name:      p.ToNative(delimiter),
	}
}

func (p FolderPath) String() string {
	return string(p)
}
