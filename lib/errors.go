package lib

import (
	"errors"
	"fmt"
)

var (
	ErrMailboxNotFound = errors.New("mailbox not found")
	ErrStatusNotFound  = errors.New("mailbox status not found")
	ErrNotSelected     = errors.New("mailbox not selected")
	ErrNotConnected    = errors.New("not connected")
	ErrInfoNotFound    = errors.New("mailbox info not found")
)

// TransportError is returned when a feed cannot be downloaded.
// The content returned alongside it is always empty.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetching %s: HTTP status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParsingError is returned when feed content is not well-formed.
type ParsingError struct {
	// Summary is the beginning of the offending input
	Summary string
	Err     error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("cannot parse feed content %q: %s", e.Summary, e.Err)
}

func (e *ParsingError) Unwrap() error {
	return e.Err
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Message
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// SessionStateError means an operation was called in the wrong session state:
// double login, double logout or any mailbox operation before login.
type SessionStateError struct {
	Op    string
	State string
}

func (e *SessionStateError) Error() string {
	return fmt.Sprintf("%s: invalid session state (%s)", e.Op, e.State)
}

type MailboxError struct {
	Op      string
	Mailbox string
	Err     error
}

func (e *MailboxError) Error() string {
	if e.Mailbox == "" {
		return fmt.Sprintf("mailbox %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("mailbox %s %q: %s", e.Op, e.Mailbox, e.Err)
}

func (e *MailboxError) Unwrap() error {
	return e.Err
}

// Summarize returns at most max bytes of data, for error messages.
func Summarize(data []byte, max int) string {
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
