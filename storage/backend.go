package storage

import (
	"context"
	"io"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
)

// Backend is the capability of a mail store used by the synchronization.
// All methods but DebugLogger and Login need a successful Login first.
type Backend interface {
	// DebugLogger sets a logger to send debug information to
	DebugLogger(logger lib.Logger)
	// Login connects and authenticates to the store
	Login(ctx context.Context) error
	// Logout closes the connection to the store
	Logout() error
	// Delimiter used to construct a path of mailboxes with its children
	Delimiter() string
	ListMailbox() ([]mailbox.Info, error)
	MailboxExists(info mailbox.Info) (bool, error)
	// CreateMailbox doesn't return an error if the mailbox already exists
	CreateMailbox(info mailbox.Info) error
	// SelectMailbox opens the mailbox for searching messages
	SelectMailbox(info mailbox.Info) (*mailbox.Status, error)
	// SearchHeader returns the messages of the selected mailbox with a header key of this exact value
	SearchHeader(key, value string) ([]mailbox.MessageID, error)
	PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error)
	// UnselectMailbox after searching messages
	UnselectMailbox() error
}
