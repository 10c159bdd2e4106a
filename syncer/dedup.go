package syncer

import (
	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage"
)

// DedupGate tells whether an item was already delivered: the store keeps the canonical ID in a header.
// The folder stays selected between lookups until Close or a lookup in another folder.
type DedupGate struct {
	session  *storage.Session
	log      lib.Logger
	selected string
}

func NewDedupGate(session *storage.Session, logger lib.Logger) *DedupGate {
	return &DedupGate{
		session: session,
		log:     lib.OrNoLog(logger),
	}
}

// Exists returns false when the folder doesn't exist
func (d *DedupGate) Exists(folder mailbox.Info, canonicalID string) (bool, error) {
	if d.selected != folder.Name {
		open, err := d.open(folder)
		if err != nil || !open {
			return false, err
		}
	}
	found, err := d.session.SearchHeader(mailbox.HeaderFeedID, canonicalID)
	if err != nil {
		return false, &lib.MailboxError{Op: "search", Mailbox: folder.Name, Err: err}
	}
	// some stores answer nil instead of an empty list
	return len(found) > 0, nil
}

func (d *DedupGate) open(folder mailbox.Info) (bool, error) {
	d.Close()
	exists, err := d.session.MailboxExists(folder)
	if err != nil {
		return false, &lib.MailboxError{Op: "list", Mailbox: folder.Name, Err: err}
	}
	if !exists {
		return false, nil
	}
	_, err = d.session.SelectMailbox(folder)
	if err != nil {
		return false, &lib.MailboxError{Op: "select", Mailbox: folder.Name, Err: err}
	}
	d.selected = folder.Name
	return true, nil
}

// Close unselects the folder of the last lookup, if any
func (d *DedupGate) Close() {
	if d.selected == "" {
		return
	}
	if err := d.session.UnselectMailbox(); err != nil {
		d.log.Debugf("cannot unselect %q: %s", d.selected, err)
	}
	d.selected = ""
}
