package syncer

import (
	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/creativeprojects/feedme/storage"
)

// Folders makes sure a folder and all its parents exist in the store.
// Folders already ensured are cached for the lifetime of the instance.
type Folders struct {
	session *storage.Session
	log     lib.Logger
	cache   map[mailbox.FolderPath]mailbox.Info
}

func NewFolders(session *storage.Session, logger lib.Logger) *Folders {
	return &Folders{
		session: session,
		log:     lib.OrNoLog(logger),
		cache:   make(map[mailbox.FolderPath]mailbox.Info),
	}
}

func (f *Folders) Ensure(path mailbox.FolderPath) (mailbox.Info, error) {
	if info, found := f.cache[path]; found {
		return info, nil
	}
	if err := path.Validate(); err != nil {
		return mailbox.Info{}, &lib.MailboxError{Op: "ensure", Mailbox: path.String(), Err: err}
	}
	delimiter := f.session.Delimiter()
	prefixes := path.Prefixes()
	if delimiter == "" {
		// flat namespace: there's no parent to create
		prefixes = []mailbox.FolderPath{path}
	}
	for _, prefix := range prefixes {
		if err := f.create(prefix.Info(delimiter)); err != nil {
			return mailbox.Info{}, err
		}
	}

	info := path.Info(delimiter)
	exists, err := f.session.MailboxExists(info)
	if err != nil {
		return mailbox.Info{}, &lib.MailboxError{Op: "list", Mailbox: info.Name, Err: err}
	}
	if !exists {
		return mailbox.Info{}, &lib.MailboxError{Op: "ensure", Mailbox: info.Name, Err: lib.ErrMailboxNotFound}
	}
	f.cache[path] = info
	return info, nil
}

func (f *Folders) create(info mailbox.Info) error {
	exists, err := f.session.MailboxExists(info)
	if err != nil {
		return &lib.MailboxError{Op: "list", Mailbox: info.Name, Err: err}
	}
	if exists {
		f.log.Debugf("folder %q already exists", info.Name)
		return nil
	}
	f.log.Infof("creating folder %q", info.Name)
	err = f.session.CreateMailbox(info)
	if err == nil {
		return nil
	}
	// the folder could have been created in the meantime
	if exists, _ := f.session.MailboxExists(info); exists {
		return nil
	}
	return &lib.MailboxError{Op: "create", Mailbox: info.Name, Err: err}
}
