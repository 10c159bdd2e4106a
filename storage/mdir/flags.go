package mdir

import (
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/emersion/go-maildir"
)

var maildirFlags = map[string]maildir.Flag{
	mailbox.FlagSeen:     maildir.FlagSeen,
	mailbox.FlagAnswered: maildir.FlagReplied,
	mailbox.FlagFlagged:  maildir.FlagFlagged,
	mailbox.FlagDraft:    maildir.FlagDraft,
}

// toFlags converts IMAP flags into maildir info flags, ignoring the ones maildir cannot store
func toFlags(source []string) []maildir.Flag {
	flags := make([]maildir.Flag, 0, len(source))
	for _, flag := range source {
		if converted, ok := maildirFlags[flag]; ok {
			flags = append(flags, converted)
		}
	}
	return flags
}
