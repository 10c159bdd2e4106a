package mailbox

import "github.com/creativeprojects/feedme/lib"

// Info is a mailbox name as seen by a store, along with the store's hierarchy delimiter
type Info struct {
	// The server's path separator.
	Delimiter string
	// The mailbox name.
	Name string
}

// ChangeDelimiter converts the name of the mailbox to another delimiter
func ChangeDelimiter(info Info, delimiter string) Info {
	return Info{
		Delimiter: delimiter,
		Name:      lib.VerifyDelimiter(info.Name, info.Delimiter, delimiter),
	}
}

func (i Info) String() string {
	return i.Name
}
