package mailbox

// Status is returned when a mailbox gets selected
type Status struct {
	Name     string
	Messages uint32
	Unseen   uint32
	// UidValidity changes when the UIDs of the mailbox are no longer valid
	UidValidity uint32
}
