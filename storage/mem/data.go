package mem

import (
	"bufio"
	"bytes"
	"sort"
	"strings"

	"github.com/creativeprojects/feedme/mailbox"
	"github.com/emersion/go-message/textproto"
)

type memMessage struct {
	content []byte
	header  textproto.Header
	props   mailbox.MessageProperties
}

type memMailbox struct {
	uidValidity uint32
	lastUID     uint32
	messages    map[uint32]*memMessage
}

// add keeps a copy of the header so searches don't parse the message again
func (m *memMailbox) add(content []byte, props mailbox.MessageProperties) (uint32, error) {
	header, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(content)))
	if err != nil {
		return 0, err
	}
	m.lastUID++
	m.messages[m.lastUID] = &memMessage{
		content: content,
		header:  header,
		props:   props,
	}
	return m.lastUID, nil
}

func (m *memMailbox) uids() []uint32 {
	uids := make([]uint32, 0, len(m.messages))
	for uid := range m.messages {
		uids = append(uids, uid)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids
}

func (m *memMailbox) unseen() uint32 {
	count := uint32(0)
	for _, msg := range m.messages {
		if !hasFlag(msg.props.Flags, mailbox.FlagSeen) {
			count++
		}
	}
	return count
}

// search returns the UIDs of the messages with a header field key of this exact value
func (m *memMailbox) search(key, value string) []uint32 {
	var found []uint32
	for _, uid := range m.uids() {
		fields := m.messages[uid].header.FieldsByKey(key)
		for fields.Next() {
			if strings.TrimSpace(fields.Value()) == value {
				found = append(found, uid)
				break
			}
		}
	}
	return found
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
