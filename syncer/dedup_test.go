package syncer

import (
	"strings"
	"testing"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupGate(t *testing.T) {
	session := newTestSession(t, newFaultyBackend("."))
	gate := NewDedupGate(session, lib.NewTestLogger(t, "dedup"))
	folder := mailbox.Info{Delimiter: ".", Name: "News"}

	// no folder yet
	found, err := gate.Exists(folder, "11@example.test")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, session.CreateMailbox(folder))

	// empty folder
	found, err = gate.Exists(folder, "11@example.test")
	require.NoError(t, err)
	assert.False(t, found)

	message := "Subject: test\r\n" + mailbox.HeaderFeedID + ": 11@example.test\r\n\r\n1@example.test\r\n"
	_, err = session.PutMessage(folder, mailbox.MessageProperties{}, strings.NewReader(message))
	require.NoError(t, err)

	found, err = gate.Exists(folder, "11@example.test")
	require.NoError(t, err)
	assert.True(t, found)

	// neither a substring of the header nor the body
	found, err = gate.Exists(folder, "1@example.test")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDedupGateWithoutSession(t *testing.T) {
	session := newTestSession(t, newFaultyBackend("."))
	require.NoError(t, session.Logout())

	var stateErr *lib.SessionStateError
	_, err := NewDedupGate(session, nil).Exists(mailbox.Info{Name: "News"}, "1")
	assert.ErrorAs(t, err, &stateErr)
}

func TestDedupGateKeepsFolderSelected(t *testing.T) {
	backend := newFaultyBackend(".")
	session := newTestSession(t, backend)
	gate := NewDedupGate(session, lib.NewTestLogger(t, "dedup"))
	news := mailbox.Info{Delimiter: ".", Name: "News"}
	tech := mailbox.Info{Delimiter: ".", Name: "Tech"}
	require.NoError(t, session.CreateMailbox(news))
	require.NoError(t, session.CreateMailbox(tech))
	existCalls := backend.existCalls

	for _, id := range []string{"1@example.test", "2@example.test", "3@example.test"} {
		found, err := gate.Exists(news, id)
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, existCalls+1, backend.existCalls)
	assert.Equal(t, 1, backend.selectCalls)
	assert.Equal(t, 0, backend.unselectCalls)

	// another folder
	_, err := gate.Exists(tech, "1@example.test")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.selectCalls)
	assert.Equal(t, 1, backend.unselectCalls)

	gate.Close()
	gate.Close()
	assert.Equal(t, 2, backend.unselectCalls)
}
