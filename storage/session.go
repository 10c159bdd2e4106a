package storage

import (
	"context"
	"io"
	"sync"

	"github.com/creativeprojects/feedme/lib"
	"github.com/creativeprojects/feedme/mailbox"
)

type SessionState int

const (
	StateNew SessionState = iota
	StateAuthenticated
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateNew:
		return "not authenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "logged out"
	default:
		return "unknown"
	}
}

// Session guards a Backend with a one-shot login/logout lifecycle.
// A session can only be logged in once: create a new one for the next run.
type Session struct {
	backend   Backend
	log       lib.Logger
	state     SessionState
	delimiter string
	mu        sync.Mutex
}

func NewSession(backend Backend, logger lib.Logger) *Session {
	return &Session{
		backend: backend,
		log:     lib.OrNoLog(logger),
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateNew {
		return &lib.SessionStateError{Op: "login", State: s.state.String()}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.backend.Login(ctx); err != nil {
		return err
	}
	s.state = StateAuthenticated
	s.delimiter = s.backend.Delimiter()
	s.log.Debugf("session authenticated, hierarchy delimiter %q", s.delimiter)
	return nil
}

// Logout closes the session. The session is closed even when the backend fails to log out.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return &lib.SessionStateError{Op: "logout", State: s.state.String()}
	}
	s.state = StateClosed
	return s.backend.Logout()
}

// Delimiter is the native hierarchy delimiter discovered at login. Empty means a flat namespace.
func (s *Session) Delimiter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delimiter
}

func (s *Session) check(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAuthenticated {
		return &lib.SessionStateError{Op: op, State: s.state.String()}
	}
	return nil
}

func (s *Session) ListMailbox() ([]mailbox.Info, error) {
	if err := s.check("list"); err != nil {
		return nil, err
	}
	return s.backend.ListMailbox()
}

func (s *Session) MailboxExists(info mailbox.Info) (bool, error) {
	if err := s.check("exists"); err != nil {
		return false, err
	}
	return s.backend.MailboxExists(info)
}

func (s *Session) CreateMailbox(info mailbox.Info) error {
	if err := s.check("create"); err != nil {
		return err
	}
	return s.backend.CreateMailbox(info)
}

func (s *Session) SelectMailbox(info mailbox.Info) (*mailbox.Status, error) {
	if err := s.check("select"); err != nil {
		return nil, err
	}
	return s.backend.SelectMailbox(info)
}

func (s *Session) UnselectMailbox() error {
	if err := s.check("unselect"); err != nil {
		return err
	}
	return s.backend.UnselectMailbox()
}

func (s *Session) SearchHeader(key, value string) ([]mailbox.MessageID, error) {
	if err := s.check("search"); err != nil {
		return nil, err
	}
	return s.backend.SearchHeader(key, value)
}

func (s *Session) PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error) {
	if err := s.check("append"); err != nil {
		return mailbox.EmptyMessageID, err
	}
	return s.backend.PutMessage(info, props, body)
}
