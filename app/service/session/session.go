package session

import (
	"sync/atomic"
	"time"
)

type State int32

const (
	StateIdle State = iota
	StateAwaitingReply
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// Session is one interactive session. Only one ask may be in flight at a time.
type Session struct {
	ID        string
	CreatedAt time.Time

	store *Store
	state atomic.Int32
}

func NewSession(id string, createdAt time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: createdAt,
		store:     NewStore(),
	}
}

func (s *Session) Store() *Store {
	return s.store
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Begin moves the session to AwaitingReply. It reports false if an ask is already in flight.
func (s *Session) Begin() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateAwaitingReply))
}

func (s *Session) End() {
	s.state.Store(int32(StateIdle))
}
