package registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"pregnancyai/app/service/session"

	"github.com/google/uuid"
	"github.com/samber/do"
)

var ErrSessionNotFound = errors.New("session not found")

// Service owns every live session. Sessions never share a store.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	now      func() time.Time
}

func New(_ *do.Injector) (*Service, error) {
	return NewRegistry(time.Now), nil
}

func NewRegistry(now func() time.Time) *Service {
	return &Service{
		sessions: make(map[string]*session.Session),
		now:      now,
	}
}

func (s *Service) Create() *session.Session {
	sess := session.NewSession(uuid.NewString(), s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	total := len(s.sessions)
	s.mu.Unlock()

	slog.Info("Session created", "session", sess.ID, "total", total)

	return sess
}

func (s *Service) Get(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}

	delete(s.sessions, id)
	slog.Info("Session deleted", "session", id, "total", len(s.sessions))

	return nil
}

func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
