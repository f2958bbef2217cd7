package session

import (
	"sync"
	"time"
)

// Store holds the state of one session. Every session gets its own instance.
type Store struct {
	mu sync.RWMutex

	dueDate    *time.Time
	transcript []ChatTurn
	moodLog    []MoodEntry
}

func NewStore() *Store {
	return &Store{
		transcript: make([]ChatTurn, 0, 16),
		moodLog:    make([]MoodEntry, 0, 8),
	}
}

func (s *Store) AppendChatTurn(speaker Speaker, text string, status TurnStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transcript = append(s.transcript, ChatTurn{
		Speaker: speaker,
		Text:    text,
		Status:  status,
	})
}

func (s *Store) AppendMoodEntry(date time.Time, mood Mood) MoodEntry {
	entry := MoodEntry{Date: date, Mood: mood}

	s.mu.Lock()
	s.moodLog = append(s.moodLog, entry)
	s.mu.Unlock()

	return entry
}

func (s *Store) SetDueDate(date time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dueDate = &date
}

func (s *Store) ClearDueDate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dueDate = nil
}

func (s *Store) DueDate() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dueDate == nil {
		return time.Time{}, false
	}

	return *s.dueDate, true
}

// Transcript returns a copy of the chat turns in insertion order.
func (s *Store) Transcript() []ChatTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]ChatTurn, len(s.transcript))
	copy(copied, s.transcript)

	return copied
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Transcript: make([]ChatTurn, len(s.transcript)),
		MoodLog:    make([]MoodEntry, len(s.moodLog)),
	}
	copy(snap.Transcript, s.transcript)
	copy(snap.MoodLog, s.moodLog)

	if s.dueDate != nil {
		due := *s.dueDate
		snap.DueDate = &due
	}

	return snap
}
