package memory

import (
	"context"
	"sync"

	"character-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Each session has its own mutex so writes to one session are serialized
// without blocking others.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	active   map[pairKey]string
}

type sessionEntry struct {
	mu      sync.Mutex
	session domain.Session
}

type pairKey struct {
	userID      string
	characterID string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		active:   make(map[pairKey]string),
	}
}

func (s *SessionStore) GetOrCreateActive(_ context.Context, userID, characterID string, create func() domain.Session) (domain.Session, bool, error) {
	key := pairKey{userID: userID, characterID: characterID}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.active[key]; ok {
		if entry, ok := s.sessions[id]; ok {
			entry.mu.Lock()
			current := entry.session.Clone()
			entry.mu.Unlock()
			if current.Status == domain.StatusActive {
				return current, false, nil
			}
		}
		delete(s.active, key)
	}

	session := create()
	s.sessions[session.ID] = &sessionEntry{session: session.Clone()}
	s.active[key] = session.ID
	return session, true, nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.Session, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.Clone(), nil
}

// Update runs fn on a copy and commits it only when fn succeeds.
func (s *SessionStore) Update(_ context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error) {
	entry, ok := s.entry(sessionID)
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	entry.mu.Lock()
	draft := entry.session.Clone()
	if err := fn(&draft); err != nil {
		entry.mu.Unlock()
		return domain.Session{}, err
	}
	draft.Version++
	entry.session = draft
	committed := draft.Clone()
	entry.mu.Unlock()

	if committed.Status.Terminal() {
		s.releaseActive(committed)
	}
	return committed, nil
}

func (s *SessionStore) entry(sessionID string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	return entry, ok
}

func (s *SessionStore) releaseActive(session domain.Session) {
	key := pairKey{userID: session.UserID, characterID: session.CharacterID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[key] == session.ID {
		delete(s.active, key)
	}
}
