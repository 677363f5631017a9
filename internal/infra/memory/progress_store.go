package memory

import (
	"context"
	"sort"
	"sync"

	"character-quiz-service/internal/domain"
)

// userLocks hands out one mutex per user so read-modify-write cycles on the
// same user are serialized.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ProgressStore is an in-memory implementation of app.ProgressRepository.
type ProgressStore struct {
	users userLocks

	mu       sync.RWMutex
	progress map[string]domain.UserProgress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{progress: make(map[string]domain.UserProgress)}
}

func (s *ProgressStore) Get(_ context.Context, userID string) (domain.UserProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progress[userID]
	if !ok {
		return domain.UserProgress{}, domain.ErrProgressNotFound
	}
	return p.Clone(), nil
}

func (s *ProgressStore) Update(_ context.Context, userID string, fn func(*domain.UserProgress) error) (domain.UserProgress, error) {
	unlock := s.users.lock(userID)
	defer unlock()

	s.mu.RLock()
	draft := s.progress[userID].Clone()
	s.mu.RUnlock()

	if err := fn(&draft); err != nil {
		return domain.UserProgress{}, err
	}

	s.mu.Lock()
	s.progress[userID] = draft
	s.mu.Unlock()
	return draft.Clone(), nil
}

// StatsStore is an in-memory implementation of app.StatsRepository.
type StatsStore struct {
	users userLocks

	mu    sync.RWMutex
	stats map[string]domain.UserStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[string]domain.UserStats)}
}

func (s *StatsStore) Get(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	return st, nil
}

func (s *StatsStore) Update(_ context.Context, userID string, fn func(*domain.UserStats) error) (domain.UserStats, error) {
	unlock := s.users.lock(userID)
	defer unlock()

	s.mu.RLock()
	draft := s.stats[userID]
	s.mu.RUnlock()

	if err := fn(&draft); err != nil {
		return domain.UserStats{}, err
	}

	s.mu.Lock()
	s.stats[userID] = draft
	s.mu.Unlock()
	return draft, nil
}

// Top returns the best limit users plus anyone tied with the last of them.
func (s *StatsStore) Top(_ context.Context, limit int) ([]domain.UserStats, error) {
	s.mu.RLock()
	all := make([]domain.UserStats, 0, len(s.stats))
	for _, st := range s.stats {
		all = append(all, st)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].TotalScore > all[j].TotalScore
	})
	if limit <= 0 || len(all) <= limit {
		return all, nil
	}
	cut := limit
	for cut < len(all) && all[cut].TotalScore == all[limit-1].TotalScore {
		cut++
	}
	return all[:cut], nil
}
