package app

import (
	"context"
	"sort"

	"character-quiz-service/internal/domain"
)

const (
	// DefaultLeaderboardLimit is used when callers pass a non-positive limit.
	DefaultLeaderboardLimit = 10
	// MaxLeaderboardLimit caps a single leaderboard read.
	MaxLeaderboardLimit = 100
)

// LeaderboardService ranks users by their aggregate stats.
type LeaderboardService struct {
	stats        StatsRepository
	defaultLimit int
}

func NewLeaderboardService(stats StatsRepository, defaultLimit int) *LeaderboardService {
	if defaultLimit <= 0 || defaultLimit > MaxLeaderboardLimit {
		defaultLimit = DefaultLeaderboardLimit
	}
	return &LeaderboardService{stats: stats, defaultLimit: defaultLimit}
}

// Top returns up to limit ranked entries.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]domain.RankedEntry, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	candidates, err := s.stats.Top(ctx, limit)
	if err != nil {
		return nil, err
	}
	return Rank(candidates, limit), nil
}

// Rank orders stats by total score (desc), then by who reached that score first,
// then by user ID, and numbers them 1..n. Tied users get distinct consecutive
// ranks rather than a shared one.
func Rank(stats []domain.UserStats, limit int) []domain.RankedEntry {
	sorted := make([]domain.UserStats, len(stats))
	copy(sorted, stats)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		if !sorted[i].ScoreReachedAt.Equal(sorted[j].ScoreReachedAt) {
			return sorted[i].ScoreReachedAt.Before(sorted[j].ScoreReachedAt)
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	entries := make([]domain.RankedEntry, len(sorted))
	for i, st := range sorted {
		entries[i] = domain.RankedEntry{
			Rank:         i + 1,
			UserID:       st.UserID,
			TotalScore:   st.TotalScore,
			HighestScore: st.HighestScore,
			GamesPlayed:  st.GamesPlayed,
		}
	}
	return entries
}
