package app

import (
	"context"

	"character-quiz-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, etc).
//
// Update applies fn as one atomic read-modify-write on a single session: fn sees
// the latest committed state, and an error from fn leaves the stored session
// untouched. This is what keeps one ledger entry per question under concurrent
// submissions.
type SessionRepository interface {
	// GetOrCreateActive returns the Active session for the pair, or stores the
	// result of create. The bool reports whether a session was created.
	GetOrCreateActive(ctx context.Context, userID, characterID string, create func() domain.Session) (domain.Session, bool, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	Update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error)
}

// QuestionRepository loads question banks (from cache/backing store).
type QuestionRepository interface {
	GetQuestionBank(ctx context.Context, characterID string) (domain.QuestionBank, error)
}

// ProgressRepository persists UserProgress records. Update hands fn a zero value
// when the user has no record yet; the service initializes it.
type ProgressRepository interface {
	Get(ctx context.Context, userID string) (domain.UserProgress, error)
	Update(ctx context.Context, userID string, fn func(*domain.UserProgress) error) (domain.UserProgress, error)
}

// StatsRepository persists per-user aggregates and serves leaderboard candidates.
type StatsRepository interface {
	Get(ctx context.Context, userID string) (domain.UserStats, error)
	Update(ctx context.Context, userID string, fn func(*domain.UserStats) error) (domain.UserStats, error)
	// Top returns at least the best limit users by TotalScore, plus every user tied
	// with the last of them, in any order.
	Top(ctx context.Context, limit int) ([]domain.UserStats, error)
}
