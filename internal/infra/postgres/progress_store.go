package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"character-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type progressRow struct {
	bun.BaseModel `bun:"table:user_progress"`

	UserID     string              `bun:"user_id,pk"`
	Data       domain.UserProgress `bun:"data,type:jsonb"`
	TotalScore int                 `bun:"total_score"`
	UpdatedAt  time.Time           `bun:"updated_at"`
}

// ProgressStore persists UserProgress as a JSONB document per user. Updates
// lock the row for the duration of the transaction.
type ProgressStore struct {
	db *bun.DB
}

func NewProgressStore(db *bun.DB) *ProgressStore {
	return &ProgressStore{db: db}
}

func (s *ProgressStore) Get(ctx context.Context, userID string) (domain.UserProgress, error) {
	var row progressRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.UserProgress{}, domain.ErrProgressNotFound
	}
	if err != nil {
		return domain.UserProgress{}, fmt.Errorf("load progress: %w", err)
	}
	if row.Data.UserID == "" {
		// Placeholder left by an in-flight first write.
		return domain.UserProgress{}, domain.ErrProgressNotFound
	}
	return row.Data, nil
}

func (s *ProgressStore) Update(ctx context.Context, userID string, fn func(*domain.UserProgress) error) (domain.UserProgress, error) {
	var out domain.UserProgress
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Make sure a row exists so concurrent first writes queue on the same lock.
		if _, err := tx.NewInsert().
			Model(&progressRow{UserID: userID, UpdatedAt: time.Now()}).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("ensure progress row: %w", err)
		}

		var row progressRow
		if err := tx.NewSelect().Model(&row).Where("user_id = ?", userID).For("UPDATE").Scan(ctx); err != nil {
			return fmt.Errorf("lock progress: %w", err)
		}

		draft := row.Data
		if err := fn(&draft); err != nil {
			return err
		}

		row.Data = draft
		row.TotalScore = draft.TotalScore
		row.UpdatedAt = draft.UpdatedAt
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = time.Now()
		}
		if _, err := tx.NewUpdate().Model(&row).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		out = draft
		return nil
	})
	if err != nil {
		return domain.UserProgress{}, err
	}
	return out, nil
}
