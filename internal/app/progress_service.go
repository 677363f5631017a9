package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"character-quiz-service/internal/domain"
)

// ProgressService tracks level unlocks per user and character, and the
// aggregate stats fed by completed sessions.
type ProgressService struct {
	progress ProgressRepository
	stats    StatsRepository
	now      func() time.Time
}

func NewProgressService(progress ProgressRepository, stats StatsRepository) *ProgressService {
	return &ProgressService{progress: progress, stats: stats, now: time.Now}
}

// WithClock swaps the time source for tests.
func (s *ProgressService) WithClock(now func() time.Time) *ProgressService {
	s.now = now
	return s
}

// GetOrCreate returns the user's progress, creating it on first access.
func (s *ProgressService) GetOrCreate(ctx context.Context, userID string) (domain.UserProgress, error) {
	if userID == "" {
		return domain.UserProgress{}, domain.ErrMissingIdentity
	}
	progress, err := s.progress.Get(ctx, userID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, domain.ErrProgressNotFound) {
		return domain.UserProgress{}, err
	}
	return s.progress.Update(ctx, userID, func(p *domain.UserProgress) error {
		s.initialize(p, userID, s.now())
		return nil
	})
}

// SelectCharacter makes characterID the only selected character, creating its
// level template when the user has never played it.
func (s *ProgressService) SelectCharacter(ctx context.Context, userID, characterID, name string) (domain.UserProgress, error) {
	if userID == "" || characterID == "" {
		return domain.UserProgress{}, domain.ErrMissingIdentity
	}
	return s.progress.Update(ctx, userID, func(p *domain.UserProgress) error {
		now := s.now()
		s.initialize(p, userID, now)
		for i := range p.Characters {
			p.Characters[i].IsSelected = false
		}
		c := ensureCharacter(p, characterID, name)
		c.IsSelected = true
		p.CurrentCharacter = characterID
		p.UpdatedAt = now
		return checkSelection(p)
	})
}

// CompleteLevel records an attempt at a level. Every call counts as a game
// played and adds score to TotalScore, including unfinished attempts; only
// completed attempts update BestScore and unlock the next level.
func (s *ProgressService) CompleteLevel(ctx context.Context, userID, characterID string, level, score int, completed bool) (domain.UserProgress, error) {
	if userID == "" || characterID == "" {
		return domain.UserProgress{}, domain.ErrMissingIdentity
	}
	if !domain.ValidLevel(level) {
		return domain.UserProgress{}, fmt.Errorf("%w: got %d", domain.ErrInvalidLevel, level)
	}
	if score < 0 {
		return domain.UserProgress{}, fmt.Errorf("%w: got %d", domain.ErrInvalidScore, score)
	}

	return s.progress.Update(ctx, userID, func(p *domain.UserProgress) error {
		now := s.now()
		s.initialize(p, userID, now)
		c := ensureCharacter(p, characterID, "")

		entry := c.Level(level)
		entry.Attempts++
		if completed {
			entry.IsCompleted = true
			entry.CompletedAt = &now
			if score > entry.BestScore {
				entry.BestScore = score
			}
			if level < domain.MaxLevel {
				c.Level(level + 1).IsUnlocked = true
				if p.CurrentCharacter == characterID && p.CurrentLevel < level+1 {
					p.CurrentLevel = level + 1
				}
			}
			p.TotalGamesCompleted++
		}

		p.TotalGamesPlayed++
		p.TotalScore += score
		p.UpdatedAt = now
		return checkSelection(p)
	})
}

// AvailableLevels returns the character's levels, or the default template when
// the user never played it. The template is not persisted.
func (s *ProgressService) AvailableLevels(ctx context.Context, userID, characterID string) ([domain.MaxLevel]domain.LevelProgress, error) {
	progress, err := s.progress.Get(ctx, userID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return domain.DefaultLevels(), nil
	}
	if err != nil {
		return [domain.MaxLevel]domain.LevelProgress{}, err
	}
	if c := progress.Character(characterID); c != nil {
		return c.Levels, nil
	}
	return domain.DefaultLevels(), nil
}

// RecordCompletion folds a completed session into the user's aggregate stats.
func (s *ProgressService) RecordCompletion(ctx context.Context, event domain.CompletionEvent) (domain.UserStats, error) {
	return s.stats.Update(ctx, event.UserID, func(st *domain.UserStats) error {
		at := event.CompletedAt
		if at.IsZero() {
			at = s.now()
		}
		if st.UserID == "" {
			st.UserID = event.UserID
			st.ScoreReachedAt = at
		}
		st.TotalScore += event.Score
		if event.Score > 0 {
			st.ScoreReachedAt = at
		}
		if event.Score > st.HighestScore {
			st.HighestScore = event.Score
		}
		st.GamesPlayed++
		st.Experience += event.ExperienceGained
		st.UpdatedAt = at
		return nil
	})
}

// Stats returns the user's aggregate; users who never completed a session get zeroes.
func (s *ProgressService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	st, err := s.stats.Get(ctx, userID)
	if errors.Is(err, domain.ErrStatsNotFound) {
		return domain.UserStats{UserID: userID}, nil
	}
	return st, err
}

func (s *ProgressService) initialize(p *domain.UserProgress, userID string, now time.Time) {
	if p.UserID == "" {
		*p = domain.NewUserProgress(userID, now)
	}
}

func ensureCharacter(p *domain.UserProgress, characterID, name string) *domain.CharacterProgress {
	if c := p.Character(characterID); c != nil {
		if name != "" {
			c.Name = name
		}
		return c
	}
	p.Characters = append(p.Characters, domain.CharacterProgress{
		CharacterID: characterID,
		Name:        name,
		Levels:      domain.DefaultLevels(),
	})
	return &p.Characters[len(p.Characters)-1]
}

func checkSelection(p *domain.UserProgress) error {
	selected := 0
	for _, c := range p.Characters {
		if c.IsSelected {
			selected++
		}
	}
	if selected > 1 {
		log.Printf("user %s: %d characters selected", p.UserID, selected)
		return fmt.Errorf("%w: user %s", domain.ErrMultipleSelected, p.UserID)
	}
	return nil
}
