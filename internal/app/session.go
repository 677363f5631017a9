package app

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"character-quiz-service/internal/domain"
)

// GameSettings bounds newly started sessions.
type GameSettings struct {
	MaxLives     int
	MaxQuestions int
	TimeLimit    time.Duration
}

const (
	// MaxQuestionsPerSession caps how many questions a session draws.
	MaxQuestionsPerSession = 20
	defaultMaxLives        = 3
	defaultTimeLimit       = 10 * time.Minute
)

// DefaultGameSettings returns three lives, up to 20 questions and a ten minute limit.
func DefaultGameSettings() GameSettings {
	return GameSettings{
		MaxLives:     defaultMaxLives,
		MaxQuestions: MaxQuestionsPerSession,
		TimeLimit:    defaultTimeLimit,
	}
}

func (g GameSettings) normalized() GameSettings {
	if g.MaxLives <= 0 {
		g.MaxLives = defaultMaxLives
	}
	if g.MaxQuestions <= 0 || g.MaxQuestions > MaxQuestionsPerSession {
		g.MaxQuestions = MaxQuestionsPerSession
	}
	if g.TimeLimit <= 0 {
		g.TimeLimit = defaultTimeLimit
	}
	return g
}

// planQuestions picks the playable questions of a bank in random order.
func planQuestions(bank domain.QuestionBank, limit int) []string {
	ids := make([]string, 0, len(bank.Questions))
	for _, q := range bank.Questions {
		if err := q.Validate(); err != nil {
			log.Printf("skipping question %s of character %s: %v", q.ID, bank.Character.ID, err)
			continue
		}
		ids = append(ids, q.ID)
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

// applyAnswer appends a ledger entry and updates score, cursor and lives.
func applyAnswer(session *domain.Session, record domain.AnswerRecord) error {
	session.Answers = append(session.Answers, record)
	session.Score += record.PointsEarned
	session.CurrentQuestionIndex = len(session.Answers)
	if !record.IsCorrect && session.Lives > 0 {
		session.Lives--
	}
	return checkLedger(*session)
}

// checkLedger asserts the ledger invariants. A failure means state was corrupted
// outside the public operations; it is logged and the mutation is refused.
func checkLedger(session domain.Session) error {
	seen := make(map[string]struct{}, len(session.Answers))
	sum := 0
	for _, a := range session.Answers {
		if _, dup := seen[a.QuestionID]; dup {
			log.Printf("session %s: question %s recorded twice", session.ID, a.QuestionID)
			return fmt.Errorf("%w: session %s question %s", domain.ErrLedgerDuplicate, session.ID, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
		sum += a.PointsEarned
	}
	if sum != session.Score {
		log.Printf("session %s: score %d but ledger sums to %d", session.ID, session.Score, sum)
		return fmt.Errorf("%w: session %s score %d ledger %d", domain.ErrLedgerScoreMismatch, session.ID, session.Score, sum)
	}
	return nil
}
