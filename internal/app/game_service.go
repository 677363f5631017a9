package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"character-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// GameService contains the quiz session use cases.
type GameService struct {
	sessions  SessionRepository
	questions QuestionRepository
	progress  *ProgressService
	settings  GameSettings
	now       func() time.Time
}

func NewGameService(sessions SessionRepository, questions QuestionRepository, progress *ProgressService, settings GameSettings) *GameService {
	return &GameService{
		sessions:  sessions,
		questions: questions,
		progress:  progress,
		settings:  settings.normalized(),
		now:       time.Now,
	}
}

// WithClock swaps the time source; used by tests for deterministic expiry.
func (s *GameService) WithClock(now func() time.Time) *GameService {
	s.now = now
	return s
}

// AnswerOutcome is the result of an accepted submission.
type AnswerOutcome struct {
	domain.Verdict
	Session    domain.Session `json:"session"`
	Terminable bool           `json:"terminable"`
}

// CompletionSummary is returned once a session is completed.
type CompletionSummary struct {
	SessionID        string           `json:"sessionId"`
	FinalScore       int              `json:"finalScore"`
	ExperienceGained int              `json:"experienceGained"`
	CorrectAnswers   int              `json:"correctAnswers"`
	TotalQuestions   int              `json:"totalQuestions"`
	Stats            domain.UserStats `json:"userStats"`
}

// Start returns the user's Active session for the character or starts a new one.
func (s *GameService) Start(ctx context.Context, userID, characterID string) (domain.Session, error) {
	if userID == "" || characterID == "" {
		return domain.Session{}, domain.ErrMissingIdentity
	}

	// Users cannot start unknown characters; this also warms the bank cache.
	bank, err := s.questions.GetQuestionBank(ctx, characterID)
	if err != nil {
		return domain.Session{}, err
	}
	plan := planQuestions(bank, s.settings.MaxQuestions)
	if len(plan) == 0 {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrNoQuestions, characterID)
	}

	session, created, err := s.sessions.GetOrCreateActive(ctx, userID, characterID, func() domain.Session {
		return domain.Session{
			ID:             uuid.NewString(),
			UserID:         userID,
			CharacterID:    characterID,
			Status:         domain.StatusActive,
			QuestionIDs:    plan,
			TotalQuestions: len(plan),
			Answers:        []domain.AnswerRecord{},
			Lives:          s.settings.MaxLives,
			MaxLives:       s.settings.MaxLives,
			TimeLimit:      s.settings.TimeLimit,
			StartedAt:      s.now(),
		}
	})
	if err != nil {
		return domain.Session{}, err
	}
	if created {
		log.Printf("session %s started: user=%s character=%s questions=%d", session.ID, userID, characterID, session.TotalQuestions)
	}
	return session, nil
}

// Get returns a snapshot of a session owned by userID.
func (s *GameService) Get(ctx context.Context, userID, sessionID string) (domain.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.UserID != userID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// IsExpired reports whether the session ran past its time limit. Callers poll
// this; nothing inside the engine times sessions out.
func (s *GameService) IsExpired(session domain.Session) bool {
	return session.IsExpired(s.now())
}

// TimeRemaining is how long the session has left before it expires.
func (s *GameService) TimeRemaining(session domain.Session) time.Duration {
	return session.TimeRemaining(s.now())
}

// NextQuestion returns the first planned question the session has not answered.
// done is true when every planned question has an answer.
func (s *GameService) NextQuestion(ctx context.Context, userID, sessionID string) (q domain.PublicQuestion, done bool, err error) {
	session, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return domain.PublicQuestion{}, false, err
	}
	if session.Status != domain.StatusActive {
		return domain.PublicQuestion{}, false, domain.ErrSessionClosed
	}
	bank, err := s.questions.GetQuestionBank(ctx, session.CharacterID)
	if err != nil {
		return domain.PublicQuestion{}, false, err
	}
	for _, id := range session.QuestionIDs {
		if session.Answered(id) {
			continue
		}
		question, ok := bank.Question(id)
		if !ok {
			return domain.PublicQuestion{}, false, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, id)
		}
		return question.Public(), false, nil
	}
	return domain.PublicQuestion{}, true, nil
}

// SubmitAnswer validates an answer and records it in the session ledger.
// It never completes the session, even when no questions, lives or time remain;
// the caller checks Terminable and calls Complete.
//
// Session state is checked before the answer itself, so a resubmission is a
// conflict and a closed session is not found whatever the payload holds.
func (s *GameService) SubmitAnswer(ctx context.Context, userID, sessionID string, submission domain.AnswerSubmission) (AnswerOutcome, error) {
	current, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	bank, err := s.questions.GetQuestionBank(ctx, current.CharacterID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	var (
		now     time.Time
		verdict domain.Verdict
	)
	updated, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		if session.UserID != userID {
			return domain.ErrSessionNotFound
		}
		if session.Status != domain.StatusActive {
			return domain.ErrSessionClosed
		}
		if session.Answered(submission.QuestionID) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAnswer, submission.QuestionID)
		}
		now = s.now()
		if session.IsExpired(now) {
			return domain.ErrSessionExpired
		}
		if !session.Planned(submission.QuestionID) {
			return fmt.Errorf("%w: %s", domain.ErrQuestionNotInPlan, submission.QuestionID)
		}
		question, ok := bank.Question(submission.QuestionID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, submission.QuestionID)
		}
		if question.CharacterID != "" && question.CharacterID != session.CharacterID {
			return fmt.Errorf("%w: %s", domain.ErrCharacterMismatch, submission.QuestionID)
		}

		var err error
		verdict, err = ValidateAnswer(question, submission.Answer)
		if err != nil {
			return err
		}
		// Answers at zero lives are still recorded; lives stay at zero.
		return applyAnswer(session, domain.AnswerRecord{
			QuestionID:   submission.QuestionID,
			Answer:       submission.Answer,
			IsCorrect:    verdict.IsCorrect,
			PointsEarned: verdict.PointsEarned,
			TimeSpent:    submission.TimeSpent,
			AnsweredAt:   now,
		})
	})
	if err != nil {
		return AnswerOutcome{}, err
	}

	return AnswerOutcome{
		Verdict:    verdict,
		Session:    updated,
		Terminable: updated.Terminable(now),
	}, nil
}

// Complete moves an Active session to Completed and forwards the result to the
// user's aggregate stats.
func (s *GameService) Complete(ctx context.Context, userID, sessionID string) (CompletionSummary, error) {
	completed, err := s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		if session.UserID != userID {
			return domain.ErrSessionNotFound
		}
		if session.Status != domain.StatusActive {
			return domain.ErrSessionClosed
		}
		if err := checkLedger(*session); err != nil {
			return err
		}
		now := s.now()
		session.Status = domain.StatusCompleted
		session.CompletedAt = &now
		return nil
	})
	if err != nil {
		return CompletionSummary{}, err
	}

	summary := CompletionSummary{
		SessionID:        completed.ID,
		FinalScore:       completed.Score,
		ExperienceGained: experienceFor(completed.Score),
		CorrectAnswers:   completed.CorrectAnswers(),
		TotalQuestions:   completed.TotalQuestions,
	}
	log.Printf("session %s completed: user=%s score=%d correct=%d/%d", completed.ID, userID, summary.FinalScore, summary.CorrectAnswers, summary.TotalQuestions)

	stats, err := s.progress.RecordCompletion(ctx, domain.CompletionEvent{
		UserID:           userID,
		CharacterID:      completed.CharacterID,
		Score:            completed.Score,
		ExperienceGained: summary.ExperienceGained,
		CompletedAt:      *completed.CompletedAt,
	})
	if err != nil {
		log.Printf("session %s: record completion stats: %v", completed.ID, err)
		return summary, fmt.Errorf("record completion: %w", err)
	}
	summary.Stats = stats
	return summary, nil
}

// Abandon moves an Active session to Abandoned without touching stats.
func (s *GameService) Abandon(ctx context.Context, userID, sessionID string) (domain.Session, error) {
	return s.sessions.Update(ctx, sessionID, func(session *domain.Session) error {
		if session.UserID != userID {
			return domain.ErrSessionNotFound
		}
		if session.Status != domain.StatusActive {
			return domain.ErrSessionClosed
		}
		session.Status = domain.StatusAbandoned
		return nil
	})
}

// experienceFor is a tenth of the score, rounded down.
func experienceFor(score int) int {
	if score <= 0 {
		return 0
	}
	return score / 10
}
