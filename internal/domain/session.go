package domain

import "time"

// SessionStatus is the lifecycle state of a quiz attempt.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Session is one quiz attempt by a user against a character's questions.
type Session struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"userId"`
	CharacterID          string         `json:"characterId"`
	Status               SessionStatus  `json:"status"`
	QuestionIDs          []string       `json:"questionIds"`
	CurrentQuestionIndex int            `json:"currentQuestionIndex"`
	TotalQuestions       int            `json:"totalQuestions"`
	Answers              []AnswerRecord `json:"answers"`
	Score                int            `json:"score"`
	Lives                int            `json:"lives"`
	MaxLives             int            `json:"maxLives"`
	TimeLimit            time.Duration  `json:"timeLimit"`
	StartedAt            time.Time      `json:"startedAt"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
	Version              int64          `json:"version"`
}

// Clone returns a deep copy so stores can hand out snapshots.
func (s Session) Clone() Session {
	out := s
	out.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	out.Answers = append([]AnswerRecord(nil), s.Answers...)
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// Answered reports whether the ledger holds the question.
func (s Session) Answered(questionID string) bool {
	for _, a := range s.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// Planned reports whether the question was drawn for this session.
func (s Session) Planned(questionID string) bool {
	for _, id := range s.QuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// CorrectAnswers counts correct ledger entries.
func (s Session) CorrectAnswers() int {
	n := 0
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// IsExpired reports whether the time limit has elapsed at now.
func (s Session) IsExpired(now time.Time) bool {
	return now.Sub(s.StartedAt) > s.TimeLimit
}

// TimeRemaining is clamped at zero.
func (s Session) TimeRemaining(now time.Time) time.Duration {
	left := s.TimeLimit - now.Sub(s.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Terminable reports whether the session may be completed because it ran out of
// questions, lives or time. The session stays Active until completed explicitly.
func (s Session) Terminable(now time.Time) bool {
	return s.CurrentQuestionIndex >= s.TotalQuestions || s.Lives <= 0 || s.TimeRemaining(now) <= 0
}
