package domain

import (
	"fmt"
	"time"
)

// Difficulty is the tier a question's points are derived from.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Points returns the score awarded for a correct answer at this tier.
func (d Difficulty) Points() int {
	switch d {
	case DifficultyHard:
		return 30
	case DifficultyMedium:
		return 20
	default:
		return 10
	}
}

// QuestionKind distinguishes option-picking from free-text questions.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindEssay          QuestionKind = "essay"
)

// OptionCount is the fixed number of options on a multiple choice question.
const OptionCount = 4

// Character is a playable persona that owns a pool of questions.
type Character struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Difficulty Difficulty `json:"difficulty"`
}

// Question models either a four-option MCQ or an essay question.
type Question struct {
	ID                 string       `json:"id"`
	CharacterID        string       `json:"characterId"`
	Kind               QuestionKind `json:"kind"`
	Prompt             string       `json:"prompt"`
	Options            []string     `json:"options,omitempty"`
	CorrectAnswerIndex int          `json:"correctAnswerIndex"`
	CorrectAnswerText  string       `json:"correctAnswerText,omitempty"`
	AcceptedAnswers    []string     `json:"acceptedAnswers,omitempty"`
	Strict             bool         `json:"strict,omitempty"`
	Difficulty         Difficulty   `json:"difficulty"`
	Explanation        string       `json:"explanation,omitempty"`
}

// Points is derived from the difficulty tier.
func (q Question) Points() int {
	return q.Difficulty.Points()
}

// Validate checks the question has the shape its kind requires.
func (q Question) Validate() error {
	switch q.Kind {
	case KindMultipleChoice:
		if len(q.Options) != OptionCount {
			return fmt.Errorf("%w: question %s has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
		}
		if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= OptionCount {
			return fmt.Errorf("%w: question %s correct index %d", ErrInvalidQuestion, q.ID, q.CorrectAnswerIndex)
		}
	case KindEssay:
		if q.CorrectAnswerText == "" {
			return fmt.Errorf("%w: essay %s has no reference answer", ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %s has kind %q", ErrInvalidQuestion, q.ID, q.Kind)
	}
	return nil
}

// Public strips answer data so the question can be shown to players.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:      q.ID,
		Kind:    q.Kind,
		Prompt:  q.Prompt,
		Options: q.Options,
		Points:  q.Points(),
	}
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	ID      string       `json:"id"`
	Kind    QuestionKind `json:"kind"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Points  int          `json:"points"`
}

// QuestionBank is a character with its question pool.
type QuestionBank struct {
	Character Character  `json:"character"`
	Questions []Question `json:"questions"`
}

// Question looks up a question by ID.
func (b QuestionBank) Question(id string) (Question, bool) {
	for _, q := range b.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// Answer is the submitted value: an option index or a free text.
type Answer struct {
	Index *int   `json:"index,omitempty"`
	Text  string `json:"text,omitempty"`
}

// IndexAnswer builds a multiple choice answer.
func IndexAnswer(i int) Answer {
	return Answer{Index: &i}
}

// TextAnswer builds an essay answer.
func TextAnswer(s string) Answer {
	return Answer{Text: s}
}

// AnswerSubmission models the scoring signal from clients.
type AnswerSubmission struct {
	QuestionID string
	Answer     Answer
	TimeSpent  time.Duration
}

// AnswerRecord is one entry of a session ledger.
type AnswerRecord struct {
	QuestionID   string        `json:"questionId"`
	Answer       Answer        `json:"answer"`
	IsCorrect    bool          `json:"isCorrect"`
	PointsEarned int           `json:"pointsEarned"`
	TimeSpent    time.Duration `json:"timeSpent"`
	AnsweredAt   time.Time     `json:"answeredAt"`
}

// CorrectAnswer tells the player what the expected answer was.
type CorrectAnswer struct {
	Index       *int   `json:"index,omitempty"`
	Text        string `json:"text"`
	Explanation string `json:"explanation,omitempty"`
}

// Verdict is the outcome of validating one answer.
type Verdict struct {
	IsCorrect     bool          `json:"isCorrect"`
	PointsEarned  int           `json:"pointsEarned"`
	CorrectAnswer CorrectAnswer `json:"correctAnswer"`
	Similarity    int           `json:"similarity,omitempty"`
	Confidence    int           `json:"confidence,omitempty"`
}
