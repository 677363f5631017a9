package app

import (
	"fmt"

	"character-quiz-service/internal/domain"
	"character-quiz-service/internal/textmatch"
)

// ValidateAnswer checks a submitted answer against a question and returns the
// verdict with the points earned. It has no side effects.
func ValidateAnswer(question domain.Question, answer domain.Answer) (domain.Verdict, error) {
	if err := question.Validate(); err != nil {
		return domain.Verdict{}, err
	}

	switch question.Kind {
	case domain.KindMultipleChoice:
		return validateChoice(question, answer)
	default:
		return validateEssay(question, answer)
	}
}

func validateChoice(question domain.Question, answer domain.Answer) (domain.Verdict, error) {
	if answer.Index == nil || answer.Text != "" {
		return domain.Verdict{}, fmt.Errorf("%w: question %s expects an option index", domain.ErrInvalidAnswer, question.ID)
	}
	selected := *answer.Index
	if selected < 0 || selected >= len(question.Options) {
		return domain.Verdict{}, fmt.Errorf("%w: %d not in [0,%d)", domain.ErrOptionOutOfRange, selected, len(question.Options))
	}

	correctIndex := question.CorrectAnswerIndex
	verdict := domain.Verdict{
		IsCorrect: selected == correctIndex,
		CorrectAnswer: domain.CorrectAnswer{
			Index:       &correctIndex,
			Text:        question.Options[correctIndex],
			Explanation: question.Explanation,
		},
	}
	if verdict.IsCorrect {
		verdict.PointsEarned = question.Points()
	}
	return verdict, nil
}

func validateEssay(question domain.Question, answer domain.Answer) (domain.Verdict, error) {
	if answer.Index != nil {
		return domain.Verdict{}, fmt.Errorf("%w: question %s expects a text answer", domain.ErrInvalidAnswer, question.ID)
	}

	var res textmatch.Result
	if len(question.AcceptedAnswers) > 0 {
		candidates := append([]string{question.CorrectAnswerText}, question.AcceptedAnswers...)
		res = textmatch.ValidateAgainstMultiple(answer.Text, candidates, question.Strict).Result
	} else {
		res = textmatch.Validate(answer.Text, question.CorrectAnswerText, question.Strict)
	}

	verdict := domain.Verdict{
		IsCorrect:  res.IsCorrect,
		Similarity: res.Similarity,
		Confidence: res.Confidence,
		CorrectAnswer: domain.CorrectAnswer{
			Text:        question.CorrectAnswerText,
			Explanation: question.Explanation,
		},
	}
	if verdict.IsCorrect {
		verdict.PointsEarned = question.Points()
	}
	return verdict, nil
}
