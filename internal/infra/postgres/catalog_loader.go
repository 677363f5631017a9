package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"character-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// CatalogLoader loads characters and their questions from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadQuestionBank(ctx context.Context, characterID string) (domain.QuestionBank, error) {
	var bank domain.QuestionBank
	err := l.pool.QueryRow(ctx,
		`SELECT id, name, difficulty FROM characters WHERE id=$1`, characterID,
	).Scan(&bank.Character.ID, &bank.Character.Name, &bank.Character.Difficulty)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionBank{}, fmt.Errorf("%w: %s", domain.ErrCharacterNotFound, characterID)
	}
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load character: %w", err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT id, kind, prompt, options, correct_answer_index,
		       COALESCE(correct_answer_text, ''), accepted_answers, strict,
		       difficulty, COALESCE(explanation, '')
		FROM questions
		WHERE character_id=$1
		ORDER BY position, id`, characterID)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		q := domain.Question{CharacterID: characterID}
		var options, accepted []byte
		if err := rows.Scan(&q.ID, &q.Kind, &q.Prompt, &options, &q.CorrectAnswerIndex,
			&q.CorrectAnswerText, &accepted, &q.Strict, &q.Difficulty, &q.Explanation); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("scan question: %w", err)
		}
		if err := unmarshalList(options, &q.Options); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("question %s options: %w", q.ID, err)
		}
		if err := unmarshalList(accepted, &q.AcceptedAnswers); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("question %s accepted answers: %w", q.ID, err)
		}
		bank.Questions = append(bank.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load questions: %w", err)
	}
	return bank, nil
}

func unmarshalList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
