package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
)

// QuestionLoader loads a question set's rows from Postgres, where each
// dataset is one JSONB document of normalized questions.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadRecords(ctx context.Context, datasetID string) ([]bank.Record, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE id=$1`, datasetID).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("load question set: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, fmt.Errorf("unmarshal question set: %w", err)
	}
	records := make([]bank.Record, 0, len(questions))
	for _, q := range questions {
		records = append(records, bank.Record{
			ID:            q.ID,
			Unit:          q.Unit,
			Text:          q.Text,
			CorrectAnswer: q.CorrectAnswer,
			Image:         q.Image,
			Explanation:   q.Explanation,
			Columns:       6,
		})
	}
	return records, nil
}
