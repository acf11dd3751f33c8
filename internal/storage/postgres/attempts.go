package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// AttemptStore implements the append-only domain.AttemptRepository.
type AttemptStore struct {
	q querier
}

const attemptColumns = `id, user_id, problem_id, mode, is_correct, score, time_spent_sec,
	hints_used, code, language, evaluation, category, field, rating_delta, created_at`

// Append inserts a new attempt.
func (s *AttemptStore) Append(ctx context.Context, a *domain.Attempt) error {
	var evaluation *string
	if a.Evaluation != nil {
		data, err := json.Marshal(a.Evaluation)
		if err != nil {
			return fmt.Errorf("marshal evaluation: %w", err)
		}
		v := string(data)
		evaluation = &v
	}

	_, err := s.q.Exec(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.UserID, a.ProblemID, string(a.Mode), a.IsCorrect, a.Score,
		a.TimeSpentSec, a.HintsUsed, a.Code, a.Language, evaluation,
		string(a.Category), string(a.Field), a.RatingDelta, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// ListByUser returns a user's attempts, newest first.
func (s *AttemptStore) ListByUser(ctx context.Context, userID string, f domain.AttemptFilter) ([]*domain.Attempt, error) {
	query := "SELECT " + attemptColumns + " FROM attempts WHERE user_id = $1"
	args := []any{userID}

	if f.ProblemID != "" {
		args = append(args, f.ProblemID)
		query += fmt.Sprintf(" AND problem_id = $%d", len(args))
	}
	if f.Mode != "" {
		args = append(args, string(f.Mode))
		query += fmt.Sprintf(" AND mode = $%d", len(args))
	}
	if f.Field != "" {
		args = append(args, string(f.Field))
		query += fmt.Sprintf(" AND field = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*domain.Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanAttempt(row pgx.Row) (*domain.Attempt, error) {
	var (
		a                     domain.Attempt
		mode, category, field string
		evaluation            []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &a.ProblemID, &mode, &a.IsCorrect, &a.Score, &a.TimeSpentSec,
		&a.HintsUsed, &a.Code, &a.Language, &evaluation, &category, &field,
		&a.RatingDelta, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}
	a.Mode = domain.AttemptMode(mode)
	a.Category = domain.Category(category)
	a.Field = domain.Field(field)
	if evaluation != nil {
		a.Evaluation = &domain.CodeEvaluation{}
		if err := json.Unmarshal(evaluation, a.Evaluation); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
	}
	return &a, nil
}

var _ domain.AttemptRepository = (*AttemptStore)(nil)
