package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// AttemptStore implements the append-only domain.AttemptRepository.
type AttemptStore struct {
	q querier
}

// NewAttemptStore creates an attempt store over db.
func NewAttemptStore(db *DB) *AttemptStore {
	return &AttemptStore{q: db}
}

const attemptColumns = `id, user_id, problem_id, mode, is_correct, score, time_spent_sec,
	hints_used, code, language, evaluation, category, field, rating_delta, created_at`

// Append inserts a new attempt. Existing attempts are never updated.
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

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.ProblemID, string(a.Mode), boolToInt(a.IsCorrect), a.Score,
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
	query := "SELECT " + attemptColumns + " FROM attempts WHERE user_id = ?"
	args := []any{userID}

	if f.ProblemID != "" {
		query += " AND problem_id = ?"
		args = append(args, f.ProblemID)
	}
	if f.Mode != "" {
		query += " AND mode = ?"
		args = append(args, string(f.Mode))
	}
	if f.Field != "" {
		query += " AND field = ?"
		args = append(args, string(f.Field))
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
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

func scanAttempt(row scanner) (*domain.Attempt, error) {
	var (
		a                     domain.Attempt
		mode, category, field string
		correct               int
		score                 sql.NullInt64
		evaluation            sql.NullString
	)
	err := row.Scan(&a.ID, &a.UserID, &a.ProblemID, &mode, &correct, &score, &a.TimeSpentSec,
		&a.HintsUsed, &a.Code, &a.Language, &evaluation, &category, &field,
		&a.RatingDelta, &a.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan attempt: %w", err)
	}
	a.Mode = domain.AttemptMode(mode)
	a.Category = domain.Category(category)
	a.Field = domain.Field(field)
	a.IsCorrect = correct != 0
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	if evaluation.Valid {
		a.Evaluation = &domain.CodeEvaluation{}
		if err := json.Unmarshal([]byte(evaluation.String), a.Evaluation); err != nil {
			return nil, fmt.Errorf("unmarshal evaluation: %w", err)
		}
	}
	return &a, nil
}
