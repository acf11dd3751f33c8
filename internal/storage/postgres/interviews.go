package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// InterviewStore implements domain.InterviewRepository backed by PostgreSQL.
type InterviewStore struct {
	q querier
}

const interviewColumns = `id, user_id, problem_id, field, status, transcript, scores,
	performance_score, strengths, weaknesses, key_mistakes, recommendations, report,
	rating_delta, duration_sec, created_at, completed_at`

// Create inserts a new in-progress interview.
func (s *InterviewStore) Create(ctx context.Context, iv *domain.Interview) error {
	entries := iv.Transcript
	if entries == nil {
		entries = []domain.TranscriptEntry{}
	}
	transcript, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO interviews (id, user_id, problem_id, field, status, transcript, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		iv.ID, iv.UserID, iv.ProblemID, string(iv.Field), string(iv.Status),
		string(transcript), iv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}
	return nil
}

// FindByID retrieves an interview.
func (s *InterviewStore) FindByID(ctx context.Context, id string) (*domain.Interview, error) {
	iv, err := scanInterview(s.q.QueryRow(ctx, "SELECT "+interviewColumns+" FROM interviews WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrInterviewNotFound
	}
	return iv, err
}

// ListByUser returns the user's interviews, newest first.
func (s *InterviewStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Interview, error) {
	query := "SELECT " + interviewColumns + " FROM interviews WHERE user_id = $1 ORDER BY created_at DESC, id"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interviews: %w", err)
	}
	defer rows.Close()

	interviews := make([]*domain.Interview, 0)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, iv)
	}
	return interviews, rows.Err()
}

// AppendTranscript concatenates entries onto the stored array in a single
// statement, so concurrent appends never overwrite one another.
func (s *InterviewStore) AppendTranscript(ctx context.Context, id string, entries ...domain.TranscriptEntry) error {
	if len(entries) == 0 {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal transcript entries: %w", err)
	}
	tag, err := s.q.Exec(ctx, `
		UPDATE interviews SET transcript = transcript || $1::jsonb
		WHERE id = $2 AND status = 'in_progress'`, string(data), id)
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOr(ctx, id, domain.ErrInterviewCompleted)
	}
	return nil
}

// SetProblem points an in-progress interview at a new problem.
func (s *InterviewStore) SetProblem(ctx context.Context, id, problemID string) error {
	tag, err := s.q.Exec(ctx,
		"UPDATE interviews SET problem_id = $1 WHERE id = $2 AND status = 'in_progress'", problemID, id)
	if err != nil {
		return fmt.Errorf("set interview problem: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOr(ctx, id, domain.ErrInterviewCompleted)
	}
	return nil
}

// Complete performs the in_progress to completed transition exactly once.
func (s *InterviewStore) Complete(ctx context.Context, id string, c domain.Completion) error {
	scores, err := json.Marshal(c.Scores)
	if err != nil {
		return fmt.Errorf("marshal scores: %w", err)
	}
	report, err := json.Marshal(c.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	lists := make([]string, 0, 4)
	for _, l := range [][]string{c.Strengths, c.Weaknesses, c.KeyMistakes, c.Recommendations} {
		data, err := json.Marshal(nonNil(l))
		if err != nil {
			return fmt.Errorf("marshal feedback list: %w", err)
		}
		lists = append(lists, string(data))
	}

	tag, err := s.q.Exec(ctx, `
		UPDATE interviews SET
			status = 'completed', scores = $1, performance_score = $2,
			strengths = $3, weaknesses = $4, key_mistakes = $5, recommendations = $6,
			report = $7, rating_delta = $8, duration_sec = $9, completed_at = $10
		WHERE id = $11 AND status = 'in_progress'`,
		string(scores), c.PerformanceScore,
		lists[0], lists[1], lists[2], lists[3],
		string(report), c.RatingDelta, c.DurationSec, c.CompletedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("complete interview: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missingOr(ctx, id, domain.ErrAlreadyFinalized)
	}
	return nil
}

func (s *InterviewStore) missingOr(ctx context.Context, id string, stateErr error) error {
	var exists bool
	if err := s.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM interviews WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("check interview: %w", err)
	}
	if !exists {
		return domain.ErrInterviewNotFound
	}
	return stateErr
}

func scanInterview(row pgx.Row) (*domain.Interview, error) {
	var (
		iv                                  domain.Interview
		field, status                       string
		transcript, scores, report          []byte
		strengths, weaknesses, mistakes, rc []byte
		completedAt                         *time.Time
	)
	err := row.Scan(&iv.ID, &iv.UserID, &iv.ProblemID, &field, &status, &transcript, &scores,
		&iv.PerformanceScore, &strengths, &weaknesses, &mistakes, &rc, &report,
		&iv.RatingDelta, &iv.DurationSec, &iv.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan interview: %w", err)
	}

	iv.Field = domain.Field(field)
	iv.Status = domain.InterviewStatus(status)
	iv.CompletedAt = completedAt
	if err := json.Unmarshal(transcript, &iv.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	for dst, src := range map[*[]string][]byte{
		&iv.Strengths:       strengths,
		&iv.Weaknesses:      weaknesses,
		&iv.KeyMistakes:     mistakes,
		&iv.Recommendations: rc,
	} {
		if err := json.Unmarshal(src, dst); err != nil {
			return nil, fmt.Errorf("unmarshal feedback list: %w", err)
		}
	}
	if scores != nil {
		iv.Scores = &domain.Scores{}
		if err := json.Unmarshal(scores, iv.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
	}
	if report != nil {
		iv.Report = &domain.Report{}
		if err := json.Unmarshal(report, iv.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}
	return &iv, nil
}

var _ domain.InterviewRepository = (*InterviewStore)(nil)
