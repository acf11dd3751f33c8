package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// InterviewStore implements domain.InterviewRepository backed by SQLite.
type InterviewStore struct {
	q querier
}

// NewInterviewStore creates an interview store over db.
func NewInterviewStore(db *DB) *InterviewStore {
	return &InterviewStore{q: db}
}

const interviewColumns = `id, user_id, problem_id, field, status, transcript, scores,
	performance_score, strengths, weaknesses, key_mistakes, recommendations, report,
	rating_delta, duration_sec, created_at, completed_at`

// Create inserts a new in-progress interview.
func (s *InterviewStore) Create(ctx context.Context, iv *domain.Interview) error {
	transcript, err := json.Marshal(iv.Transcript)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if iv.Transcript == nil {
		transcript = []byte("[]")
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO interviews (id, user_id, problem_id, field, status, transcript, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
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
	row := s.q.QueryRowContext(ctx, "SELECT "+interviewColumns+" FROM interviews WHERE id = ?", id)
	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInterviewNotFound
	}
	return iv, err
}

// ListByUser returns the user's interviews, newest first.
func (s *InterviewStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Interview, error) {
	query := "SELECT " + interviewColumns + " FROM interviews WHERE user_id = ? ORDER BY created_at DESC, id"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
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

// AppendTranscript appends entries with one statement each so concurrent
// appends never overwrite one another.
func (s *InterviewStore) AppendTranscript(ctx context.Context, id string, entries ...domain.TranscriptEntry) error {
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal transcript entry: %w", err)
		}
		result, err := s.q.ExecContext(ctx, `
			UPDATE interviews SET transcript = json_insert(transcript, '$[#]', json(?))
			WHERE id = ? AND status = 'in_progress'`, string(data), id)
		if err != nil {
			return fmt.Errorf("append transcript: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return s.missingOr(ctx, id, domain.ErrInterviewCompleted)
		}
	}
	return nil
}

// SetProblem points an in-progress interview at a new problem.
func (s *InterviewStore) SetProblem(ctx context.Context, id, problemID string) error {
	result, err := s.q.ExecContext(ctx,
		"UPDATE interviews SET problem_id = ? WHERE id = ? AND status = 'in_progress'", problemID, id)
	if err != nil {
		return fmt.Errorf("set interview problem: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
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

	result, err := s.q.ExecContext(ctx, `
		UPDATE interviews SET
			status = 'completed', scores = ?, performance_score = ?,
			strengths = ?, weaknesses = ?, key_mistakes = ?, recommendations = ?,
			report = ?, rating_delta = ?, duration_sec = ?, completed_at = ?
		WHERE id = ? AND status = 'in_progress'`,
		string(scores), c.PerformanceScore,
		lists[0], lists[1], lists[2], lists[3],
		string(report), c.RatingDelta, c.DurationSec, c.CompletedAt,
		id,
	)
	if err != nil {
		return fmt.Errorf("complete interview: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return s.missingOr(ctx, id, domain.ErrAlreadyFinalized)
	}
	return nil
}

// missingOr distinguishes a missing interview from one in the wrong state.
func (s *InterviewStore) missingOr(ctx context.Context, id string, stateErr error) error {
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM interviews WHERE id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("check interview: %w", err)
	}
	if n == 0 {
		return domain.ErrInterviewNotFound
	}
	return stateErr
}

func scanInterview(row scanner) (*domain.Interview, error) {
	var (
		iv                                  domain.Interview
		field, status, transcript           string
		scores, report                      sql.NullString
		strengths, weaknesses, mistakes, rc string
		completedAt                         sql.NullTime
	)
	err := row.Scan(&iv.ID, &iv.UserID, &iv.ProblemID, &field, &status, &transcript, &scores,
		&iv.PerformanceScore, &strengths, &weaknesses, &mistakes, &rc, &report,
		&iv.RatingDelta, &iv.DurationSec, &iv.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan interview: %w", err)
	}

	iv.Field = domain.Field(field)
	iv.Status = domain.InterviewStatus(status)
	if err := json.Unmarshal([]byte(transcript), &iv.Transcript); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	for dst, src := range map[*[]string]string{
		&iv.Strengths:       strengths,
		&iv.Weaknesses:      weaknesses,
		&iv.KeyMistakes:     mistakes,
		&iv.Recommendations: rc,
	} {
		if err := json.Unmarshal([]byte(src), dst); err != nil {
			return nil, fmt.Errorf("unmarshal feedback list: %w", err)
		}
	}
	if scores.Valid {
		iv.Scores = &domain.Scores{}
		if err := json.Unmarshal([]byte(scores.String), iv.Scores); err != nil {
			return nil, fmt.Errorf("unmarshal scores: %w", err)
		}
	}
	if report.Valid {
		iv.Report = &domain.Report{}
		if err := json.Unmarshal([]byte(report.String), iv.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		iv.CompletedAt = &t
	}
	return &iv, nil
}
