package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// ProblemStore implements domain.ProblemRepository backed by SQLite.
type ProblemStore struct {
	q querier
}

// NewProblemStore creates a problem store over db.
func NewProblemStore(db *DB) *ProblemStore {
	return &ProblemStore{q: db}
}

const problemColumns = `id, title, statement, category, field, difficulty_rating,
	company, role_level, hints, solution_approach, tags, time_limit_sec, created_at`

// Save upserts a problem. Seeding the same ID twice replaces the row.
func (s *ProblemStore) Save(ctx context.Context, p *domain.Problem) error {
	hints, err := json.Marshal(nonNil(p.Hints))
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}
	tags, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO problems (`+problemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, statement=excluded.statement,
			category=excluded.category, field=excluded.field,
			difficulty_rating=excluded.difficulty_rating,
			company=excluded.company, role_level=excluded.role_level,
			hints=excluded.hints, solution_approach=excluded.solution_approach,
			tags=excluded.tags, time_limit_sec=excluded.time_limit_sec`,
		p.ID, p.Title, p.Statement, string(p.Category), string(p.Field), p.DifficultyRating,
		p.Company, p.RoleLevel, string(hints), p.SolutionApproach, string(tags),
		p.TimeLimitSec, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert problem: %w", err)
	}
	return nil
}

// FindByID retrieves a problem.
func (s *ProblemStore) FindByID(ctx context.Context, id string) (*domain.Problem, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+problemColumns+" FROM problems WHERE id = ?", id)
	p, err := scanProblem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProblemNotFound
	}
	return p, err
}

// Query returns problems matching q ordered by difficulty then ID.
func (s *ProblemStore) Query(ctx context.Context, q domain.ProblemQuery) ([]*domain.Problem, error) {
	var (
		where []string
		args  []any
	)
	if q.Field != "" {
		where = append(where, "field = ?")
		args = append(args, string(q.Field))
	}
	if q.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(q.Category))
	}
	if q.Company != "" {
		where = append(where, "company = ?")
		args = append(args, q.Company)
	}
	if q.MinRating > 0 {
		where = append(where, "difficulty_rating >= ?")
		args = append(args, q.MinRating)
	}
	if q.MaxRating > 0 {
		where = append(where, "difficulty_rating <= ?")
		args = append(args, q.MaxRating)
	}
	if q.ExcludeID != "" {
		where = append(where, "id != ?")
		args = append(args, q.ExcludeID)
	}

	query := "SELECT " + problemColumns + " FROM problems"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY difficulty_rating, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}
	defer rows.Close()

	problems := make([]*domain.Problem, 0)
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	return problems, rows.Err()
}

// Count returns the number of problems in the catalog.
func (s *ProblemStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM problems").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProblem(row scanner) (*domain.Problem, error) {
	var (
		p                   domain.Problem
		category, field     string
		hintsJSON, tagsJSON string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Statement, &category, &field, &p.DifficultyRating,
		&p.Company, &p.RoleLevel, &hintsJSON, &p.SolutionApproach, &tagsJSON,
		&p.TimeLimitSec, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan problem: %w", err)
	}
	p.Category = domain.Category(category)
	p.Field = domain.Field(field)
	if err := json.Unmarshal([]byte(hintsJSON), &p.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &p.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
