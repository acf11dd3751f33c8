package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// ProblemStore implements domain.ProblemRepository backed by PostgreSQL.
type ProblemStore struct {
	q querier
}

const problemColumns = `id, title, statement, category, field, difficulty_rating, company,
	role_level, hints, solution_approach, tags, time_limit_sec, created_at`

// Save upserts a problem.
func (s *ProblemStore) Save(ctx context.Context, p *domain.Problem) error {
	hints, err := json.Marshal(nonNil(p.Hints))
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}
	tags, err := json.Marshal(nonNil(p.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	_, err = s.q.Exec(ctx, `
		INSERT INTO problems (`+problemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, statement = EXCLUDED.statement,
			category = EXCLUDED.category, field = EXCLUDED.field,
			difficulty_rating = EXCLUDED.difficulty_rating,
			company = EXCLUDED.company, role_level = EXCLUDED.role_level,
			hints = EXCLUDED.hints, solution_approach = EXCLUDED.solution_approach,
			tags = EXCLUDED.tags, time_limit_sec = EXCLUDED.time_limit_sec`,
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
	p, err := scanProblem(s.q.QueryRow(ctx, "SELECT "+problemColumns+" FROM problems WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
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
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.Field != "" {
		add("field = $%d", string(q.Field))
	}
	if q.Category != "" {
		add("category = $%d", string(q.Category))
	}
	if q.Company != "" {
		add("company = $%d", q.Company)
	}
	if q.MinRating > 0 {
		add("difficulty_rating >= $%d", q.MinRating)
	}
	if q.MaxRating > 0 {
		add("difficulty_rating <= $%d", q.MaxRating)
	}
	if q.ExcludeID != "" {
		add("id <> $%d", q.ExcludeID)
	}

	query := "SELECT " + problemColumns + " FROM problems"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY difficulty_rating, id"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.q.Query(ctx, query, args...)
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
	err := s.q.QueryRow(ctx, "SELECT COUNT(*) FROM problems").Scan(&n)
	return n, err
}

func scanProblem(row pgx.Row) (*domain.Problem, error) {
	var (
		p                   domain.Problem
		category, field     string
		hintsJSON, tagsJSON []byte
	)
	err := row.Scan(&p.ID, &p.Title, &p.Statement, &category, &field, &p.DifficultyRating,
		&p.Company, &p.RoleLevel, &hintsJSON, &p.SolutionApproach, &tagsJSON,
		&p.TimeLimitSec, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan problem: %w", err)
	}
	p.Category = domain.Category(category)
	p.Field = domain.Field(field)
	if err := json.Unmarshal(hintsJSON, &p.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &p.Tags); err != nil {
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

var _ domain.ProblemRepository = (*ProblemStore)(nil)
