package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// UserStore implements domain.UserRepository backed by SQLite.
type UserStore struct {
	q querier
}

// NewUserStore creates a user store over db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{q: db}
}

const userColumns = `id, name, field, role, current_rating, category_stats,
	weak_categories, completed_diagnostic, created_at, updated_at`

// FindByID retrieves a user.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// FindForUpdate reads the user inside the current transaction. SQLite has a
// single writer connection, so the surrounding transaction already excludes
// concurrent writers.
func (s *UserStore) FindForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return s.FindByID(ctx, id)
}

// Create inserts a user, leaving an existing row untouched.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	stats, weak, err := marshalUserJSON(u)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		u.ID, u.Name, string(u.Field), string(u.Role), u.CurrentRating,
		stats, weak, boolToInt(u.CompletedDiagnostic),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Save upserts a user.
func (s *UserStore) Save(ctx context.Context, u *domain.User) error {
	stats, weak, err := marshalUserJSON(u)
	if err != nil {
		return err
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, field=excluded.field, role=excluded.role,
			current_rating=excluded.current_rating,
			category_stats=excluded.category_stats,
			weak_categories=excluded.weak_categories,
			completed_diagnostic=excluded.completed_diagnostic,
			updated_at=excluded.updated_at`,
		u.ID, u.Name, string(u.Field), string(u.Role), u.CurrentRating,
		stats, weak, boolToInt(u.CompletedDiagnostic),
		u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func marshalUserJSON(u *domain.User) (stats, weak string, err error) {
	statsJSON, err := json.Marshal(u.CategoryStats)
	if err != nil {
		return "", "", fmt.Errorf("marshal category_stats: %w", err)
	}
	categories := u.WeakCategories
	if categories == nil {
		categories = []domain.Category{}
	}
	weakJSON, err := json.Marshal(categories)
	if err != nil {
		return "", "", fmt.Errorf("marshal weak_categories: %w", err)
	}
	return string(statsJSON), string(weakJSON), nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u                   domain.User
		field, role         string
		statsJSON, weakJSON string
		diagnostic          int
	)
	err := row.Scan(&u.ID, &u.Name, &field, &role, &u.CurrentRating,
		&statsJSON, &weakJSON, &diagnostic, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Field = domain.Field(field)
	u.Role = domain.Role(role)
	u.CompletedDiagnostic = diagnostic != 0
	if err := json.Unmarshal([]byte(statsJSON), &u.CategoryStats); err != nil {
		return nil, fmt.Errorf("unmarshal category_stats: %w", err)
	}
	if u.CategoryStats == nil {
		u.CategoryStats = make(map[domain.Category]domain.CategoryTally)
	}
	if err := json.Unmarshal([]byte(weakJSON), &u.WeakCategories); err != nil {
		return nil, fmt.Errorf("unmarshal weak_categories: %w", err)
	}
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
