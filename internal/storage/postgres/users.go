package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// UserStore implements domain.UserRepository backed by PostgreSQL.
type UserStore struct {
	q querier
}

const userColumns = `id, name, field, role, current_rating, category_stats,
	weak_categories, completed_diagnostic, created_at, updated_at`

// FindByID retrieves a user.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.q.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
}

// FindForUpdate reads and locks the user row until the surrounding
// transaction ends.
func (s *UserStore) FindForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(s.q.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1 FOR UPDATE", id))
}

// Create inserts a user, leaving an existing row untouched.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	stats, weak, err := marshalUserJSON(u)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Name, string(u.Field), string(u.Role), u.CurrentRating,
		stats, weak, u.CompletedDiagnostic, u.CreatedAt, u.UpdatedAt,
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
	_, err = s.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, field = EXCLUDED.field, role = EXCLUDED.role,
			current_rating = EXCLUDED.current_rating,
			category_stats = EXCLUDED.category_stats,
			weak_categories = EXCLUDED.weak_categories,
			completed_diagnostic = EXCLUDED.completed_diagnostic,
			updated_at = EXCLUDED.updated_at`,
		u.ID, u.Name, string(u.Field), string(u.Role), u.CurrentRating,
		stats, weak, u.CompletedDiagnostic, u.CreatedAt, u.UpdatedAt,
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

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u                   domain.User
		field, role         string
		statsJSON, weakJSON []byte
	)
	err := row.Scan(&u.ID, &u.Name, &field, &role, &u.CurrentRating,
		&statsJSON, &weakJSON, &u.CompletedDiagnostic, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	u.Field = domain.Field(field)
	u.Role = domain.Role(role)
	if err := json.Unmarshal(statsJSON, &u.CategoryStats); err != nil {
		return nil, fmt.Errorf("unmarshal category_stats: %w", err)
	}
	if u.CategoryStats == nil {
		u.CategoryStats = make(map[domain.Category]domain.CategoryTally)
	}
	if err := json.Unmarshal(weakJSON, &u.WeakCategories); err != nil {
		return nil, fmt.Errorf("unmarshal weak_categories: %w", err)
	}
	return &u, nil
}

var _ domain.UserRepository = (*UserStore)(nil)
