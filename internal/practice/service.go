// Package practice implements the practice, diagnostic and onboarding use
// cases on top of the rating engine.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/rating"
	"github.com/felixgeelhaar/rehearse/internal/recommend"
)

// DefaultAttemptLimit caps attempt listings when the caller sets no limit.
const DefaultAttemptLimit = 50

// Service handles practice business logic
type Service struct {
	uow       domain.UnitOfWork
	catalog   domain.ProblemCatalog
	selector  *recommend.Selector
	evaluator llm.CodeEvaluator
	events    domain.EventPublisher
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCatalog reads problems from catalog instead of the unit of work, for
// example through a cache.
func WithCatalog(catalog domain.ProblemCatalog) Option {
	return func(s *Service) { s.catalog = catalog }
}

// WithEvaluator sets the code evaluator used by SubmitSolution, EvaluateCode
// and the diagnostic.
func WithEvaluator(e llm.CodeEvaluator) Option {
	return func(s *Service) { s.evaluator = e }
}

// WithPublisher sets where rating events go after each committed change.
func WithPublisher(p domain.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new practice service
func NewService(uow domain.UnitOfWork, selector *recommend.Selector, opts ...Option) *Service {
	s := &Service{
		uow:      uow,
		catalog:  uow.Problems(),
		selector: selector,
		events:   domain.NopPublisher{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureUser returns the user, creating it with the default rating and
// field on first access.
func (s *Service) EnsureUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.uow.Users().FindByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	if err := s.uow.Users().Create(ctx, domain.NewUser(userID, domain.DefaultField, rating.DefaultRating)); err != nil {
		return nil, fmt.Errorf("create user %s: %w", userID, err)
	}
	slog.Info("user created", "user_id", userID)

	return s.uow.Users().FindByID(ctx, userID)
}

// Onboard sets the user's field and seeds the rating from the target role.
// Previous progress is reset.
func (s *Service) Onboard(ctx context.Context, userID string, field domain.Field, role domain.Role) (*domain.User, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}
	role, err := domain.ParseRole(string(role))
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
		var err error
		user, err = tx.Users().FindForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		user.Field = field
		user.Role = role
		user.CurrentRating = rating.InitialForRole(string(role))
		user.CategoryStats = make(map[domain.Category]domain.CategoryTally)
		user.WeakCategories = []domain.Category{}
		user.CompletedDiagnostic = false
		user.Touch()
		return tx.Users().Save(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("onboard %s: %w", userID, err)
	}
	return user, nil
}

// GetProblem returns one catalog problem.
func (s *Service) GetProblem(ctx context.Context, id string) (*domain.Problem, error) {
	return s.catalog.FindByID(ctx, id)
}

// ListProblems queries the catalog.
func (s *Service) ListProblems(ctx context.Context, q domain.ProblemQuery) ([]*domain.Problem, error) {
	return s.catalog.Query(ctx, q)
}

// GetRecommendedProblem picks the next problem for the user.
func (s *Service) GetRecommendedProblem(ctx context.Context, userID string, field domain.Field, excludeID string) (*domain.Problem, error) {
	if _, err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.selector.SelectNextProblem(ctx, userID, field, excludeID)
}

// RecommendedProblems lists problems ordered for the user, weak categories
// first.
func (s *Service) RecommendedProblems(ctx context.Context, userID string, limit int) ([]*domain.Problem, error) {
	if _, err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.selector.SelectRecommendedProblems(ctx, userID, limit)
}

// ListAttempts returns the user's attempts, newest first.
func (s *Service) ListAttempts(ctx context.Context, userID string, filter domain.AttemptFilter) ([]*domain.Attempt, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultAttemptLimit
	}
	return s.uow.Attempts().ListByUser(ctx, userID, filter)
}

func (s *Service) publish(ctx context.Context, event *domain.RatingEvent) {
	s.events.Publish(ctx, event)
}
