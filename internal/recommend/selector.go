// Package recommend chooses which problem a user should attempt next.
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

// DefaultLimit is the number of problems SelectRecommendedProblems returns
// when the caller does not ask for a specific count.
const DefaultLimit = 10

// Selector picks problems near a user's rating.
type Selector struct {
	uow     domain.UnitOfWork
	catalog domain.ProblemCatalog

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rng = r }
}

// WithCatalog reads problems from catalog instead of the unit of work.
func WithCatalog(catalog domain.ProblemCatalog) Option {
	return func(s *Selector) { s.catalog = catalog }
}

// NewSelector creates a selector. Users and interviews are read through uow.
func NewSelector(uow domain.UnitOfWork, opts ...Option) *Selector {
	s := &Selector{
		uow:     uow,
		catalog: uow.Problems(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectNextProblem returns a random problem within rating.MatchWindow of the
// user's rating in field. When the window is empty it falls back to any
// problem in the field, then to any problem at all.
func (s *Selector) SelectNextProblem(ctx context.Context, userID string, field domain.Field, excludeID string) (*domain.Problem, error) {
	user, err := s.uow.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if field == "" {
		field = user.Field
	}
	return s.pick(ctx, rating.Clamp(user.CurrentRating), field, excludeID)
}

func (s *Selector) pick(ctx context.Context, userRating int, field domain.Field, excludeID string) (*domain.Problem, error) {
	tiers := []domain.ProblemQuery{
		{
			Field:     field,
			MinRating: userRating - rating.MatchWindow,
			MaxRating: userRating + rating.MatchWindow,
			ExcludeID: excludeID,
		},
		{Field: field, ExcludeID: excludeID},
		{ExcludeID: excludeID},
	}

	for _, q := range tiers {
		candidates, err := s.catalog.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query problems: %w", err)
		}
		if len(candidates) > 0 {
			return candidates[s.intn(len(candidates))], nil
		}
	}
	return nil, domain.ErrNoProblemsAvailable
}

// SelectNextForInterview selects the next problem for an in-progress
// interview and records it on the interview. The interview's current problem
// is excluded unless excludeID names another one.
func (s *Selector) SelectNextForInterview(ctx context.Context, interviewID string, field domain.Field, excludeID string) (*domain.Problem, error) {
	iv, err := s.uow.Interviews().FindByID(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.IsCompleted() {
		return nil, domain.ErrInterviewCompleted
	}
	if field == "" {
		field = iv.Field
	}
	if excludeID == "" {
		excludeID = iv.ProblemID
	}

	p, err := s.SelectNextProblem(ctx, iv.UserID, field, excludeID)
	if err != nil {
		return nil, err
	}
	if err := s.uow.Interviews().SetProblem(ctx, iv.ID, p.ID); err != nil {
		return nil, fmt.Errorf("set interview problem: %w", err)
	}
	return p, nil
}

// SelectRecommendedProblems returns up to limit problems from the user's
// field. Problems in weak categories come first; within each group problems
// closest to the user's rating come first.
func (s *Selector) SelectRecommendedProblems(ctx context.Context, userID string, limit int) ([]*domain.Problem, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	user, err := s.uow.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	problems, err := s.catalog.Query(ctx, domain.ProblemQuery{Field: user.Field})
	if err != nil {
		return nil, fmt.Errorf("query problems: %w", err)
	}

	problems = slices.Clone(problems)
	current := rating.Clamp(user.CurrentRating)
	sort.SliceStable(problems, func(i, j int) bool {
		wi, wj := user.IsWeak(problems[i].Category), user.IsWeak(problems[j].Category)
		if wi != wj {
			return wi
		}
		di, dj := distance(problems[i], current), distance(problems[j], current)
		if di != dj {
			return di < dj
		}
		return problems[i].ID < problems[j].ID
	})

	if len(problems) > limit {
		problems = problems[:limit]
	}
	return problems, nil
}

// SelectInterviewProblem prefers a weak-category problem inside the rating
// window and otherwise behaves like SelectNextProblem.
func (s *Selector) SelectInterviewProblem(ctx context.Context, userID string, field domain.Field) (*domain.Problem, error) {
	user, err := s.uow.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if field == "" {
		field = user.Field
	}
	current := rating.Clamp(user.CurrentRating)

	var weak []*domain.Problem
	for _, c := range user.WeakCategories {
		if !field.HasCategory(c) {
			continue
		}
		found, err := s.catalog.Query(ctx, domain.ProblemQuery{
			Field:     field,
			Category:  c,
			MinRating: current - rating.MatchWindow,
			MaxRating: current + rating.MatchWindow,
		})
		if err != nil {
			return nil, fmt.Errorf("query problems: %w", err)
		}
		weak = append(weak, found...)
	}
	if len(weak) > 0 {
		return weak[s.intn(len(weak))], nil
	}
	return s.pick(ctx, current, field, "")
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func distance(p *domain.Problem, r int) int {
	d := p.DifficultyRating - r
	if d < 0 {
		return -d
	}
	return d
}
