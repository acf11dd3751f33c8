package practice

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/progress"
)

// GetDashboardSummary loads the user's history and folds it into the
// dashboard summary for field, or the user's own field when empty.
func (s *Service) GetDashboardSummary(ctx context.Context, userID string, field domain.Field) (*progress.Summary, error) {
	if field != "" && !field.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}
	user, err := s.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if field == "" {
		field = user.Field
	}

	var (
		attempts   []*domain.Attempt
		interviews []*domain.Interview
		problems   []*domain.Problem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		attempts, err = s.uow.Attempts().ListByUser(gctx, userID, domain.AttemptFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		interviews, err = s.uow.Interviews().ListByUser(gctx, userID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		problems, err = s.catalog.Query(gctx, domain.ProblemQuery{Field: field})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard for %s: %w", userID, err)
	}

	titles := make(map[string]string, len(problems))
	for _, p := range problems {
		titles[p.ID] = p.Title
	}
	s.fillTitles(ctx, attempts, field, titles)

	return progress.Build(progress.SummaryInput{
		User:          user,
		Field:         field,
		Attempts:      attempts,
		Interviews:    interviews,
		TotalProblems: len(problems),
		ProblemTitles: titles,
		Now:           s.now(),
	}), nil
}

// fillTitles looks up titles for recent attempts whose problem is not in the
// field listing, so recent activity does not show placeholders for them.
func (s *Service) fillTitles(ctx context.Context, attempts []*domain.Attempt, field domain.Field, titles map[string]string) {
	seen := 0
	for _, a := range attempts {
		if a.Field != field && a.Field != "" {
			continue
		}
		if seen++; seen > progress.RecentActivityLen {
			return
		}
		if _, ok := titles[a.ProblemID]; ok {
			continue
		}
		p, err := s.catalog.FindByID(ctx, a.ProblemID)
		if err != nil {
			continue
		}
		titles[p.ID] = p.Title
	}
}
