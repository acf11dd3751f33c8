package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

const evaluatorService = "code evaluator"

var errNoEvaluator = errors.New("no code evaluator configured")

// SubmitRequest is one practice or diagnostic outcome.
type SubmitRequest struct {
	UserID       string
	ProblemID    string
	Mode         domain.AttemptMode
	IsCorrect    bool
	Score        *int
	TimeSpentSec int
	HintsUsed    int
	Code         string
	Language     string
	Evaluation   *domain.CodeEvaluation
}

// SubmitResult is the stored attempt and the rating it produced.
type SubmitResult struct {
	Attempt     *domain.Attempt `json:"attempt"`
	RatingDelta int             `json:"rating_delta"`
	NewRating   int             `json:"new_rating"`
}

// SolutionRequest is code to be judged and then scored as an attempt.
type SolutionRequest struct {
	UserID       string
	ProblemID    string
	Code         string
	Language     string
	TimeSpentSec int
	HintsUsed    int
}

// EvaluationResult is a verdict on code outside any attempt.
type EvaluationResult struct {
	*domain.CodeEvaluation
	ProblemTitle    string          `json:"problemTitle"`
	ProblemCategory domain.Category `json:"problemCategory"`
}

func (r SubmitRequest) validate() error {
	if r.TimeSpentSec < 0 {
		return fmt.Errorf("%w: negative time spent", domain.ErrInvalidOutcome)
	}
	if r.HintsUsed < 0 {
		return fmt.Errorf("%w: negative hints used", domain.ErrInvalidOutcome)
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 100) {
		return fmt.Errorf("%w: score %d outside 0..100", domain.ErrInvalidOutcome, *r.Score)
	}
	if r.ProblemID == "" {
		return fmt.Errorf("%w: problem id required", domain.ErrInvalidOutcome)
	}
	return nil
}

// SubmitAttempt scores an attempt. The delta is computed once from the
// user's rating inside the transaction that stores the attempt and updates
// the user. Diagnostic attempts are tallied but carry a zero delta.
func (s *Service) SubmitAttempt(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	mode, err := domain.ParseAttemptMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	problem, err := s.catalog.FindByID(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.EnsureUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	attempt := &domain.Attempt{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		ProblemID:    problem.ID,
		Mode:         mode,
		IsCorrect:    req.IsCorrect,
		Score:        req.Score,
		TimeSpentSec: req.TimeSpentSec,
		HintsUsed:    req.HintsUsed,
		Code:         req.Code,
		Language:     req.Language,
		Evaluation:   req.Evaluation,
		Category:     problem.Category,
		Field:        problem.Field,
		CreatedAt:    s.now().UTC(),
	}

	var change *rating.RatingChange
	err = s.uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
		user, err := tx.Users().FindForUpdate(ctx, req.UserID)
		if err != nil {
			return err
		}
		if mode == domain.ModePractice {
			attempt.RatingDelta = rating.Calculate(rating.Outcome{
				UserRating:    user.CurrentRating,
				ProblemRating: problem.DifficultyRating,
				IsCorrect:     req.IsCorrect,
				TimeSpentSec:  req.TimeSpentSec,
				HintsUsed:     req.HintsUsed,
			})
		}
		if err := tx.Attempts().Append(ctx, attempt); err != nil {
			return err
		}
		change, err = rating.UpdateWithin(ctx, tx, req.UserID, attempt.RatingDelta, problem.Category, req.IsCorrect)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}

	slog.Info("attempt scored",
		"user_id", req.UserID,
		"problem_id", problem.ID,
		"correct", req.IsCorrect,
		"delta", attempt.RatingDelta,
		"new_rating", change.NewRating)

	event := domain.NewRatingEvent(domain.EventAttemptScored, req.UserID)
	event.ProblemID = problem.ID
	event.Field = problem.Field
	event.Category = problem.Category
	event.IsCorrect = req.IsCorrect
	event.RatingDelta = change.Delta
	event.OldRating = change.OldRating
	event.NewRating = change.NewRating
	s.publish(ctx, event)

	return &SubmitResult{
		Attempt:     attempt,
		RatingDelta: attempt.RatingDelta,
		NewRating:   change.NewRating,
	}, nil
}

// SubmitSolution judges the code and scores the attempt. When the judge is
// unavailable the attempt is still scored as incorrect with score 0, and the
// result is returned together with a *domain.UpstreamError.
func (s *Service) SubmitSolution(ctx context.Context, req SolutionRequest) (*SubmitResult, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, fmt.Errorf("%w: code required", domain.ErrInvalidOutcome)
	}
	if req.Language == "" {
		req.Language = llm.DefaultLanguage
	}

	problem, err := s.catalog.FindByID(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}

	eval, upstream := s.evaluate(ctx, problem, req.Code, req.Language)
	score := eval.CorrectnessScore

	result, err := s.SubmitAttempt(ctx, SubmitRequest{
		UserID:       req.UserID,
		ProblemID:    problem.ID,
		Mode:         domain.ModePractice,
		IsCorrect:    eval.IsCorrect,
		Score:        &score,
		TimeSpentSec: req.TimeSpentSec,
		HintsUsed:    req.HintsUsed,
		Code:         req.Code,
		Language:     req.Language,
		Evaluation:   eval,
	})
	if err != nil {
		return nil, err
	}
	if upstream != nil {
		return result, upstream
	}
	return result, nil
}

// EvaluateCode judges code against a problem without recording anything.
func (s *Service) EvaluateCode(ctx context.Context, problemID, code, language string) (*EvaluationResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: code required", domain.ErrInvalidOutcome)
	}
	problem, err := s.catalog.FindByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	eval, upstream := s.evaluate(ctx, problem, code, language)
	if upstream != nil {
		return nil, upstream
	}
	return &EvaluationResult{
		CodeEvaluation:  eval,
		ProblemTitle:    problem.Title,
		ProblemCategory: problem.Category,
	}, nil
}

// evaluate always returns a verdict. On failure it is FailedEvaluation and
// the second result reports why.
func (s *Service) evaluate(ctx context.Context, p *domain.Problem, code, language string) (*domain.CodeEvaluation, *domain.UpstreamError) {
	if s.evaluator == nil {
		return domain.FailedEvaluation("Evaluation failed"), domain.NewUpstreamError(evaluatorService, errNoEvaluator)
	}

	eval, err := s.evaluator.Evaluate(ctx, llm.EvaluationRequest{
		Code:              code,
		ProblemStatement:  p.Statement,
		ReferenceApproach: p.SolutionApproach,
		Language:          language,
	})
	if err != nil {
		slog.Warn("code evaluation failed", "problem_id", p.ID, "error", err)
		return domain.FailedEvaluation("Evaluation failed"), domain.NewUpstreamError(evaluatorService, err)
	}
	return eval, nil
}
