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
	"github.com/felixgeelhaar/rehearse/internal/progress"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

// Diagnostic shape.
const (
	DiagnosticProblems     = 5
	DiagnosticTimeLimitSec = 600

	// MinDiagnosticCodeLen is the shortest submission worth sending to the judge.
	MinDiagnosticCodeLen = 20
)

// DiagnosticAnswer is the candidate's answer to one diagnostic problem.
type DiagnosticAnswer struct {
	ProblemID    string `json:"problem_id"`
	Code         string `json:"code_submitted"`
	Language     string `json:"language,omitempty"`
	TimeSpentSec int    `json:"time_spent_sec"`
}

// DiagnosticEvaluation is the verdict on one answer.
type DiagnosticEvaluation struct {
	ProblemID  string                 `json:"problem_id"`
	IsCorrect  bool                   `json:"is_correct"`
	Evaluation *domain.CodeEvaluation `json:"evaluation"`
}

// DiagnosticOutcome is the calibrated starting point.
type DiagnosticOutcome struct {
	Rating            int                         `json:"rating"`
	CategoryStrengths map[domain.Category]float64 `json:"category_strengths"`
	WeakCategories    []domain.Category           `json:"weak_categories"`
	ProblemsSolved    int                         `json:"problems_solved"`
	TotalProblems     int                         `json:"total_problems"`
	Accuracy          int                         `json:"accuracy"`
	Evaluations       []DiagnosticEvaluation      `json:"evaluations"`
}

// DiagnosticSet returns the easiest problems of the field with the
// diagnostic time limit applied.
func (s *Service) DiagnosticSet(ctx context.Context, field domain.Field) ([]*domain.Problem, error) {
	if field == "" {
		field = domain.DefaultField
	}
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}

	problems, err := s.catalog.Query(ctx, domain.ProblemQuery{Field: field, Limit: DiagnosticProblems})
	if err != nil {
		return nil, err
	}

	set := make([]*domain.Problem, 0, len(problems))
	for _, p := range problems {
		cp := *p
		cp.TimeLimitSec = DiagnosticTimeLimitSec
		set = append(set, &cp)
	}
	return set, nil
}

// SubmitDiagnostic judges the answers in order, calibrates the user's rating
// from them and records each as a zero-delta diagnostic attempt. Answers for
// unknown problems are skipped. Judge failures count as incorrect.
func (s *Service) SubmitDiagnostic(ctx context.Context, userID string, field domain.Field, answers []DiagnosticAnswer) (*DiagnosticOutcome, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no diagnostic answers", domain.ErrInvalidOutcome)
	}
	if field != "" && !field.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidField, field)
	}
	for _, a := range answers {
		if a.TimeSpentSec < 0 {
			return nil, fmt.Errorf("%w: negative time spent", domain.ErrInvalidOutcome)
		}
	}
	if _, err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}

	var (
		results  []progress.DiagnosticResult
		attempts []*domain.Attempt
		out      = &DiagnosticOutcome{Evaluations: []DiagnosticEvaluation{}}
	)
	for i, a := range answers {
		problem, err := s.catalog.FindByID(ctx, a.ProblemID)
		if errors.Is(err, domain.ErrProblemNotFound) {
			slog.Warn("diagnostic answer for unknown problem", "problem_id", a.ProblemID)
			continue
		}
		if err != nil {
			return nil, err
		}

		eval := s.judgeDiagnostic(ctx, problem, a)
		correct := eval.IsCorrect
		score := eval.CorrectnessScore

		results = append(results, progress.DiagnosticResult{
			ProblemRating: problem.DifficultyRating,
			IsCorrect:     correct,
			Position:      i,
		})
		attempts = append(attempts, &domain.Attempt{
			ID:           uuid.NewString(),
			UserID:       userID,
			ProblemID:    problem.ID,
			Mode:         domain.ModeDiagnostic,
			IsCorrect:    correct,
			Score:        &score,
			TimeSpentSec: a.TimeSpentSec,
			Code:         a.Code,
			Language:     a.Language,
			Evaluation:   eval,
			Category:     problem.Category,
			Field:        problem.Field,
			CreatedAt:    s.now().UTC(),
		})
		out.Evaluations = append(out.Evaluations, DiagnosticEvaluation{ProblemID: problem.ID, IsCorrect: correct, Evaluation: eval})
		if correct {
			out.ProblemsSolved++
		}
	}
	if len(results) == 0 {
		return nil, domain.ErrProblemNotFound
	}

	calibrated := progress.DiagnosticCalibration(results)

	var oldRating int
	var user *domain.User
	err := s.uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
		var err error
		user, err = tx.Users().FindForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		for _, at := range attempts {
			if err := tx.Attempts().Append(ctx, at); err != nil {
				return err
			}
			user.RecordOutcome(at.Category, at.IsCorrect)
		}
		oldRating = user.CurrentRating
		user.CurrentRating = calibrated
		if field != "" {
			user.Field = field
		}
		user.RecomputeWeakCategories(rating.WeakThreshold)
		user.CompletedDiagnostic = true
		user.Touch()
		return tx.Users().Save(ctx, user)
	})
	if err != nil {
		return nil, fmt.Errorf("submit diagnostic: %w", err)
	}

	out.Rating = calibrated
	out.CategoryStrengths = user.CategoryStrengths()
	out.WeakCategories = user.WeakCategories
	out.TotalProblems = len(results)
	out.Accuracy = (out.ProblemsSolved*100 + out.TotalProblems/2) / out.TotalProblems

	slog.Info("diagnostic completed",
		"user_id", userID,
		"answers", len(results),
		"solved", out.ProblemsSolved,
		"rating", calibrated)

	event := domain.NewRatingEvent(domain.EventDiagnosticCompleted, userID)
	event.Field = user.Field
	event.IsCorrect = out.ProblemsSolved > 0
	event.OldRating = oldRating
	event.NewRating = calibrated
	event.RatingDelta = calibrated - oldRating
	s.publish(ctx, event)

	return out, nil
}

func (s *Service) judgeDiagnostic(ctx context.Context, p *domain.Problem, a DiagnosticAnswer) *domain.CodeEvaluation {
	if len(strings.TrimSpace(a.Code)) <= MinDiagnosticCodeLen {
		return &domain.CodeEvaluation{
			Explanation: "No solution submitted or solution too short",
			Suggestions: []string{"Submit a complete solution"},
		}
	}
	language := a.Language
	if language == "" {
		language = llm.DefaultLanguage
	}
	eval, _ := s.evaluate(ctx, p, a.Code, language)
	return eval
}
