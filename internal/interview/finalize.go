package interview

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/llm"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

// PassPerformance is the performance score that passes an interview when
// the caller does not say.
const PassPerformance = 60

// Timeline event kinds.
const (
	timelinePositive = "positive"
	timelineWarning  = "warning"
	timelineNeutral  = "neutral"
)

// Outcome is what the client reports when the interview ends.
type Outcome struct {
	DurationSec        int
	HintsUsed          int
	Code               string
	Passed             *bool
	CorrectAnswers     *int
	QuestionsAttempted *int
}

func (o Outcome) validate() error {
	if o.DurationSec < 0 {
		return fmt.Errorf("%w: negative duration", domain.ErrInvalidOutcome)
	}
	if o.HintsUsed < 0 {
		return fmt.Errorf("%w: negative hints used", domain.ErrInvalidOutcome)
	}
	if o.CorrectAnswers != nil && *o.CorrectAnswers < 0 {
		return fmt.Errorf("%w: negative correct answers", domain.ErrInvalidOutcome)
	}
	if o.QuestionsAttempted != nil && *o.QuestionsAttempted < 0 {
		return fmt.Errorf("%w: negative questions attempted", domain.ErrInvalidOutcome)
	}
	if o.CorrectAnswers != nil && o.QuestionsAttempted != nil && *o.CorrectAnswers > *o.QuestionsAttempted {
		return fmt.Errorf("%w: more correct answers than questions", domain.ErrInvalidOutcome)
	}
	return nil
}

// FinalizeResult is the completed interview and the rating it produced.
type FinalizeResult struct {
	Interview   *domain.Interview `json:"interview"`
	RatingDelta int               `json:"rating_delta"`
	NewRating   int               `json:"new_rating"`
}

// Finalize completes the interview and applies its single rating change.
// The status transition and the rating update commit together, so a second
// call returns domain.ErrAlreadyFinalized and leaves the rating untouched.
func (s *Service) Finalize(ctx context.Context, id string, o Outcome) (*FinalizeResult, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	iv, err := s.uow.Interviews().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv.IsCompleted() {
		return nil, domain.ErrAlreadyFinalized
	}
	problem, err := s.catalog.FindByID(ctx, iv.ProblemID)
	if err != nil {
		return nil, err
	}

	fb := s.assess(ctx, iv, problem, o)
	passed := fb.PerformanceScore >= PassPerformance
	if o.Passed != nil {
		passed = *o.Passed
	}
	if o.CorrectAnswers != nil && o.QuestionsAttempted != nil {
		bonus := accuracy(*o.CorrectAnswers, *o.QuestionsAttempted)
		fb.PerformanceScore = max(fb.PerformanceScore, bonus)
		fb.DetailedAnalysis = fmt.Sprintf("You answered %d out of %d questions correctly. %s",
			*o.CorrectAnswers, *o.QuestionsAttempted, fb.DetailedAnalysis)
	}

	completion := domain.Completion{
		Scores:           fb.Scores,
		PerformanceScore: fb.PerformanceScore,
		Strengths:        fb.Strengths,
		Weaknesses:       fb.Weaknesses,
		KeyMistakes:      fb.KeyMistakes,
		Recommendations:  fb.Recommendations,
		Report: domain.Report{
			Timeline:           Timeline(o, passed),
			DetailedAnalysis:   fb.DetailedAnalysis,
			CodeSubmitted:      o.Code,
			CorrectAnswers:     o.CorrectAnswers,
			QuestionsAttempted: o.QuestionsAttempted,
			Passed:             passed,
		},
		DurationSec: o.DurationSec,
		CompletedAt: s.now().UTC(),
	}

	timeSpent := o.DurationSec
	if timeSpent == 0 {
		timeSpent = rating.DefaultInterviewDurationSec
	}

	var change *rating.RatingChange
	err = s.uow.Atomic(ctx, func(tx domain.UnitOfWork) error {
		user, err := tx.Users().FindForUpdate(ctx, iv.UserID)
		if err != nil {
			return err
		}
		delta := rating.Calculate(rating.Outcome{
			UserRating:    user.CurrentRating,
			ProblemRating: problem.DifficultyRating,
			IsCorrect:     passed,
			TimeSpentSec:  timeSpent,
			HintsUsed:     o.HintsUsed,
		})
		change, err = rating.UpdateWithin(ctx, tx, iv.UserID, delta, problem.Category, passed)
		if err != nil {
			return err
		}
		// The stored delta is the change actually applied, so the rating
		// history can be replayed exactly near the bounds.
		completion.RatingDelta = change.Delta
		return tx.Interviews().Complete(ctx, iv.ID, completion)
	})
	if err != nil {
		return nil, fmt.Errorf("finalize interview %s: %w", id, err)
	}
	if err := iv.ApplyCompletion(completion); err != nil {
		return nil, err
	}

	slog.Info("interview finalized",
		"interview_id", iv.ID,
		"user_id", iv.UserID,
		"passed", passed,
		"performance", completion.PerformanceScore,
		"delta", completion.RatingDelta,
		"new_rating", change.NewRating)

	event := domain.NewRatingEvent(domain.EventInterviewFinalized, iv.UserID)
	event.InterviewID = iv.ID
	event.ProblemID = problem.ID
	event.Field = iv.Field
	event.Category = problem.Category
	event.IsCorrect = passed
	event.RatingDelta = change.Delta
	event.OldRating = change.OldRating
	event.NewRating = change.NewRating
	s.events.Publish(ctx, event)

	return &FinalizeResult{
		Interview:   iv,
		RatingDelta: completion.RatingDelta,
		NewRating:   change.NewRating,
	}, nil
}

// assess asks for feedback and falls back to a neutral assessment.
func (s *Service) assess(ctx context.Context, iv *domain.Interview, p *domain.Problem, o Outcome) *domain.InterviewFeedback {
	if s.feedback == nil {
		return domain.NeutralFeedback()
	}
	fb, err := s.feedback.Generate(ctx, llm.FeedbackRequest{
		ProblemStatement: p.Statement,
		Category:         p.Category,
		Transcript:       iv.Transcript,
		Code:             o.Code,
		DurationSec:      o.DurationSec,
		HintsUsed:        o.HintsUsed,
	})
	if err != nil {
		slog.Warn("interview feedback unavailable, using neutral assessment", "interview_id", iv.ID, "error", err)
		return domain.NeutralFeedback()
	}
	return fb
}

// accuracy is the rounded percentage of correct answers; no questions
// attempted counts as 50.
func accuracy(correct, attempted int) int {
	if attempted == 0 {
		return 50
	}
	return int(math.Round(float64(correct) / float64(attempted) * 100))
}

// Timeline lays out the report timeline across the interview's duration.
func Timeline(o Outcome, passed bool) []domain.TimelineEvent {
	d := o.DurationSec
	events := []domain.TimelineEvent{
		{At: formatClock(0), Event: "Interview started", Kind: timelineNeutral},
		{At: formatClock(d / 4), Event: "Problem explained", Kind: timelinePositive},
	}

	if o.HintsUsed > 0 {
		label := "hints"
		if o.HintsUsed == 1 {
			label = "hint"
		}
		events = append(events, domain.TimelineEvent{
			At: formatClock(d / 2), Event: fmt.Sprintf("%d %s used", o.HintsUsed, label), Kind: timelineWarning,
		})
	} else {
		events = append(events, domain.TimelineEvent{At: formatClock(d / 2), Event: "Making progress", Kind: timelinePositive})
	}

	end := domain.TimelineEvent{At: formatClock(d), Event: "Interview ended", Kind: timelineNeutral}
	if passed {
		end.Event = "Interview passed"
		end.Kind = timelinePositive
		if o.CorrectAnswers != nil && o.QuestionsAttempted != nil {
			end.Event = fmt.Sprintf("Interview passed (%d/%d correct)", *o.CorrectAnswers, *o.QuestionsAttempted)
		}
	}
	return append(events, end)
}

// formatClock renders seconds as MM:SS.
func formatClock(sec int) string {
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}
