package interview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// ReportView is a completed or in-progress interview laid out for display.
type ReportView struct {
	ID               string                   `json:"id"`
	ProblemTitle     string                   `json:"problemTitle"`
	Category         domain.Category          `json:"category"`
	Difficulty       int                      `json:"difficulty"`
	Date             time.Time                `json:"date"`
	Duration         string                   `json:"duration"`
	DurationSec      int                      `json:"durationSec"`
	Status           domain.InterviewStatus   `json:"status"`
	Passed           bool                     `json:"passed"`
	PerformanceScore int                      `json:"performanceScore"`
	Scores           domain.Scores            `json:"scores"`
	Strengths        []string                 `json:"strengths"`
	Weaknesses       []string                 `json:"weaknesses"`
	KeyMistakes      []string                 `json:"keyMistakes"`
	Recommendations  []string                 `json:"recommendations"`
	DetailedAnalysis string                   `json:"detailedAnalysis"`
	CodeSubmitted    string                   `json:"codeSubmitted,omitempty"`
	Transcript       []domain.TranscriptEntry `json:"transcript"`
	Timeline         []domain.TimelineEvent   `json:"timeline"`
	RatingChange     int                      `json:"ratingChange"`
}

// Report builds the display view of an interview. A problem that is no
// longer in the catalog shows as "Unknown Problem".
func (s *Service) Report(ctx context.Context, id string) (*ReportView, error) {
	iv, err := s.uow.Interviews().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &ReportView{
		ID:               iv.ID,
		ProblemTitle:     "Unknown Problem",
		Category:         "Unknown",
		Date:             iv.CreatedAt,
		Duration:         formatDuration(iv.DurationSec),
		DurationSec:      iv.DurationSec,
		Status:           iv.Status,
		PerformanceScore: iv.PerformanceScore,
		Strengths:        nonNil(iv.Strengths),
		Weaknesses:       nonNil(iv.Weaknesses),
		KeyMistakes:      nonNil(iv.KeyMistakes),
		Recommendations:  nonNil(iv.Recommendations),
		Transcript:       iv.Transcript,
		Timeline:         []domain.TimelineEvent{},
		RatingChange:     iv.RatingDelta,
	}
	if iv.Scores != nil {
		view.Scores = *iv.Scores
	}
	if iv.Report != nil {
		view.Passed = iv.Report.Passed
		view.DetailedAnalysis = iv.Report.DetailedAnalysis
		view.CodeSubmitted = iv.Report.CodeSubmitted
		if iv.Report.Timeline != nil {
			view.Timeline = iv.Report.Timeline
		}
	}

	p, err := s.catalog.FindByID(ctx, iv.ProblemID)
	switch {
	case err == nil:
		view.ProblemTitle = p.Title
		view.Category = p.Category
		view.Difficulty = p.DifficultyRating
	case !errors.Is(err, domain.ErrProblemNotFound):
		return nil, err
	}
	return view, nil
}

// formatDuration renders seconds as M:SS.
func formatDuration(sec int) string {
	d := time.Duration(sec) * time.Second
	m := int(d.Minutes())
	return fmt.Sprintf("%d:%02d", m, sec%60)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
