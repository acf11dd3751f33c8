package domain

import (
	"fmt"
	"strings"
	"time"
)

// AttemptMode distinguishes regular practice from the onboarding diagnostic.
type AttemptMode string

const (
	ModePractice   AttemptMode = "practice"
	ModeDiagnostic AttemptMode = "diagnostic"
)

// ParseAttemptMode parses a mode, defaulting empty input to practice.
func ParseAttemptMode(s string) (AttemptMode, error) {
	switch AttemptMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModePractice:
		return ModePractice, nil
	case ModeDiagnostic:
		return ModeDiagnostic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Attempt is one scored try at a problem. Attempts are append-only and
// RatingDelta is fixed when the attempt is created.
type Attempt struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	ProblemID    string          `json:"problem_id"`
	Mode         AttemptMode     `json:"mode"`
	IsCorrect    bool            `json:"is_correct"`
	Score        *int            `json:"score,omitempty"`
	TimeSpentSec int             `json:"time_spent_sec"`
	HintsUsed    int             `json:"hints_used"`
	Code         string          `json:"code,omitempty"`
	Language     string          `json:"language,omitempty"`
	Evaluation   *CodeEvaluation `json:"evaluation,omitempty"`
	Category     Category        `json:"category"`
	Field        Field           `json:"field"`
	RatingDelta  int             `json:"rating_delta"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Solved reports whether the attempt counts as a solved problem.
func (a *Attempt) Solved() bool {
	return a.IsCorrect || (a.Score != nil && *a.Score >= 70)
}

// AttemptFilter narrows attempt listings. Zero values mean "no constraint".
type AttemptFilter struct {
	ProblemID string
	Mode      AttemptMode
	Field     Field
	Limit     int
}
