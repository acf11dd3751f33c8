// Package rating computes ELO-style rating changes and applies them to users.
package rating

import "math"

// Rating constants shared by every component that reads or writes ratings.
const (
	K                = 32
	DefaultRating    = 1200
	MinRating        = 800
	MaxRating        = 2200
	MaxDelta         = 100
	WeakThreshold    = 0.5
	MatchWindow      = 200
	DiagnosticOffset = 50
	MaxRatingGap     = 800

	DefaultInterviewDurationSec = 1800
)

// Time adjustment bounds.
const (
	MaxTimeBonus   = 0.25
	MaxTimePenalty = 0.25
	HintPenalty    = 0.05
)

// Tier is a coarse difficulty band.
type Tier string

const (
	TierEasy   Tier = "easy"
	TierMedium Tier = "medium"
	TierHard   Tier = "hard"
)

// TierFor returns the difficulty band of a problem rating.
func TierFor(rating int) Tier {
	switch {
	case rating < 1200:
		return TierEasy
	case rating < 1500:
		return TierMedium
	default:
		return TierHard
	}
}

// ExpectedTime is the baseline solve time in seconds for the tier.
func (t Tier) ExpectedTime() int {
	switch t {
	case TierEasy:
		return 900
	case TierMedium:
		return 1500
	default:
		return 2400
	}
}

// Outcome is a single scored result.
type Outcome struct {
	UserRating    int
	ProblemRating int
	IsCorrect     bool
	TimeSpentSec  int
	HintsUsed     int
}

// ExpectedScore is the logistic probability that user solves problem.
func ExpectedScore(user, problem int) float64 {
	gap := float64(problem - user)
	gap = math.Max(-MaxRatingGap, math.Min(MaxRatingGap, gap))
	return 1 / (1 + math.Pow(10, gap/400))
}

// CalculateDelta returns the rating change for a timed outcome without hints.
func CalculateDelta(userRating, problemRating int, isCorrect bool, timeSpentSec int) int {
	return Calculate(Outcome{
		UserRating:    userRating,
		ProblemRating: problemRating,
		IsCorrect:     isCorrect,
		TimeSpentSec:  timeSpentSec,
	})
}

// Calculate returns the signed, bounded rating change for o.
func Calculate(o Outcome) int {
	actual := 0.0
	if o.IsCorrect {
		actual = 1.0
	}
	base := K * (actual - ExpectedScore(o.UserRating, o.ProblemRating))
	adjusted := base * TimeMultiplier(o)
	adjusted = math.Max(-MaxDelta, math.Min(MaxDelta, adjusted))
	return int(math.Round(adjusted))
}

// TimeMultiplier scales the base delta by solve speed and hint usage.
// The result is always positive so the sign of the base delta is kept.
func TimeMultiplier(o Outcome) float64 {
	if o.TimeSpentSec <= 0 && o.HintsUsed <= 0 {
		return 1.0
	}

	ratio := 1.0
	if o.TimeSpentSec > 0 {
		ratio = float64(o.TimeSpentSec) / float64(TierFor(o.ProblemRating).ExpectedTime())
	}
	hints := float64(max(o.HintsUsed, 0)) * HintPenalty

	if o.IsCorrect {
		m := 1.0
		if ratio < 1 {
			m += MaxTimeBonus * (1 - ratio)
		} else if ratio > 1 {
			m -= MaxTimePenalty * (ratio - 1) / 2
		}
		m -= hints
		return math.Max(1-MaxTimePenalty, math.Min(1+MaxTimeBonus, m))
	}

	// A wrong answer after a long or assisted attempt costs more.
	m := 1.0
	if ratio > 1 {
		m += MaxTimePenalty * (ratio - 1) / 2
	}
	m += hints
	return math.Max(1, math.Min(1+MaxTimePenalty, m))
}

// Clamp bounds r to [MinRating, MaxRating].
func Clamp(r int) int {
	if r < MinRating {
		return MinRating
	}
	if r > MaxRating {
		return MaxRating
	}
	return r
}

// ApplyDelta returns the clamped rating after adding delta.
func ApplyDelta(current, delta int) int {
	return Clamp(current + delta)
}

// ApplyDeltaReport is ApplyDelta that also reports whether clamping occurred.
func ApplyDeltaReport(current, delta int) (int, bool) {
	raw := current + delta
	next := Clamp(raw)
	return next, next != raw
}

// RoleRating is the initial rating for a candidate onboarding at each role.
var RoleRating = map[string]int{
	"intern":            1100,
	"new_grad":          1200,
	"mid":               1350,
	"senior":            1500,
	"staff":             1650,
	"quant_researcher":  1400,
	"quant_developer":   1350,
	"portfolio_manager": 1600,
	"analyst":           1200,
	"associate":         1400,
	"vp":                1500,
	"director":          1600,
}

// InitialForRole returns the starting rating for role, or DefaultRating.
func InitialForRole(role string) int {
	if r, ok := RoleRating[role]; ok {
		return r
	}
	return DefaultRating
}
