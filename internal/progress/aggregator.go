// Package progress folds attempt and interview history into summary statistics.
package progress

import (
	"math"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

// attemptScore is the per-attempt contribution to category performance.
func attemptScore(a *domain.Attempt) int {
	if a.IsCorrect {
		return 100
	}
	if a.Score != nil {
		return *a.Score
	}
	return 0
}

// CategoryPerformance averages attempt scores per category. Every category in
// categories has an entry; categories without attempts report 0. Attempts in
// categories outside the list are ignored.
func CategoryPerformance(attempts []*domain.Attempt, categories []domain.Category) map[domain.Category]int {
	type acc struct{ sum, n int }
	totals := make(map[domain.Category]*acc, len(categories))
	for _, c := range categories {
		totals[c] = &acc{}
	}

	for _, a := range attempts {
		t, ok := totals[a.Category]
		if !ok {
			continue
		}
		t.sum += attemptScore(a)
		t.n++
	}

	perf := make(map[domain.Category]int, len(categories))
	for c, t := range totals {
		if t.n == 0 {
			perf[c] = 0
			continue
		}
		perf[c] = int(math.Round(float64(t.sum) / float64(t.n)))
	}
	return perf
}

// Streak counts consecutive UTC days with activity ending today, or ending
// yesterday when today has none.
func Streak(timestamps []time.Time, now time.Time) int {
	days := make(map[time.Time]bool, len(timestamps))
	for _, ts := range timestamps {
		days[truncateDay(ts)] = true
	}

	day := truncateDay(now)
	if !days[day] {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for days[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DiagnosticResult is one answered diagnostic problem. Position is the
// zero-based order in which it was answered.
type DiagnosticResult struct {
	ProblemRating int
	IsCorrect     bool
	Position      int
}

// DiagnosticCalibration returns an initial rating from diagnostic results.
// Each result targets its problem rating plus or minus rating.DiagnosticOffset
// and is weighted by Position+1, so later answers count more.
func DiagnosticCalibration(results []DiagnosticResult) int {
	if len(results) == 0 {
		return rating.DefaultRating
	}

	var sum, weights float64
	for _, r := range results {
		target := r.ProblemRating - rating.DiagnosticOffset
		if r.IsCorrect {
			target = r.ProblemRating + rating.DiagnosticOffset
		}
		w := float64(max(r.Position, 0) + 1)
		sum += float64(target) * w
		weights += w
	}
	return rating.Clamp(int(math.Round(sum / weights)))
}
