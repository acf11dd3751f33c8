package progress

import (
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/rating"
)

// Dashboard thresholds.
const (
	StrengthThreshold = 70
	FocusThreshold    = 50
	MaxFocusAreas     = 3
	RecentActivityLen = 5
	HistoryInterviews = 5
	ProgressionDays   = 30
)

// Summary is the dashboard view of a user's progress in one field.
type Summary struct {
	UserID              string            `json:"userId"`
	Field               domain.Field      `json:"field"`
	Rating              int               `json:"rating"`
	CategoryPerformance []CategoryScore   `json:"categoryPerformance"`
	Streak              int               `json:"streak"`
	WeakCategories      []domain.Category `json:"weakCategories"`
	Strengths           []domain.Category `json:"strengths"`
	FocusAreas          []domain.Category `json:"focusAreas"`
	Stats               Stats             `json:"stats"`
	Achievements        []Achievement     `json:"achievements"`
	RatingHistory       []RatingPoint     `json:"ratingHistory"`
	RecentActivity      []Activity        `json:"recentActivity"`
	Progression         []DailyProgress   `json:"progression"`
}

// CategoryScore is one category's average score in [0,100].
type CategoryScore struct {
	Name  domain.Category `json:"name"`
	Value int             `json:"value"`
}

// Stats are headline counters.
type Stats struct {
	ProblemsSolved      int `json:"problemsSolved"`
	TotalProblems       int `json:"totalProblems"`
	TotalAttempts       int `json:"totalAttempts"`
	Accuracy            int `json:"accuracy"`
	InterviewsPassed    int `json:"interviewsPassed"`
	InterviewsCompleted int `json:"totalInterviews"`
	InterviewAttempts   int `json:"totalInterviewAttempts"`
}

// Achievement is a milestone badge.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// RatingPoint is one point on the rating history chart.
type RatingPoint struct {
	Label string `json:"date"`
	Value int    `json:"value"`
}

// Activity is a recent attempt.
type Activity struct {
	AttemptID string          `json:"id"`
	ProblemID string          `json:"problemId"`
	Title     string          `json:"title"`
	Category  domain.Category `json:"category"`
	Score     int             `json:"score"`
	CreatedAt time.Time       `json:"createdAt"`
}

// DailyProgress summarizes one UTC day of practice.
type DailyProgress struct {
	Date     string `json:"date"`
	Attempts int    `json:"attempts"`
	Solved   int    `json:"solved"`
	Accuracy int    `json:"accuracy"`
}

// SummaryInput is everything Build reads. Attempts and Interviews may span
// all fields; Build filters them.
type SummaryInput struct {
	User          *domain.User
	Field         domain.Field
	Attempts      []*domain.Attempt
	Interviews    []*domain.Interview
	TotalProblems int
	ProblemTitles map[string]string
	Now           time.Time
}

// Build computes the dashboard summary. It performs no I/O.
func Build(in SummaryInput) *Summary {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	field := in.Field
	if field == "" {
		field = in.User.Field
	}
	categories := field.Categories()

	var fieldAttempts []*domain.Attempt
	timestamps := make([]time.Time, 0, len(in.Attempts))
	for _, a := range in.Attempts {
		timestamps = append(timestamps, a.CreatedAt)
		if a.Field == field || a.Field == "" {
			fieldAttempts = append(fieldAttempts, a)
		}
	}
	sort.SliceStable(fieldAttempts, func(i, j int) bool {
		return fieldAttempts[i].CreatedAt.After(fieldAttempts[j].CreatedAt)
	})

	var fieldInterviews, completed []*domain.Interview
	for _, iv := range in.Interviews {
		if iv.Field != field && iv.Field != "" {
			continue
		}
		fieldInterviews = append(fieldInterviews, iv)
		if iv.IsCompleted() {
			completed = append(completed, iv)
		}
	}

	current := rating.Clamp(in.User.CurrentRating)
	perf := CategoryPerformance(fieldAttempts, categories)

	s := &Summary{
		UserID:              in.User.ID,
		Field:               field,
		Rating:              current,
		CategoryPerformance: make([]CategoryScore, 0, len(categories)),
		Streak:              Streak(timestamps, now),
		WeakCategories:      []domain.Category{},
		Strengths:           []domain.Category{},
		FocusAreas:          []domain.Category{},
	}

	for _, c := range categories {
		v := perf[c]
		s.CategoryPerformance = append(s.CategoryPerformance, CategoryScore{Name: c, Value: v})
		if v >= StrengthThreshold {
			s.Strengths = append(s.Strengths, c)
		}
		if v > 0 && v < FocusThreshold && len(s.FocusAreas) < MaxFocusAreas {
			s.FocusAreas = append(s.FocusAreas, c)
		}
	}
	for _, c := range in.User.WeakCategories {
		if field.HasCategory(c) {
			s.WeakCategories = append(s.WeakCategories, c)
		}
	}
	if len(s.FocusAreas) == 0 {
		s.FocusAreas = append(s.FocusAreas, s.WeakCategories...)
	}

	s.Stats = buildStats(fieldAttempts, fieldInterviews, completed, in.TotalProblems)
	s.Achievements = achievements(s.Stats, s.Streak, current)
	s.RatingHistory = ratingHistory(completed, current)
	s.RecentActivity = recentActivity(fieldAttempts, in.ProblemTitles)
	s.Progression = dailyProgression(fieldAttempts)
	return s
}

func buildStats(attempts []*domain.Attempt, interviews, completed []*domain.Interview, totalProblems int) Stats {
	solved := make(map[string]bool)
	successful := 0
	for _, a := range attempts {
		if a.Solved() {
			solved[a.ProblemID] = true
			successful++
		}
	}

	st := Stats{
		ProblemsSolved:      len(solved),
		TotalProblems:       totalProblems,
		TotalAttempts:       len(attempts),
		InterviewsCompleted: len(completed),
		InterviewAttempts:   len(interviews),
	}
	if len(attempts) > 0 {
		st.Accuracy = (successful*100 + len(attempts)/2) / len(attempts)
	}
	for _, iv := range completed {
		if iv.Passed() {
			st.InterviewsPassed++
		}
	}
	return st
}

func achievements(st Stats, streak, current int) []Achievement {
	return []Achievement{
		{ID: "first-steps", Title: "First Steps", Description: "Solve your first problem", Unlocked: st.ProblemsSolved >= 1},
		{ID: "problem-solver", Title: "Problem Solver", Description: "Solve 10 problems", Unlocked: st.ProblemsSolved >= 10},
		{ID: "on-fire", Title: "On Fire", Description: "3-day streak", Unlocked: streak >= 3},
		{ID: "interview-ready", Title: "Interview Ready", Description: "Complete first mock interview", Unlocked: st.InterviewsCompleted >= 1},
		{ID: "consistent", Title: "Consistent", Description: "7-day streak", Unlocked: streak >= 7},
		{ID: "expert", Title: "Expert", Description: "Reach a 1500 rating", Unlocked: current >= 1500},
	}
}

// ratingHistory replays the last few interview deltas backwards from the
// current rating.
func ratingHistory(completed []*domain.Interview, current int) []RatingPoint {
	var scored []*domain.Interview
	for _, iv := range completed {
		if iv.RatingDelta != 0 {
			scored = append(scored, iv)
		}
	}
	if len(scored) == 0 {
		return []RatingPoint{{Label: "Now", Value: current}}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return completedAt(scored[i]).Before(completedAt(scored[j]))
	})
	if len(scored) > HistoryInterviews {
		scored = scored[len(scored)-HistoryInterviews:]
	}

	running := current
	for _, iv := range scored {
		running -= iv.RatingDelta
	}

	points := []RatingPoint{{Label: "Start", Value: rating.Clamp(running)}}
	for i, iv := range scored {
		running += iv.RatingDelta
		points = append(points, RatingPoint{Label: fmt.Sprintf("Session %d", i+1), Value: rating.Clamp(running)})
	}
	return points
}

func completedAt(iv *domain.Interview) time.Time {
	if iv.CompletedAt != nil {
		return *iv.CompletedAt
	}
	return iv.CreatedAt
}

func recentActivity(attempts []*domain.Attempt, titles map[string]string) []Activity {
	n := min(len(attempts), RecentActivityLen)
	out := make([]Activity, 0, n)
	for _, a := range attempts[:n] {
		title := titles[a.ProblemID]
		if title == "" {
			title = "Unknown Problem"
		}
		out = append(out, Activity{
			AttemptID: a.ID,
			ProblemID: a.ProblemID,
			Title:     title,
			Category:  a.Category,
			Score:     attemptScore(a),
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}

// dailyProgression groups attempts by UTC day, oldest first.
func dailyProgression(attempts []*domain.Attempt) []DailyProgress {
	if len(attempts) == 0 {
		return []DailyProgress{}
	}

	groups := make(map[string]*DailyProgress)
	for _, a := range attempts {
		day := a.CreatedAt.UTC().Format("2006-01-02")
		p, ok := groups[day]
		if !ok {
			p = &DailyProgress{Date: day}
			groups[day] = p
		}
		p.Attempts++
		if a.Solved() {
			p.Solved++
		}
	}

	days := make([]string, 0, len(groups))
	for day := range groups {
		days = append(days, day)
	}
	sort.Strings(days)

	points := make([]DailyProgress, 0, len(days))
	for _, day := range days {
		p := groups[day]
		p.Accuracy = (p.Solved*100 + p.Attempts/2) / p.Attempts
		points = append(points, *p)
	}

	// Keep last 30 days
	if len(points) > ProgressionDays {
		points = points[len(points)-ProgressionDays:]
	}
	return points
}
