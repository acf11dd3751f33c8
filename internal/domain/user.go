package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// User is a practicing candidate and their skill estimate.
type User struct {
	ID                  string                     `json:"id"`
	Name                string                     `json:"name,omitempty"`
	Field               Field                      `json:"field"`
	Role                Role                       `json:"role,omitempty"`
	CurrentRating       int                        `json:"current_rating"`
	CategoryStats       map[Category]CategoryTally `json:"category_stats"`
	WeakCategories      []Category                 `json:"weak_categories"`
	CompletedDiagnostic bool                       `json:"completed_diagnostic"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// CategoryTally is the running outcome count for one category.
type CategoryTally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Ratio returns correct/total, or 0 when nothing was attempted.
func (t CategoryTally) Ratio() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total)
}

// NewUser creates a user with the given starting rating.
func NewUser(id string, field Field, rating int) *User {
	now := time.Now().UTC()
	return &User{
		ID:            id,
		Field:         field,
		CurrentRating: rating,
		CategoryStats: make(map[Category]CategoryTally),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RecordOutcome increments the tally for category.
func (u *User) RecordOutcome(category Category, isCorrect bool) {
	if category == "" {
		return
	}
	if u.CategoryStats == nil {
		u.CategoryStats = make(map[Category]CategoryTally)
	}
	t := u.CategoryStats[category]
	t.Total++
	if isCorrect {
		t.Correct++
	}
	u.CategoryStats[category] = t
}

// CategoryStrengths returns the correctness ratio of every attempted category.
func (u *User) CategoryStrengths() map[Category]float64 {
	strengths := make(map[Category]float64, len(u.CategoryStats))
	for c, t := range u.CategoryStats {
		if t.Total > 0 {
			strengths[c] = t.Ratio()
		}
	}
	return strengths
}

// RecomputeWeakCategories sets WeakCategories to every attempted category
// whose ratio is below threshold, sorted by name.
func (u *User) RecomputeWeakCategories(threshold float64) {
	weak := make([]Category, 0)
	for c, t := range u.CategoryStats {
		if t.Total > 0 && t.Ratio() < threshold {
			weak = append(weak, c)
		}
	}
	sort.Slice(weak, func(i, j int) bool { return weak[i] < weak[j] })
	u.WeakCategories = weak
}

// IsWeak reports whether c is one of the user's weak categories.
func (u *User) IsWeak(c Category) bool {
	for _, w := range u.WeakCategories {
		if w == c {
			return true
		}
	}
	return false
}

// Touch updates the modification timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now().UTC()
}

// Role is the seniority a candidate is preparing for.
type Role string

const (
	RoleIntern           Role = "intern"
	RoleNewGrad          Role = "new_grad"
	RoleMid              Role = "mid"
	RoleSenior           Role = "senior"
	RoleStaff            Role = "staff"
	RoleQuantResearcher  Role = "quant_researcher"
	RoleQuantDeveloper   Role = "quant_developer"
	RolePortfolioManager Role = "portfolio_manager"
	RoleAnalyst          Role = "analyst"
	RoleAssociate        Role = "associate"
	RoleVP               Role = "vp"
	RoleDirector         Role = "director"
)

var knownRoles = []Role{
	RoleIntern, RoleNewGrad, RoleMid, RoleSenior, RoleStaff,
	RoleQuantResearcher, RoleQuantDeveloper, RolePortfolioManager,
	RoleAnalyst, RoleAssociate, RoleVP, RoleDirector,
}

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range knownRoles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}
