package domain

import "time"

// Problem is a catalog entry. Problems are immutable once seeded.
type Problem struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Statement        string    `json:"statement"`
	Category         Category  `json:"category"`
	Field            Field     `json:"field"`
	DifficultyRating int       `json:"difficulty_rating"`
	Company          string    `json:"company,omitempty"`
	RoleLevel        string    `json:"role_level,omitempty"`
	Hints            []string  `json:"hints"`
	SolutionApproach string    `json:"solution_approach,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	TimeLimitSec     int       `json:"time_limit_sec,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// ProblemQuery filters catalog queries. Zero values mean "no constraint".
type ProblemQuery struct {
	Field     Field
	Category  Category
	Company   string
	MinRating int
	MaxRating int
	ExcludeID string
	Limit     int
}

// Matches reports whether p satisfies every constraint in q except Limit.
func (q ProblemQuery) Matches(p *Problem) bool {
	if q.Field != "" && p.Field != q.Field {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Company != "" && p.Company != q.Company {
		return false
	}
	if q.MinRating > 0 && p.DifficultyRating < q.MinRating {
		return false
	}
	if q.MaxRating > 0 && p.DifficultyRating > q.MaxRating {
		return false
	}
	if q.ExcludeID != "" && p.ID == q.ExcludeID {
		return false
	}
	return true
}
