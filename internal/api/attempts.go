package api

import (
	"net/http"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/practice"
)

type attemptRequest struct {
	ProblemID    string `json:"problem_id"`
	Mode         string `json:"mode"`
	IsCorrect    bool   `json:"is_correct"`
	Score        *int   `json:"score"`
	TimeSpentSec int    `json:"time_spent_sec"`
	HintsUsed    int    `json:"hints_used"`
	Code         string `json:"code"`
	Language     string `json:"language"`
}

type solutionRequest struct {
	ProblemID    string `json:"problem_id"`
	Code         string `json:"code"`
	Language     string `json:"language"`
	TimeSpentSec int    `json:"time_spent_sec"`
	HintsUsed    int    `json:"hints_used"`
}

func (r *Router) handleListAttempts(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	filter := domain.AttemptFilter{
		ProblemID: q.Get("problem_id"),
		Limit:     intParam(req, "limit", 0),
	}
	if m := q.Get("mode"); m != "" {
		mode, err := domain.ParseAttemptMode(m)
		if err != nil {
			WriteDomainError(w, req, err)
			return
		}
		filter.Mode = mode
	}
	field, err := fieldParam(req)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	filter.Field = field

	attempts, err := r.app.Practice.ListAttempts(req.Context(), req.PathValue("userID"), filter)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"attempts": attempts,
		"total":    len(attempts),
	})
}

func (r *Router) handleSubmitAttempt(w http.ResponseWriter, req *http.Request) {
	var body attemptRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	res, err := r.app.Practice.SubmitAttempt(req.Context(), practice.SubmitRequest{
		UserID:       req.PathValue("userID"),
		ProblemID:    body.ProblemID,
		Mode:         domain.AttemptMode(body.Mode),
		IsCorrect:    body.IsCorrect,
		Score:        body.Score,
		TimeSpentSec: body.TimeSpentSec,
		HintsUsed:    body.HintsUsed,
		Code:         body.Code,
		Language:     body.Language,
	})
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusCreated, res)
}

// handleSubmitSolution judges the code and records the verdict as an attempt.
func (r *Router) handleSubmitSolution(w http.ResponseWriter, req *http.Request) {
	var body solutionRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.Code == "" {
		BadRequest(w, req, "code is required")
		return
	}
	res, err := r.app.Practice.SubmitSolution(req.Context(), practice.SolutionRequest{
		UserID:       req.PathValue("userID"),
		ProblemID:    body.ProblemID,
		Code:         body.Code,
		Language:     body.Language,
		TimeSpentSec: body.TimeSpentSec,
		HintsUsed:    body.HintsUsed,
	})
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusCreated, res)
}
