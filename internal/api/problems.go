package api

import (
	"net/http"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/practice"
)

const maxProblemLimit = 100

type evaluateRequest struct {
	ProblemID string `json:"problem_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

type diagnosticRequest struct {
	Field   string                      `json:"field"`
	Answers []practice.DiagnosticAnswer `json:"answers"`
}

func (r *Router) handleListProblems(w http.ResponseWriter, req *http.Request) {
	field, err := fieldParam(req)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	q := req.URL.Query()
	problems, err := r.app.Practice.ListProblems(req.Context(), domain.ProblemQuery{
		Field:    field,
		Category: domain.Category(q.Get("category")),
		Company:  q.Get("company"),
		Limit:    min(intParam(req, "limit", 50), maxProblemLimit),
	})
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"problems": problems,
		"total":    len(problems),
	})
}

func (r *Router) handleGetProblem(w http.ResponseWriter, req *http.Request) {
	p, err := r.app.Practice.GetProblem(req.Context(), req.PathValue("id"))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (r *Router) handleRecommendations(w http.ResponseWriter, req *http.Request) {
	problems, err := r.app.Practice.RecommendedProblems(req.Context(), req.PathValue("userID"),
		min(intParam(req, "limit", 0), maxProblemLimit))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"recommendations": problems,
	})
}

func (r *Router) handleNextProblem(w http.ResponseWriter, req *http.Request) {
	field, err := fieldParam(req)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	p, err := r.app.Practice.GetRecommendedProblem(req.Context(), req.PathValue("userID"), field,
		req.URL.Query().Get("exclude"))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handleEvaluate judges code without recording an attempt.
func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) {
	var body evaluateRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.ProblemID == "" || body.Code == "" {
		BadRequest(w, req, "problem_id and code are required")
		return
	}
	res, err := r.app.Practice.EvaluateCode(req.Context(), body.ProblemID, body.Code, body.Language)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func (r *Router) handleDiagnosticSet(w http.ResponseWriter, req *http.Request) {
	field, err := domain.FieldOrDefault(req.URL.Query().Get("field"))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	problems, err := r.app.Practice.DiagnosticSet(req.Context(), field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"field":    field,
		"problems": problems,
	})
}

func (r *Router) handleSubmitDiagnostic(w http.ResponseWriter, req *http.Request) {
	var body diagnosticRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	field, err := domain.FieldOrDefault(body.Field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	if len(body.Answers) == 0 {
		BadRequest(w, req, "answers are required")
		return
	}
	outcome, err := r.app.Practice.SubmitDiagnostic(req.Context(), req.PathValue("userID"), field, body.Answers)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, outcome)
}
