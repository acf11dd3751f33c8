package api

import (
	"net/http"

	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// maxEventLimit caps the rating-events listing.
const maxEventLimit = 200

type onboardingRequest struct {
	Field string `json:"field"`
	Role  string `json:"role"`
}

func (r *Router) handleGetUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.app.Practice.EnsureUser(req.Context(), req.PathValue("userID"))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (r *Router) handleOnboarding(w http.ResponseWriter, req *http.Request) {
	var body onboardingRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	field, err := domain.ParseField(body.Field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}

	user, err := r.app.Practice.Onboard(req.Context(), req.PathValue("userID"), field, domain.Role(body.Role))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (r *Router) handleDashboard(w http.ResponseWriter, req *http.Request) {
	field, err := fieldParam(req)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	summary, err := r.app.Practice.GetDashboardSummary(req.Context(), req.PathValue("userID"), field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func (r *Router) handleRatingEvents(w http.ResponseWriter, req *http.Request) {
	limit := min(intParam(req, "limit", 50), maxEventLimit)
	events, err := r.app.Events.ListByUser(req.Context(), req.PathValue("userID"), limit)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}
