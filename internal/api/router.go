package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/api/middleware"
	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux *http.ServeMux
	app *App
	ws  *InterviewSocket

	expensive func(http.Handler) http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) (http.Handler, error) {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
		ws:  NewInterviewSocket(app.Interviews, app.Config.CORSOrigins),
	}

	r.expensive = func(h http.Handler) http.Handler { return h }
	if !app.Config.Debug {
		r.expensive = middleware.ExpensiveRateLimitMiddleware(middleware.DefaultRateLimitConfig())
	}

	r.registerRoutes()

	return r.buildMiddlewareChain(r.mux, app), nil
}

func (r *Router) registerRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Users
	r.mux.HandleFunc("GET /api/v1/users/{userID}", r.handleGetUser)
	r.mux.HandleFunc("PUT /api/v1/users/{userID}/onboarding", r.handleOnboarding)
	r.mux.HandleFunc("GET /api/v1/users/{userID}/dashboard", r.handleDashboard)
	r.mux.HandleFunc("GET /api/v1/users/{userID}/rating-events", r.handleRatingEvents)

	// Problems and recommendation
	r.mux.HandleFunc("GET /api/v1/problems", r.handleListProblems)
	r.mux.HandleFunc("GET /api/v1/problems/{id}", r.handleGetProblem)
	r.mux.HandleFunc("GET /api/v1/users/{userID}/recommendations", r.handleRecommendations)
	r.mux.HandleFunc("GET /api/v1/users/{userID}/next-problem", r.handleNextProblem)

	// Attempts
	r.mux.HandleFunc("GET /api/v1/users/{userID}/attempts", r.handleListAttempts)
	r.mux.HandleFunc("POST /api/v1/users/{userID}/attempts", r.handleSubmitAttempt)
	r.mux.Handle("POST /api/v1/users/{userID}/solutions", r.costly(r.handleSubmitSolution))
	r.mux.Handle("POST /api/v1/evaluate", r.costly(r.handleEvaluate))

	// Diagnostic
	r.mux.HandleFunc("GET /api/v1/diagnostic", r.handleDiagnosticSet)
	r.mux.Handle("POST /api/v1/users/{userID}/diagnostic", r.costly(r.handleSubmitDiagnostic))

	// Interviews
	r.mux.HandleFunc("GET /api/v1/users/{userID}/interviews", r.handleListInterviews)
	r.mux.HandleFunc("POST /api/v1/users/{userID}/interviews", r.handleStartInterview)
	r.mux.HandleFunc("GET /api/v1/interviews/{id}", r.handleGetInterview)
	r.mux.HandleFunc("GET /api/v1/interviews/{id}/report", r.handleInterviewReport)
	r.mux.HandleFunc("POST /api/v1/interviews/{id}/transcript", r.handleAppendTranscript)
	r.mux.Handle("POST /api/v1/interviews/{id}/chat", r.costly(r.handleInterviewChat))
	r.mux.Handle("POST /api/v1/interviews/{id}/code", r.costly(r.handleInterviewCode))
	r.mux.HandleFunc("POST /api/v1/interviews/{id}/next-question", r.handleNextQuestion)
	r.mux.Handle("POST /api/v1/interviews/{id}/finalize", r.costly(r.handleFinalize))
	r.mux.HandleFunc("GET /api/v1/interviews/{id}/ws", r.ws.ServeHTTP)
}

// costly applies the stricter limiter to handlers that call the LLM.
func (r *Router) costly(h http.HandlerFunc) http.Handler {
	return r.expensive(h)
}

func (r *Router) buildMiddlewareChain(handler http.Handler, app *App) http.Handler {
	// Order matters: outermost first
	// 1. Recovery - catch panics
	// 2. Logger - log all requests
	// 3. RateLimit - per-IP limits (skipped in debug)
	// 4. RequestID - add request ID
	// 5. CORS - handle cross-origin requests
	h := middleware.CORS(app.Config.CORSOrigins)(handler)
	h = middleware.RequestID(h)
	if !app.Config.Debug {
		h = middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig())(h)
	}
	h = middleware.Logger(h)
	h = middleware.Recovery(h)
	return h
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// handleReady runs every registered probe; any failure answers 503.
func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string)
	for _, c := range r.app.Checks() {
		if err := c.Probe(ctx); err != nil {
			checks[c.Name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "healthy"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	WriteJSON(w, status, map[string]any{
		"status": state,
		"checks": checks,
	})
}

// fieldParam reads the optional field query parameter. Empty means the
// user's own field.
func fieldParam(req *http.Request) (domain.Field, error) {
	v := req.URL.Query().Get("field")
	if v == "" {
		return "", nil
	}
	return domain.ParseField(v)
}

// intParam reads a non-negative integer query parameter.
func intParam(req *http.Request, name string, def int) int {
	v := req.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
