package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/rehearse/internal/config"
	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/rating"
	"github.com/felixgeelhaar/rehearse/internal/storage/sqlite"
)

// newTestApp wires real services over a temporary SQLite database with no
// LLM collaborators.
func newTestApp(t *testing.T) *App {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	app := &App{
		Config: &config.Config{Debug: true, CORSOrigins: []string{"*"}},
		UoW:    sqlite.NewUnitOfWork(db),
		Events: sqlite.NewEventStore(db),
	}
	app.AddCheck("database", db.PingContext)

	ctx := context.Background()
	for _, p := range []*domain.Problem{
		{ID: "two-sum", Title: "Two Sum", Statement: "Find two numbers that add to target.", Field: domain.FieldSWE, Category: domain.CategoryArrays, DifficultyRating: 1200},
		{ID: "anagram", Title: "Valid Anagram", Statement: "Check whether two strings are anagrams.", Field: domain.FieldSWE, Category: domain.CategoryStrings, DifficultyRating: 1150},
		{ID: "dice", Title: "Dice Game", Statement: "Expected value of one roll.", Field: domain.FieldQF, Category: domain.CategoryProbability, DifficultyRating: 1250},
	} {
		p.CreatedAt = time.Now().UTC()
		if err := app.UoW.Problems().Save(ctx, p); err != nil {
			t.Fatalf("seed problem: %v", err)
		}
	}

	app.wire(app.UoW.Problems(), app.Events, nil)
	return app
}

func newTestServer(t *testing.T) (*httptest.Server, *App) {
	t.Helper()
	app := newTestApp(t)
	handler, err := NewRouter(app)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, app
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndReady(t *testing.T) {
	srv, app := newTestServer(t)

	if code := doJSON(t, http.MethodGet, srv.URL+"/health", nil, nil); code != http.StatusOK {
		t.Errorf("health status = %d", code)
	}

	var ready struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/ready", nil, &ready); code != http.StatusOK {
		t.Errorf("ready status = %d", code)
	}
	if ready.Checks["database"] != "healthy" {
		t.Errorf("checks = %v", ready.Checks)
	}

	app.AddCheck("redis", func(context.Context) error { return errors.New("down") })
	if code := doJSON(t, http.MethodGet, srv.URL+"/ready", nil, &ready); code != http.StatusServiceUnavailable {
		t.Errorf("ready with failing check = %d, want 503", code)
	}
	if ready.Status != "not ready" || ready.Checks["redis"] != "unhealthy" {
		t.Errorf("ready = %+v", ready)
	}
}

func TestUsers_LazyCreateAndOnboard(t *testing.T) {
	srv, _ := newTestServer(t)

	var user domain.User
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/u1", nil, &user); code != http.StatusOK {
		t.Fatalf("get user status = %d", code)
	}
	if user.ID != "u1" || user.CurrentRating != rating.DefaultRating || user.Field != domain.FieldSWE {
		t.Errorf("user = %+v", user)
	}

	tests := []struct {
		name string
		body onboardingRequest
		want int
	}{
		{"unknown field", onboardingRequest{Field: "law", Role: "analyst"}, http.StatusBadRequest},
		{"unknown role", onboardingRequest{Field: "IB", Role: "ceo"}, http.StatusBadRequest},
		{"valid", onboardingRequest{Field: "qf", Role: "quant_researcher"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.User
			if code := doJSON(t, http.MethodPut, srv.URL+"/api/v1/users/u1/onboarding", tt.body, &got); code != tt.want {
				t.Fatalf("status = %d, want %d", code, tt.want)
			}
			if tt.want == http.StatusOK && got.Field != domain.FieldQF {
				t.Errorf("field = %q, want QF", got.Field)
			}
		})
	}
}

func TestProblems(t *testing.T) {
	srv, _ := newTestServer(t)

	var list struct {
		Problems []domain.Problem `json:"problems"`
		Total    int              `json:"total"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/problems?field=swe", nil, &list); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if list.Total != 2 || list.Problems[0].ID != "anagram" {
		t.Errorf("list = %+v", list)
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/problems?field=history", nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad field status = %d, want 400", code)
	}

	var p domain.Problem
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/problems/dice", nil, &p); code != http.StatusOK || p.Field != domain.FieldQF {
		t.Errorf("get dice = %d %+v", code, p)
	}

	var apiErr ErrorResponse
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/problems/missing", nil, &apiErr); code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", code)
	}
	if apiErr.Error == nil || apiErr.Error.Code != "NOT_FOUND" {
		t.Errorf("error body = %+v", apiErr.Error)
	}

	var next domain.Problem
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/u2/next-problem?exclude=two-sum", nil, &next); code != http.StatusOK {
		t.Fatalf("next-problem status = %d", code)
	}
	if next.ID != "anagram" {
		t.Errorf("next-problem = %q, want anagram", next.ID)
	}
}

func TestAttempts_SubmitListAndEvents(t *testing.T) {
	srv, _ := newTestServer(t)

	var res struct {
		RatingDelta int `json:"rating_delta"`
		NewRating   int `json:"new_rating"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/u1/attempts", attemptRequest{
		ProblemID:    "two-sum",
		IsCorrect:    true,
		TimeSpentSec: 300,
	}, &res)
	if code != http.StatusCreated {
		t.Fatalf("submit status = %d", code)
	}
	if res.RatingDelta <= 0 || res.NewRating != rating.DefaultRating+res.RatingDelta {
		t.Errorf("submit = %+v", res)
	}

	bad := []struct {
		name string
		body attemptRequest
		want int
	}{
		{"negative time", attemptRequest{ProblemID: "two-sum", TimeSpentSec: -5}, http.StatusBadRequest},
		{"unknown mode", attemptRequest{ProblemID: "two-sum", Mode: "exam"}, http.StatusBadRequest},
		{"unknown problem", attemptRequest{ProblemID: "nope"}, http.StatusNotFound},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/u1/attempts", tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}

	var attempts struct {
		Attempts []domain.Attempt `json:"attempts"`
		Total    int              `json:"total"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/u1/attempts?problem_id=two-sum", nil, &attempts); code != http.StatusOK {
		t.Fatalf("list status = %d", code)
	}
	if attempts.Total != 1 || !attempts.Attempts[0].IsCorrect {
		t.Errorf("attempts = %+v", attempts)
	}

	var events struct {
		Events []domain.RatingEvent `json:"events"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/u1/rating-events", nil, &events); code != http.StatusOK {
		t.Fatalf("events status = %d", code)
	}
	if len(events.Events) != 1 || events.Events[0].Type != domain.EventAttemptScored {
		t.Errorf("events = %+v", events.Events)
	}

	var dash struct {
		Rating int `json:"rating"`
		Stats  struct {
			ProblemsSolved int `json:"problemsSolved"`
		} `json:"stats"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/u1/dashboard", nil, &dash); code != http.StatusOK {
		t.Fatalf("dashboard status = %d", code)
	}
	if dash.Rating != res.NewRating || dash.Stats.ProblemsSolved != 1 {
		t.Errorf("dashboard = %+v", dash)
	}
}

func TestEvaluate_NoEvaluatorIsUpstreamFailure(t *testing.T) {
	srv, _ := newTestServer(t)

	var apiErr ErrorResponse
	code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/evaluate", evaluateRequest{
		ProblemID: "two-sum",
		Code:      "func twoSum(nums []int, target int) []int { return nil }",
		Language:  "go",
	}, &apiErr)
	if code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", code)
	}
	if apiErr.Error.Code != "UPSTREAM_UNAVAILABLE" {
		t.Errorf("code = %q", apiErr.Error.Code)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/evaluate", evaluateRequest{ProblemID: "two-sum"}, nil); code != http.StatusBadRequest {
		t.Errorf("empty code status = %d, want 400", code)
	}
}

func TestInterviews_Lifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	var iv domain.Interview
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users/u1/interviews", startInterviewRequest{ProblemID: "two-sum"}, &iv); code != http.StatusCreated {
		t.Fatalf("start status = %d", code)
	}
	if iv.Status != domain.StatusInProgress || len(iv.Transcript) != 1 {
		t.Fatalf("started interview = %+v", iv)
	}
	base := srv.URL + "/api/v1/interviews/" + iv.ID

	if code := doJSON(t, http.MethodPost, base+"/transcript", transcriptRequest{Speaker: "User", Text: "Thinking out loud"}, nil); code != http.StatusNoContent {
		t.Errorf("transcript status = %d", code)
	}
	if code := doJSON(t, http.MethodPost, base+"/transcript", transcriptRequest{Speaker: "Bot", Text: "?"}, nil); code != http.StatusBadRequest {
		t.Errorf("bad speaker status = %d, want 400", code)
	}

	var reply struct {
		Message string `json:"message"`
		Phase   string `json:"phase"`
	}
	if code := doJSON(t, http.MethodPost, base+"/chat", chatRequest{Message: "I'd use a hash map."}, &reply); code != http.StatusOK {
		t.Fatalf("chat status = %d", code)
	}
	if reply.Message == "" || reply.Phase == "" {
		t.Errorf("reply = %+v", reply)
	}

	var fin struct {
		Interview   domain.Interview `json:"interview"`
		RatingDelta int              `json:"rating_delta"`
	}
	if code := doJSON(t, http.MethodPost, base+"/finalize", finalizeRequest{DurationSec: 1200}, &fin); code != http.StatusOK {
		t.Fatalf("finalize status = %d", code)
	}
	if fin.Interview.Status != domain.StatusCompleted || fin.Interview.PerformanceScore != 50 {
		t.Errorf("finalized = %+v", fin.Interview)
	}

	var apiErr ErrorResponse
	if code := doJSON(t, http.MethodPost, base+"/finalize", finalizeRequest{}, &apiErr); code != http.StatusConflict {
		t.Errorf("second finalize status = %d, want 409", code)
	}
	if code := doJSON(t, http.MethodPost, base+"/chat", chatRequest{Message: "still there?"}, nil); code != http.StatusConflict {
		t.Errorf("chat after finalize status = %d, want 409", code)
	}

	var report struct {
		ProblemTitle string `json:"problemTitle"`
		RatingChange int    `json:"ratingChange"`
	}
	if code := doJSON(t, http.MethodGet, base+"/report", nil, &report); code != http.StatusOK {
		t.Fatalf("report status = %d", code)
	}
	if report.ProblemTitle != "Two Sum" || report.RatingChange != fin.RatingDelta {
		t.Errorf("report = %+v", report)
	}

	var list struct {
		Total int `json:"total"`
	}
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/users/u1/interviews", nil, &list); code != http.StatusOK || list.Total != 1 {
		t.Errorf("list = %d %+v", code, list)
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/api/v1/interviews/missing", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing interview status = %d, want 404", code)
	}
}

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrNoProblemsAvailable, http.StatusNotFound},
		{domain.ErrAlreadyFinalized, http.StatusConflict},
		{domain.ErrInterviewCompleted, http.StatusConflict},
		{domain.ErrInvalidOutcome, http.StatusBadRequest},
		{domain.NewUpstreamError("code evaluator", errors.New("timeout")), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
