package api

import (
	"net/http"

	"github.com/felixgeelhaar/rehearse/internal/domain"
	"github.com/felixgeelhaar/rehearse/internal/interview"
)

type startInterviewRequest struct {
	ProblemID string `json:"problem_id"`
	Field     string `json:"field"`
}

type transcriptRequest struct {
	Speaker      string `json:"speaker"`
	Text         string `json:"text"`
	Kind         string `json:"kind"`
	QuestionType string `json:"question_type"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type codeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type nextQuestionRequest struct {
	Field string `json:"field"`
}

type finalizeRequest struct {
	DurationSec        int    `json:"duration_sec"`
	HintsUsed          int    `json:"hints_used"`
	Code               string `json:"code"`
	Passed             *bool  `json:"passed"`
	CorrectAnswers     *int   `json:"correct_answers"`
	QuestionsAttempted *int   `json:"questions_attempted"`
}

func (r *Router) handleListInterviews(w http.ResponseWriter, req *http.Request) {
	interviews, err := r.app.Interviews.List(req.Context(), req.PathValue("userID"), intParam(req, "limit", 0))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"interviews": interviews,
		"total":      len(interviews),
	})
}

func (r *Router) handleStartInterview(w http.ResponseWriter, req *http.Request) {
	var body startInterviewRequest
	if req.ContentLength != 0 && !decodeJSON(w, req, &body) {
		return
	}
	field, err := parseOptionalField(body.Field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	iv, err := r.app.Interviews.Start(req.Context(), req.PathValue("userID"), body.ProblemID, field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusCreated, iv)
}

func (r *Router) handleGetInterview(w http.ResponseWriter, req *http.Request) {
	iv, err := r.app.Interviews.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, iv)
}

func (r *Router) handleInterviewReport(w http.ResponseWriter, req *http.Request) {
	report, err := r.app.Interviews.Report(req.Context(), req.PathValue("id"))
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

func (r *Router) handleAppendTranscript(w http.ResponseWriter, req *http.Request) {
	var body transcriptRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	err := r.app.Interviews.AppendTranscript(req.Context(), req.PathValue("id"), domain.TranscriptEntry{
		Speaker:      domain.Speaker(body.Speaker),
		Text:         body.Text,
		Kind:         domain.EntryKind(body.Kind),
		QuestionType: body.QuestionType,
	})
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleInterviewChat(w http.ResponseWriter, req *http.Request) {
	var body chatRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.Message == "" {
		BadRequest(w, req, "message is required")
		return
	}
	reply, err := r.app.Interviews.Chat(req.Context(), req.PathValue("id"), body.Message)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, reply)
}

func (r *Router) handleInterviewCode(w http.ResponseWriter, req *http.Request) {
	var body codeRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.Code == "" {
		BadRequest(w, req, "code is required")
		return
	}
	review, err := r.app.Interviews.EvaluateCode(req.Context(), req.PathValue("id"), body.Code, body.Language)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, review)
}

func (r *Router) handleNextQuestion(w http.ResponseWriter, req *http.Request) {
	var body nextQuestionRequest
	if req.ContentLength != 0 && !decodeJSON(w, req, &body) {
		return
	}
	field, err := parseOptionalField(body.Field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	p, err := r.app.Interviews.NextQuestion(req.Context(), req.PathValue("id"), field)
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// handleFinalize completes the interview. A second call answers 409.
func (r *Router) handleFinalize(w http.ResponseWriter, req *http.Request) {
	var body finalizeRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	res, err := r.app.Interviews.Finalize(req.Context(), req.PathValue("id"), interview.Outcome{
		DurationSec:        body.DurationSec,
		HintsUsed:          body.HintsUsed,
		Code:               body.Code,
		Passed:             body.Passed,
		CorrectAnswers:     body.CorrectAnswers,
		QuestionsAttempted: body.QuestionsAttempted,
	})
	if err != nil {
		WriteDomainError(w, req, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

func parseOptionalField(s string) (domain.Field, error) {
	if s == "" {
		return "", nil
	}
	return domain.ParseField(s)
}
