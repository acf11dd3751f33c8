package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/felixgeelhaar/rehearse/internal/api/middleware"
	"github.com/felixgeelhaar/rehearse/internal/domain"
)

// APIError represents a structured API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// NewAPIError creates a new API error
func NewAPIError(code string, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WithDetails adds details to the error
func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

// ErrorResponse is the JSON structure for error responses
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int, apiErr *APIError) {
	logAttrs := []any{
		"code", apiErr.Code,
		"message", apiErr.Message,
		"status", statusCode,
		"method", r.Method,
		"path", r.URL.Path,
	}
	if apiErr.cause != nil {
		logAttrs = append(logAttrs, "cause", apiErr.cause.Error())
	}
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		logAttrs = append(logAttrs, "request_id", requestID)
	}

	if statusCode >= 500 {
		slog.Error("api error", logAttrs...)
	} else {
		slog.Warn("api error", logAttrs...)
	}

	WriteJSON(w, statusCode, ErrorResponse{Error: apiErr})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// WriteDomainError maps a service error to its HTTP status.
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var upstream *domain.UpstreamError
	switch {
	case domain.IsNotFound(err):
		WriteError(w, r, http.StatusNotFound, NewAPIError("NOT_FOUND", err.Error()))
	case errors.Is(err, domain.ErrNoProblemsAvailable):
		WriteError(w, r, http.StatusNotFound, NewAPIError("NO_PROBLEMS", err.Error()))
	case errors.Is(err, domain.ErrAlreadyFinalized), errors.Is(err, domain.ErrInterviewCompleted):
		WriteError(w, r, http.StatusConflict, NewAPIError("CONFLICT", err.Error()))
	case domain.IsInvalidState(err):
		WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", err.Error()))
	case errors.As(err, &upstream):
		WriteError(w, r, http.StatusBadGateway,
			NewAPIError("UPSTREAM_UNAVAILABLE", upstream.Service+" is unavailable").WithCause(err))
	default:
		WriteError(w, r, http.StatusInternalServerError,
			NewAPIError("INTERNAL_ERROR", "internal server error").WithCause(err))
	}
}

// BadRequest writes a 400 with message.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, NewAPIError("BAD_REQUEST", message))
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		BadRequest(w, r, "invalid request body")
		return false
	}
	return true
}
