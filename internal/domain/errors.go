package domain

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by repositories
// and services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Not found errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrProblemNotFound   = errors.New("problem not found")
	ErrInterviewNotFound = errors.New("interview not found")
)

// Invalid state errors
var (
	ErrAlreadyFinalized   = errors.New("interview already finalized")
	ErrInterviewCompleted = errors.New("interview is completed")
	ErrInvalidOutcome     = errors.New("invalid outcome")
	ErrInvalidField       = errors.New("invalid field")
	ErrInvalidMode        = errors.New("invalid attempt mode")
	ErrInvalidRole        = errors.New("invalid role")
)

// Catalog errors
var (
	ErrNoProblemsAvailable = errors.New("no problems available")
)

// Upstream errors
var (
	ErrUpstream = errors.New("upstream failure")
)

// UpstreamError reports a failed call to an external collaborator such as
// the code evaluator or the dialogue generator.
type UpstreamError struct {
	Service string
	Err     error
}

// NewUpstreamError wraps err as a failure of the named service.
func NewUpstreamError(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUpstream) true for every UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// IsNotFound reports whether err is one of the not found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrProblemNotFound) ||
		errors.Is(err, ErrInterviewNotFound)
}

// IsInvalidState reports whether err rejects a request before any write.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrAlreadyFinalized) ||
		errors.Is(err, ErrInterviewCompleted) ||
		errors.Is(err, ErrInvalidOutcome) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrInvalidRole)
}
