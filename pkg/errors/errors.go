package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the API-facing error: a stable code, an HTTP status and optional
// structured details (conflict records, failing phase).
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %v", e.Message, e.Code, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New builds a sentinel error. Callers derive per-request copies with Clone,
// Wrap or WithDetails so sentinels are never mutated.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap keeps cause for logs while exposing only code and message to clients.
func Wrap(cause error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: cause}
}

var (
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, "service unavailable")
)

// Routine planning outcomes.
var (
	ErrCatalogUnavailable      = New("CATALOG_UNAVAILABLE", http.StatusServiceUnavailable, "course catalog is unavailable, try again shortly")
	ErrCourseNotFound          = New("COURSE_NOT_FOUND", http.StatusNotFound, "course not found")
	ErrNoCandidatesForFaculty  = New("NO_CANDIDATES_FOR_FACULTY", http.StatusUnprocessableEntity, "no sections match the requested faculty")
	ErrExamConflict            = New("EXAM_CONFLICT", http.StatusConflict, "exam schedules conflict")
	ErrScheduleConflict        = New("SCHEDULE_CONFLICT", http.StatusConflict, "class schedules conflict")
	ErrPreferenceUnsatisfiable = New("PREFERENCE_UNSATISFIABLE", http.StatusUnprocessableEntity, "no routine fits the selected days and times")
	ErrTooManyCombinations     = New("TOO_MANY_COMBINATIONS", http.StatusUnprocessableEntity, "too many section combinations")
)

// HasCode reports whether err, or anything it wraps, carries target's code.
func HasCode(err error, target *Error) bool {
	if target == nil {
		return false
	}
	var e *Error
	return errors.As(err, &e) && e.Code == target.Code
}

// Retryable reports whether the same request may succeed later. Only 503s
// qualify: upstream catalog outages and a full refresh queue.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Status == http.StatusServiceUnavailable
}

// FromError returns the *Error inside err, or an INTERNAL_ERROR wrapping it.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// WithDetails copies err and attaches details.
func WithDetails(err *Error, details any) *Error {
	if err == nil {
		return nil
	}
	out := *err
	out.Details = details
	return &out
}

// Clone copies err, replacing the message when one is given.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	out := *err
	if message != "" {
		out.Message = message
	}
	return &out
}
