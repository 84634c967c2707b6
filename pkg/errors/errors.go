package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Scheduling-engine rejections. Every failed assignment request maps to
// exactly one of these codes.
var (
	ErrInvalidSlot       = New("INVALID_SLOT", http.StatusBadRequest, "time window is not a catalog period")
	ErrInvalidGroup      = New("INVALID_GROUP", http.StatusBadRequest, "group number has no mapped room")
	ErrInvalidDate       = New("INVALID_DATE", http.StatusBadRequest, "start date is not a valid calendar date")
	ErrProfessorNotFound = New("PROFESSOR_NOT_FOUND", http.StatusNotFound, "professor not found")
	ErrSubjectNotOwned   = New("SUBJECT_NOT_ASSIGNED", http.StatusBadRequest, "subject is not assigned to this professor")
	ErrSubjectTaken      = New("DUPLICATE_SUBJECT_OWNERSHIP", http.StatusConflict, "subject is already taught to this group by another professor")
	ErrDailyLimit        = New("DAILY_LIMIT_EXCEEDED", http.StatusConflict, "professor has reached the daily class limit")
	ErrResourceConflict  = New("RESOURCE_CONFLICT", http.StatusConflict, "room or group already booked in this window")
	ErrTransient         = New("TRANSIENT", http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request")
)

// FromError normalises any error into an *Error.
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

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
