package apperrors

import (
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrSigningFailed  ErrorType = "SIGNING_FAILED"
	ErrVenue          ErrorType = "VENUE_ERROR"
	ErrNetwork        ErrorType = "NETWORK_ERROR"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrBotRunning     ErrorType = "BOT_RUNNING"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application.
// Stage carries which step produced the failure (prepare / sign / login /
// order / cancel / sweep) so the caller can report it without parsing text.
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Stage      string    `json:"stage,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
	}
}

// NewStage tags the error with the pipeline stage that failed.
func NewStage(errType ErrorType, stage, msg string, cause error) *AppError {
	e := New(errType, msg, cause)
	e.Stage = stage
	return e
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Type == t
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrBotRunning:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrVenue, ErrUpstream:
		return http.StatusBadGateway
	case ErrNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
