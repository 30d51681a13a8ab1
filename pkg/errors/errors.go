package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages on these errors are shown to the submitter as-is.
var (
	ErrInvalidPayload = NewError("invalid_payload", "Invalid request data.", http.StatusBadRequest)
	ErrValidation     = NewError("validation_error", "Invalid request data.", http.StatusBadRequest)
	ErrRateLimited    = NewError("rate_limited", "Too many requests. Please wait a minute.", http.StatusTooManyRequests)
	ErrDispatchFailed = NewError("dispatch_failed", "We could not send your message. Please try again.", http.StatusInternalServerError)
	ErrInternal       = NewError("internal_error", "We could not send your message. Please try again.", http.StatusInternalServerError)
)

type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	Cause   error
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code and status so that copies made by WithCause or
// WithMessage still compare equal to the sentinel they came from.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Status == t.Status
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(message string) *Error {
	err := *e
	err.Message = message
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func IsDispatchFailed(err error) bool {
	return errors.Is(err, ErrDispatchFailed)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ToErrorResponse renders the public failure body. Causes and details stay
// server side.
func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	return map[string]interface{}{
		"ok":    false,
		"error": appErr.Message,
	}
}
