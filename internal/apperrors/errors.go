package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// Category classifies an error for retry and response decisions
type Category string

const (
	// CategoryValidation is a malformed address or chain selector
	CategoryValidation Category = "validation_error"
	// CategoryBackendUnavailable is a failed chain RPC or network call
	CategoryBackendUnavailable Category = "backend_unavailable"
	// CategoryCacheUnavailable is a storage failure on read or write
	CategoryCacheUnavailable Category = "cache_unavailable"
	// CategoryCanceled is a request abandoned by its caller or its deadline
	CategoryCanceled Category = "request_canceled"
	// CategoryInternal is anything not otherwise classified
	CategoryInternal Category = "internal_error"
)

// Error carries the category and the subsystem context of a failure
type Error struct {
	Category Category
	Op       string
	Chain    entities.Chain
	Subject  string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	ctx := e.Op
	if e.Chain != "" {
		ctx += " " + string(e.Chain)
	}
	if e.Subject != "" {
		ctx += " " + e.Subject
	}

	if e.Message != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Category, ctx, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Category, ctx, msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError creates an error for input that should have been rejected upstream
func NewValidationError(op string, chain entities.Chain, subject, message string) *Error {
	return &Error{
		Category: CategoryValidation,
		Op:       op,
		Chain:    chain,
		Subject:  subject,
		Message:  message,
	}
}

// NewBackendUnavailable wraps a failed chain call
func NewBackendUnavailable(op string, chain entities.Chain, subject string, err error) *Error {
	return &Error{
		Category: CategoryBackendUnavailable,
		Op:       op,
		Chain:    chain,
		Subject:  subject,
		Err:      err,
	}
}

// NewCacheUnavailable wraps a storage failure
func NewCacheUnavailable(op string, chain entities.Chain, subject string, err error) *Error {
	return &Error{
		Category: CategoryCacheUnavailable,
		Op:       op,
		Chain:    chain,
		Subject:  subject,
		Err:      err,
	}
}

// StatusClientClosedRequest is the non-standard status logged when the
// client goes away before the response is written
const StatusClientClosedRequest = 499

// CategoryOf returns the category of err, or CategoryInternal
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	if IsCanceled(err) {
		return CategoryCanceled
	}
	return CategoryInternal
}

// IsCanceled reports whether err is a context cancellation or deadline
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether retrying the request later could succeed
func IsRetryable(err error) bool {
	return CategoryOf(err) == CategoryBackendUnavailable
}

// IsUserError reports whether the caller sent bad input
func IsUserError(err error) bool {
	return CategoryOf(err) == CategoryValidation
}

// HTTPStatus maps an error to the response status code
func HTTPStatus(err error) int {
	switch CategoryOf(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryBackendUnavailable:
		return http.StatusBadGateway
	case CategoryCacheUnavailable:
		return http.StatusServiceUnavailable
	case CategoryCanceled:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a message safe to show to API clients
func PublicMessage(err error) string {
	if CategoryOf(err) == CategoryCanceled {
		if errors.Is(err, context.DeadlineExceeded) {
			return "request timed out"
		}
		return "request canceled"
	}

	var e *Error
	if !errors.As(err, &e) {
		return "internal server error"
	}

	switch e.Category {
	case CategoryValidation:
		if e.Message != "" {
			return e.Message
		}
		return "invalid request"
	case CategoryBackendUnavailable:
		return fmt.Sprintf("%s backend unavailable", e.Chain)
	case CategoryCacheUnavailable:
		return "cache storage unavailable"
	default:
		return "internal server error"
	}
}
