package util

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewAlreadyTaken signals a lost claim race: another operator holds the
// ticket. Surfaced as its own code so the transport layer can tell the
// caller their claim lost, not that something broke.
func NewAlreadyTaken(details map[string]any) error {
	return NewDomainError("ALREADY_TAKEN", "ticket already taken by another operator", http.StatusConflict, details)
}

// NewAlreadyCompleted signals completion of a terminal ticket.
func NewAlreadyCompleted(details map[string]any) error {
	return NewDomainError("ALREADY_COMPLETED", "ticket already completed", http.StatusConflict, details)
}

// NewQuotaExhausted signals that the requester has no report balance left.
func NewQuotaExhausted(details map[string]any) error {
	return NewDomainError("QUOTA_EXHAUSTED", "no reports remaining on subscription", http.StatusPaymentRequired, details)
}

// NewRateLimited signals too many submissions in the current window.
func NewRateLimited(details map[string]any) error {
	return NewDomainError("RATE_LIMITED", "too many requests", http.StatusTooManyRequests, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
