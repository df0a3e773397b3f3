// Package service provides business logic for the application.
package service

import (
	"errors"

	"github.com/meetly/meetly/internal/policy"
)

// Service errors.
var (
	ErrValidation         = errors.New("validation failed")
	ErrMeetingInPast      = errors.New("meeting must end in the future")
	ErrMeetingNotFound    = errors.New("meeting not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = policy.ErrUnauthenticated
	ErrForbidden          = policy.ErrForbidden
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
