package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is matched by every ValidationError: bad requests, weight
// profiles and configuration alike.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError collects every violation found while checking one entity.
type ValidationError struct {
	// Entity names what was checked, e.g. "AnalysisRequest".
	Entity string
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %s", e.Entity, strings.Join(e.Errors, "; "))
}

// AddError records one violation.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NewValidationError starts an empty ValidationError for entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: []string{}}
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
