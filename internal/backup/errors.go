// Labelkeeper - Scheduled Label Backups with Remote Shipping
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/labelkeeper

package backup

import (
	"errors"
	"fmt"

	"github.com/tomtom215/labelkeeper/internal/validation"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrSubprocessFailure is matched by every *SubprocessFailure.
	ErrSubprocessFailure = errors.New("subprocess failed")
)

// ValidationError rejects a request before anything is persisted or spawned.
type ValidationError struct {
	Message string
	Fields  []validation.FieldError
	details map[string]interface{}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Details renders the failing fields for the API error envelope.
func (e *ValidationError) Details() map[string]interface{} {
	return e.details
}

func newValidationError(verr *validation.RequestValidationError) *ValidationError {
	return &ValidationError{
		Message: verr.Error(),
		Fields:  verr.Errors(),
		details: verr.Details(),
	}
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("%s %s", field, message),
		Fields:  []validation.FieldError{{Field: field, Message: message}},
		details: map[string]interface{}{"field": field},
	}
}

// SubprocessFailure is a manual operation whose child process exited non-zero.
type SubprocessFailure struct {
	Op       string
	ExitCode int
	Stderr   string
}

func (e *SubprocessFailure) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", e.Op, e.ExitCode)
}

func (e *SubprocessFailure) Is(target error) bool { return target == ErrSubprocessFailure }
