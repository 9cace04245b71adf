package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Concrete error types below report Is() against these so
// callers can branch with errors.Is without knowing the concrete type.
var (
	ErrValidation           = errors.New("validation failed")
	ErrAnswer               = errors.New("invalid answer")
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrNotFound             = errors.New("not found")
	ErrStorage              = errors.New("storage failure")
)

// Violation is one field-level validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one pass.
type ValidationError struct {
	Violations []Violation
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(violations ...Violation) *ValidationError {
	return &ValidationError{Violations: violations}
}

// Add appends a violation.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
}

// OrNil returns e when it holds violations and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

// Has reports whether a violation was recorded for field.
func (e *ValidationError) Has(field string) bool {
	for _, v := range e.Violations {
		if v.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.Field + ": " + v.Message
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AnswerError rejects a submission because of one offending question.
type AnswerError struct {
	QuestionID string
	Reason     string
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("%s: question %q: %s", ErrAnswer, e.QuestionID, e.Reason)
}

func (e *AnswerError) Is(target error) bool { return target == ErrAnswer }

// IncompleteError rejects a submission that answers fewer questions than the
// template has.
type IncompleteError struct {
	Answered int
	Required int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %d of %d questions answered", ErrIncompleteSubmission, e.Answered, e.Required)
}

func (e *IncompleteError) Is(target error) bool { return target == ErrIncompleteSubmission }

// NotFoundError names the kind and id of a missing entity.
type NotFoundError struct {
	Kind string
	ID   string
}

// NewNotFound returns a NotFoundError for kind/id.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps an opaque persistence failure.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err for op; nil stays nil.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
