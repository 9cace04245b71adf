// Package repository defines the template and submission store interfaces
// and their in-memory implementation.
package repository

import (
	"context"

	"github.com/okian/learnstyle/internal/domain/model"
)

// TemplateStore persists immutable survey templates.
type TemplateStore interface {
	// CreateTemplate stores t. The id must not exist yet.
	CreateTemplate(ctx context.Context, t model.Template) error

	// GetTemplate returns the template with id.
	// Returns an error matching ErrNotFound if it is unknown.
	GetTemplate(ctx context.Context, id string) (model.Template, error)

	// ListTemplates returns summaries of every template, newest first.
	ListTemplates(ctx context.Context) ([]model.TemplateSummary, error)
}

// SubmissionStore persists scored submissions. Records are append-only.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, s model.Submission) error

	// GetSubmission returns an error matching ErrNotFound if id is unknown.
	GetSubmission(ctx context.Context, id string) (model.Submission, error)

	// ListSubmissionsByStudent returns every submission of the student,
	// CreatedAt descending; records with equal timestamps are returned
	// newest insertion first. An unknown student yields an empty list.
	ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error)
}

// Store is a complete persistence backend.
type Store interface {
	TemplateStore
	SubmissionStore
	Close() error
}
