// Package sqlstore implements repository.Store on database/sql for SQLite
// (modernc.org/sqlite) and Postgres (pgx stdlib).
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/metrics"
)

// Driver names a supported SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Store is a repository.Store backed by a SQL database.
type Store struct {
	db     *sql.DB
	driver Driver
}

// Open connects to dsn, verifies the connection and ensures the schema.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:learnstyle.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/learnstyle?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; in-memory databases also live only as long as their connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := schemaSQLite
	if s.driver == DriverPostgres {
		schema = schemaPostgres
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateTemplate(ctx context.Context, t model.Template) error {
	cj, err := json.Marshal(t.Categories)
	if err != nil {
		return err
	}
	qj, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO survey_templates
		(id,title,creator_name,question_count,categories_json,questions_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.Title, t.CreatorName, len(t.Questions), string(cj), string(qj), t.CreatedAt.UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("template %q: %w", t.ID, repository.ErrAlreadyExists)
	}
	return storageErr("create_template", err)
}

func (s *Store) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,creator_name,categories_json,questions_json,created_at
		FROM survey_templates WHERE id=$1`, id)

	var (
		t            model.Template
		cjson, qjson string
		createdAt    int64
	)
	if err := row.Scan(&t.ID, &t.Title, &t.CreatorName, &cjson, &qjson, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Template{}, model.NewNotFound("survey", id)
		}
		return model.Template{}, storageErr("get_template", err)
	}
	if err := json.Unmarshal([]byte(cjson), &t.Categories); err != nil {
		return model.Template{}, storageErr("get_template", err)
	}
	if err := json.Unmarshal([]byte(qjson), &t.Questions); err != nil {
		return model.Template{}, storageErr("get_template", err)
	}
	t.CreatedAt = fromNanos(createdAt)
	return t, nil
}

func (s *Store) ListTemplates(ctx context.Context) ([]model.TemplateSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,creator_name,question_count,created_at
		FROM survey_templates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, storageErr("list_templates", err)
	}
	defer rows.Close()

	out := []model.TemplateSummary{}
	for rows.Next() {
		var (
			ts        model.TemplateSummary
			createdAt int64
		)
		if err := rows.Scan(&ts.ID, &ts.Title, &ts.CreatorName, &ts.QuestionCount, &createdAt); err != nil {
			return nil, storageErr("list_templates", err)
		}
		ts.CreatedAt = fromNanos(createdAt)
		out = append(out, ts)
	}
	return out, storageErr("list_templates", rows.Err())
}

func (s *Store) CreateSubmission(ctx context.Context, sub model.Submission) error {
	enc := jsonColumns{}
	scores := enc.marshal(sub.Scores)
	labels := enc.marshal(sub.CategoryLabels)
	answers := enc.marshal(sub.Answers)
	details := enc.marshal(sub.AnswerDetails)
	if enc.err != nil {
		return enc.err
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO submissions
		(id,student_id,survey_id,status,session_id,course_title,dominant_category,dominant_category_label,
		 scores_json,category_labels_json,answers_json,answer_details_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		sub.ID, sub.StudentID, sub.SurveyID, sub.Status, sub.SessionID, sub.CourseTitle,
		sub.DominantCategory, sub.DominantCategoryLabel,
		scores, labels, answers, details, sub.CreatedAt.UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("submission %q: %w", sub.ID, repository.ErrAlreadyExists)
	}
	return storageErr("create_submission", err)
}

const submissionColumns = `id,student_id,survey_id,status,session_id,course_title,dominant_category,
	dominant_category_label,scores_json,category_labels_json,answers_json,answer_details_json,created_at`

func (s *Store) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, model.NewNotFound("submission", id)
	}
	if err != nil {
		return model.Submission{}, storageErr("get_submission", err)
	}
	return sub, nil
}

func (s *Store) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE student_id=$1 ORDER BY created_at DESC, seq DESC`, studentID)
	if err != nil {
		return nil, storageErr("list_submissions", err)
	}
	defer rows.Close()

	out := []model.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, storageErr("list_submissions", err)
		}
		out = append(out, sub)
	}
	return out, storageErr("list_submissions", rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (model.Submission, error) {
	var (
		sub                             model.Submission
		scores, labels, answers, detail string
		createdAt                       int64
	)
	if err := row.Scan(&sub.ID, &sub.StudentID, &sub.SurveyID, &sub.Status, &sub.SessionID, &sub.CourseTitle,
		&sub.DominantCategory, &sub.DominantCategoryLabel, &scores, &labels, &answers, &detail, &createdAt); err != nil {
		return model.Submission{}, err
	}
	for _, col := range []struct {
		raw string
		dst any
	}{
		{scores, &sub.Scores},
		{labels, &sub.CategoryLabels},
		{answers, &sub.Answers},
		{detail, &sub.AnswerDetails},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return model.Submission{}, err
		}
	}
	sub.CreatedAt = fromNanos(createdAt)
	return sub, nil
}

// jsonColumns marshals several values and keeps the first error.
type jsonColumns struct{ err error }

func (j *jsonColumns) marshal(v any) string {
	if j.err != nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		j.err = err
		return ""
	}
	return string(b)
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// uniqueViolation is the Postgres SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	metrics.RecordStorageError(op)
	return model.NewStorageError(op, err)
}
