// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/learnstyle/internal/domain/idempotency"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/logger"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// IdempotencyHeader carries the client-supplied key for createSubmission.
const IdempotencyHeader = "Idempotency-Key"

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SurveyDependencies
	SubmissionDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	surveysHandler    *SurveysHandler
	submissionHandler *SubmissionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		surveysHandler:    NewSurveysHandler(deps),
		submissionHandler: NewSubmissionsHandler(deps),
	}
}

// NewRouter returns a chi router with the common middleware stack. CORS is
// only enabled for the given origins.
func NewRouter(origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", IdempotencyHeader},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300,
		}))
	}
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}

	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/surveys", MetricsMiddleware(s.surveysHandler.HandleList, "list_surveys"))
		r.Post("/surveys", MetricsMiddleware(s.surveysHandler.HandleCreate, "create_survey"))
		r.Get("/surveys/{surveyId}", MetricsMiddleware(s.surveysHandler.HandleGet, "get_survey"))

		r.Post("/submissions", MetricsMiddleware(s.submissionHandler.HandleCreate, "create_submission"))
		r.Get("/submissions/{submissionId}", MetricsMiddleware(s.submissionHandler.HandleGet, "get_submission"))
		r.Get("/students/{studentId}/submissions", MetricsMiddleware(s.submissionHandler.HandleListForStudent, "list_student_submissions"))
	})
}

type errorResponse struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Violations []model.Violation `json:"violations,omitempty"`
	QuestionID string            `json:"questionId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps the error taxonomy onto status codes. Storage and
// unexpected failures are logged and reported with a generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *model.ValidationError
		aerr *model.AnswerError
		ierr *model.IncompleteError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:       "validation_failed",
			Message:    model.ErrValidation.Error(),
			Violations: verr.Violations,
		})
	case errors.As(err, &aerr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:       "invalid_answer",
			Message:    aerr.Error(),
			QuestionID: aerr.QuestionID,
		})
	case errors.As(err, &ierr):
		writeError(w, http.StatusUnprocessableEntity, "incomplete_submission", ierr)
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, idempotency.ErrInFlight):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, model.ErrStorage):
		logger.Get().Error(r.Context(), "storage failure", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "storage_error", model.ErrStorage)
	default:
		logger.Get().Error(r.Context(), "unexpected error", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decodeJSON reads the request body into v. Failures are reported as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return false
	}
	return true
}
