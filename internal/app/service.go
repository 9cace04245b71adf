// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/learnstyle/internal/adapters/mq/publisher"
	eventqueue "github.com/okian/learnstyle/internal/adapters/mq/queue"
	workerpool "github.com/okian/learnstyle/internal/adapters/mq/worker"
	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/domain/idempotency"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/internal/domain/scoring"
	"github.com/okian/learnstyle/internal/domain/survey"
	"github.com/okian/learnstyle/pkg/logger"
	"github.com/okian/learnstyle/pkg/metrics"
)

// Service implements the API dependencies for the classification system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	scorer    scoring.Scorer
	tracker   idempotency.Tracker
	queue     *eventqueue.InMemoryQueue
	publisher workerpool.Publisher
	pool      *workerpool.Pool

	// Configuration
	workerCount     int
	queueSize       int
	idempotencySize int
	newID           func() string
	now             func() time.Time

	// State
	started bool
	stopped bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of publisher goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the classification event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithIdempotencySize bounds how many idempotency keys are remembered.
func WithIdempotencySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.idempotencySize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithScorer replaces the scoring engine.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithPublisher sets where classification events are delivered. A publisher
// implementing io.Closer is closed on Stop.
func WithPublisher(p workerpool.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithIDGenerator overrides how template, category and submission ids are
// minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock overrides the time source for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Without WithStore it keeps everything in memory;
// without WithPublisher events are written to the log.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       10_000,
		idempotencySize: 100_000,
		newID:           uuid.NewString,
		now:             func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(context.Background())
	}
	if s.scorer == nil {
		s.scorer = scoring.NewEngine()
	}
	if s.publisher == nil {
		s.publisher = publisher.NewLog(nil)
	}
	s.tracker = idempotency.NewInMemoryTracker(idempotency.WithMaxSize(s.idempotencySize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	return s
}

// Start launches the publisher workers. Events enqueued before Start are
// delivered once it runs.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting classification service...")

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.publisher)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "classification service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("idempotencySize", s.idempotencySize),
	)
	return nil
}

// Stop drains the event queue, then closes the publisher and the store.
// It is safe to call more than once.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	s.logger.Info(ctx, "stopping classification service...")

	var errs []error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	} else if err := s.queue.Close(); err != nil {
		errs = append(errs, err)
	}
	if closer, ok := s.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "classification service stopped")
	return errors.Join(errs...)
}

// CreateSurvey validates p and persists the resulting template.
func (s *Service) CreateSurvey(ctx context.Context, p survey.Payload) (model.Template, error) { //nolint:gocritic // hugeParam: request payload
	t, err := survey.Compile(p, survey.WithIDGenerator(s.newID), survey.WithClock(s.now))
	if err != nil {
		metrics.RecordTemplateRejected()
		return model.Template{}, err
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		s.logger.Error(ctx, "failed to store survey template",
			logger.String("survey_id", t.ID),
			logger.Error(err),
		)
		return model.Template{}, err
	}

	metrics.RecordTemplateCreated()
	s.logger.Debug(ctx, "survey template created",
		logger.String("survey_id", t.ID),
		logger.Int("questions", len(t.Questions)),
		logger.Int("categories", len(t.Categories)),
	)
	return t, nil
}

// GetSurvey returns the template with id.
func (s *Service) GetSurvey(ctx context.Context, id string) (model.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// ListSurveys returns every template summary, newest first.
func (s *Service) ListSurveys(ctx context.Context) ([]model.TemplateSummary, error) {
	return s.store.ListTemplates(ctx)
}

// CreateSubmission scores req against its template and persists the result.
// Nothing is stored unless scoring succeeds. When req carries an
// idempotency key that already completed, the original submission is
// returned with replay set.
func (s *Service) CreateSubmission(ctx context.Context, req model.SubmissionRequest) (sub model.Submission, replay bool, err error) { //nolint:gocritic // hugeParam: request payload
	if verr := validateRequest(req); verr != nil {
		metrics.RecordSubmissionRejected("validation")
		return model.Submission{}, false, verr
	}

	if req.IdempotencyKey != "" {
		key := req.StudentID + ":" + req.IdempotencyKey
		existing, seen, beginErr := s.tracker.Begin(ctx, key)
		if beginErr != nil {
			return model.Submission{}, false, beginErr
		}
		if seen {
			metrics.RecordIdempotentReplay()
			sub, err = s.store.GetSubmission(ctx, existing)
			return sub, err == nil, err
		}
		defer func() {
			if err != nil {
				s.tracker.Abort(ctx, key)
				return
			}
			s.tracker.Complete(ctx, key, sub.ID)
		}()
	}

	sub, err = s.createSubmission(ctx, req)
	return sub, false, err
}

func (s *Service) createSubmission(ctx context.Context, req model.SubmissionRequest) (model.Submission, error) { //nolint:gocritic // hugeParam: request payload
	t, err := s.store.GetTemplate(ctx, req.SurveyID)
	if err != nil {
		metrics.RecordSubmissionRejected(rejectReason(err))
		return model.Submission{}, err
	}

	outcome, err := s.scorer.Score(ctx, t, req.Answers)
	if err != nil {
		metrics.RecordSubmissionRejected(rejectReason(err))
		s.logger.Debug(ctx, "submission rejected",
			logger.String("survey_id", req.SurveyID),
			logger.String("student_id", req.StudentID),
			logger.Error(err),
		)
		return model.Submission{}, err
	}

	sub := model.Submission{
		ID:                    s.newID(),
		StudentID:             req.StudentID,
		SurveyID:              t.ID,
		Answers:               append([]model.Answer(nil), req.Answers...),
		Scores:                outcome.Scores,
		DominantCategory:      outcome.DominantCategory,
		DominantCategoryLabel: outcome.DominantLabel(),
		CategoryLabels:        t.CategoryLabels(),
		AnswerDetails:         answerDetails(t, req.Answers),
		SessionID:             req.SessionID,
		CourseTitle:           req.CourseTitle,
		Status:                model.StatusSubmitted,
		CreatedAt:             s.now(),
	}
	if sub.CourseTitle == "" {
		sub.CourseTitle = t.Title
	}
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		metrics.RecordSubmissionRejected("storage")
		s.logger.Error(ctx, "failed to store submission",
			logger.String("survey_id", t.ID),
			logger.String("student_id", req.StudentID),
			logger.Error(err),
		)
		return model.Submission{}, err
	}
	metrics.RecordSubmissionCreated()

	s.publish(ctx, sub)
	return sub, nil
}

// publish hands the classification event to the worker pool. A full or
// closed queue drops the event; the submission itself already succeeded.
func (s *Service) publish(ctx context.Context, sub model.Submission) { //nolint:gocritic // hugeParam: stored record
	err := s.queue.Enqueue(ctx, sub.Event())
	if err == nil {
		metrics.UpdateQueueSize(s.queue.Len(ctx))
		return
	}

	reason := "closed"
	if errors.Is(err, eventqueue.ErrFull) {
		reason = "full"
	}
	metrics.RecordQueueEnqueueError(reason)
	s.logger.Warn(ctx, "classification event dropped",
		logger.String("submission_id", sub.ID),
		logger.String("reason", reason),
	)
}

// GetSubmission returns the submission with id.
func (s *Service) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// ListSubmissionsForStudent returns the student's history, newest first.
func (s *Service) ListSubmissionsForStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	return s.store.ListSubmissionsByStudent(ctx, studentID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"idempotencySize": s.idempotencySize,
		"idempotencyKeys": s.tracker.Size(),
		"queueLength":     s.queue.Len(ctx),
	}

	if s.pool != nil {
		stats["eventsPublished"] = s.pool.Published()
		stats["publishFailures"] = s.pool.Failed()
	}

	metrics.UpdateQueueSize(s.queue.Len(ctx))
	return stats
}

func validateRequest(req model.SubmissionRequest) error { //nolint:gocritic // hugeParam: request payload
	verr := &model.ValidationError{}
	if strings.TrimSpace(req.SurveyID) == "" {
		verr.Add("surveyId", "must not be empty")
	}
	if strings.TrimSpace(req.StudentID) == "" {
		verr.Add("studentId", "must not be empty")
	}
	return verr.OrNil()
}

// answerDetails denormalizes answers in template question order. Answers
// have already been checked by the scorer.
func answerDetails(t model.Template, answers []model.Answer) []model.AnswerDetail {
	selected := make(map[string]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedOptionIndex
	}

	details := make([]model.AnswerDetail, 0, len(t.Questions))
	for _, q := range t.Questions {
		idx, ok := selected[q.ID]
		if !ok || idx < 0 || idx >= len(q.Options) {
			continue
		}
		details = append(details, model.AnswerDetail{
			QuestionID:         q.ID,
			QuestionText:       q.Text,
			SelectedOptionText: q.Options[idx].Label,
		})
	}
	return details
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrIncompleteSubmission):
		return "incomplete"
	case errors.Is(err, model.ErrAnswer):
		return "invalid_answer"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrStorage):
		return "storage"
	default:
		return "other"
	}
}
