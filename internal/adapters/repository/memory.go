package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/metrics"
)

const (
	defaultShardCount            = 8
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithShardCount sets the number of submission shards.
func WithShardCount(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// shard holds the submissions of the students hashed onto it.
type shard struct {
	mu        sync.RWMutex
	byID      map[string]model.Submission
	byStudent map[string][]string // submission ids in insertion order
}

// MemoryStore is an in-memory Store. Templates live in one read-mostly map;
// submissions are sharded by student id so concurrent students rarely share
// a lock.
type MemoryStore struct {
	tmplMu    sync.RWMutex
	templates map[string]model.Template
	tmplOrder []string

	shards     []*shard
	shardCount int

	metricsUpdateInterval time.Duration
	wg                    sync.WaitGroup
	stopChan              chan struct{}
	closeOnce             sync.Once
}

// NewMemoryStore constructs a memory store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		templates:             make(map[string]model.Template),
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			byID:      make(map[string]model.Submission),
			byStudent: make(map[string][]string),
		}
	}

	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background goroutine.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) CreateTemplate(ctx context.Context, t model.Template) error {
	s.tmplMu.Lock()
	defer s.tmplMu.Unlock()

	if _, exists := s.templates[t.ID]; exists {
		return fmt.Errorf("template %q: %w", t.ID, ErrAlreadyExists)
	}
	s.templates[t.ID] = t.Clone()
	s.tmplOrder = append(s.tmplOrder, t.ID)
	return nil
}

func (s *MemoryStore) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	s.tmplMu.RLock()
	t, ok := s.templates[id]
	s.tmplMu.RUnlock()

	if !ok {
		return model.Template{}, model.NewNotFound("survey", id)
	}
	return t.Clone(), nil
}

func (s *MemoryStore) ListTemplates(ctx context.Context) ([]model.TemplateSummary, error) {
	s.tmplMu.RLock()
	out := make([]model.TemplateSummary, 0, len(s.tmplOrder))
	for i := len(s.tmplOrder) - 1; i >= 0; i-- {
		out = append(out, s.templates[s.tmplOrder[i]].Summary())
	}
	s.tmplMu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateSubmission(ctx context.Context, sub model.Submission) error {
	sh := s.shardFor(sub.StudentID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.byID[sub.ID]; exists {
		return fmt.Errorf("submission %q: %w", sub.ID, ErrAlreadyExists)
	}
	sh.byID[sub.ID] = cloneSubmission(sub)
	sh.byStudent[sub.StudentID] = append(sh.byStudent[sub.StudentID], sub.ID)
	return nil
}

func (s *MemoryStore) GetSubmission(ctx context.Context, id string) (model.Submission, error) {
	for _, sh := range s.shards {
		sh.mu.RLock()
		sub, ok := sh.byID[id]
		sh.mu.RUnlock()
		if ok {
			return cloneSubmission(sub), nil
		}
	}
	return model.Submission{}, model.NewNotFound("submission", id)
}

func (s *MemoryStore) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	sh := s.shardFor(studentID)
	sh.mu.RLock()
	ids := sh.byStudent[studentID]
	out := make([]model.Submission, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, cloneSubmission(sh.byID[ids[i]]))
	}
	sh.mu.RUnlock()

	SortNewestFirst(out)
	return out, nil
}

// SortNewestFirst orders submissions by CreatedAt descending. The sort is
// stable, so callers pass records newest-insertion first to break ties.
func SortNewestFirst(subs []model.Submission) {
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
}

func (s *MemoryStore) shardFor(studentID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(studentID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.tmplMu.RLock()
	templates := len(s.templates)
	s.tmplMu.RUnlock()

	submissions := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		submissions += len(sh.byID)
		sh.mu.RUnlock()
	}

	metrics.UpdateRepositoryRecords("templates", templates)
	metrics.UpdateRepositoryRecords("submissions", submissions)
}

func cloneSubmission(sub model.Submission) model.Submission {
	out := sub
	out.Answers = append([]model.Answer(nil), sub.Answers...)
	out.AnswerDetails = append([]model.AnswerDetail(nil), sub.AnswerDetails...)
	out.Scores = make(map[string]int, len(sub.Scores))
	for k, v := range sub.Scores {
		out.Scores[k] = v
	}
	out.CategoryLabels = make(map[string]string, len(sub.CategoryLabels))
	for k, v := range sub.CategoryLabels {
		out.CategoryLabels[k] = v
	}
	return out
}
