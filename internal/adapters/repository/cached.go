package repository

import (
	"context"

	"github.com/okian/learnstyle/internal/adapters/cache"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/logger"
	"github.com/okian/learnstyle/pkg/metrics"
)

// CachedTemplates reads templates through a cache. Templates are immutable,
// so entries never need invalidation. Cache failures fall through to the
// underlying store and are only logged.
type CachedTemplates struct {
	next  TemplateStore
	cache cache.TemplateCache
	log   logger.Logger
}

// CachedOption configures CachedTemplates.
type CachedOption func(*CachedTemplates)

// WithCacheLogger sets the logger used for cache failures.
func WithCacheLogger(l logger.Logger) CachedOption {
	return func(c *CachedTemplates) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCachedTemplates decorates next with c.
func NewCachedTemplates(next TemplateStore, c cache.TemplateCache, opts ...CachedOption) *CachedTemplates {
	ct := &CachedTemplates{next: next, cache: c}
	for _, opt := range opts {
		opt(ct)
	}
	if ct.log == nil {
		ct.log = logger.Get().Named("template_cache")
	}
	return ct
}

func (c *CachedTemplates) CreateTemplate(ctx context.Context, t model.Template) error {
	if err := c.next.CreateTemplate(ctx, t); err != nil {
		return err
	}
	if err := c.cache.Set(ctx, t); err != nil {
		c.log.Warn(ctx, "failed to warm template cache", logger.String("survey_id", t.ID), logger.Error(err))
	}
	return nil
}

func (c *CachedTemplates) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	t, ok, err := c.cache.Get(ctx, id)
	switch {
	case err != nil:
		metrics.RecordTemplateCacheLookup("error")
		c.log.Warn(ctx, "template cache read failed", logger.String("survey_id", id), logger.Error(err))
	case ok:
		metrics.RecordTemplateCacheLookup("hit")
		return t, nil
	default:
		metrics.RecordTemplateCacheLookup("miss")
	}

	t, err = c.next.GetTemplate(ctx, id)
	if err != nil {
		return model.Template{}, err
	}
	if err := c.cache.Set(ctx, t); err != nil {
		c.log.Warn(ctx, "failed to fill template cache", logger.String("survey_id", id), logger.Error(err))
	}
	return t, nil
}

func (c *CachedTemplates) ListTemplates(ctx context.Context) ([]model.TemplateSummary, error) {
	return c.next.ListTemplates(ctx)
}

// cachedStore is a Store whose template reads go through a cache.
type cachedStore struct {
	*CachedTemplates
	SubmissionStore
	store Store
	cache cache.TemplateCache
}

// WithCache wraps store so template reads are served from c. Close closes
// both the cache and the store.
func WithCache(store Store, c cache.TemplateCache, opts ...CachedOption) Store {
	return &cachedStore{
		CachedTemplates: NewCachedTemplates(store, c, opts...),
		SubmissionStore: store,
		store:           store,
		cache:           c,
	}
}

func (s *cachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return cacheErr
}
