package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/learnstyle/internal/adapters/cache"
	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/adapters/repository/storetest"
	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newMemory(t *testing.T) repository.Store {
	t.Helper()
	s := repository.NewMemoryStore(context.Background(), repository.WithShardCount(4))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, newMemory)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newMemory(t)

	tpl := storetest.Template(time.Now())
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create: %v", err)
	}
	tpl.Questions[0].Options[0].Scores["cat-a"] = 10

	got, err := s.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Questions[0].Options[0].Scores["cat-a"] != 3 {
		t.Errorf("stored template was mutated through the caller's map")
	}
	got.Title = "changed"
	again, _ := s.GetTemplate(ctx, tpl.ID)
	if again.Title != "Learning Buddy" {
		t.Errorf("stored template was mutated through a returned value")
	}
}

func TestMemoryStore_DuplicateIDs(t *testing.T) {
	ctx := context.Background()
	s := newMemory(t)

	tpl := storetest.Template(time.Now())
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateTemplate(ctx, tpl); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	sub := storetest.Submission("stu", tpl.ID, time.Now())
	if err := s.CreateSubmission(ctx, sub); err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if err := s.CreateSubmission(ctx, sub); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := repository.NewMemoryStore(context.Background(), repository.WithMetricsUpdateInterval(time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

// countingStore counts template reads reaching the backend.
type countingStore struct {
	repository.Store
	gets int
}

func (c *countingStore) GetTemplate(ctx context.Context, id string) (model.Template, error) {
	c.gets++
	return c.Store.GetTemplate(ctx, id)
}

// failingCache fails every operation.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (model.Template, bool, error) {
	return model.Template{}, false, errors.New("cache down")
}
func (failingCache) Set(context.Context, model.Template) error { return errors.New("cache down") }
func (failingCache) Close() error                              { return nil }

func TestCachedTemplates(t *testing.T) {
	ctx := context.Background()

	t.Run("HitsSkipTheBackend", func(t *testing.T) {
		backend := &countingStore{Store: newMemory(t)}
		tpl := storetest.Template(time.Now())
		if err := backend.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create: %v", err)
		}

		s := repository.WithCache(backend, cache.NewMemory())
		for i := 0; i < 3; i++ {
			got, err := s.GetTemplate(ctx, tpl.ID)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got.ID != tpl.ID {
				t.Fatalf("got %s want %s", got.ID, tpl.ID)
			}
		}
		if backend.gets != 1 {
			t.Errorf("expected 1 backend read, got %d", backend.gets)
		}
	})

	t.Run("CreateWarmsTheCache", func(t *testing.T) {
		backend := &countingStore{Store: newMemory(t)}
		s := repository.WithCache(backend, cache.NewMemory())
		tpl := storetest.Template(time.Now())
		if err := s.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.GetTemplate(ctx, tpl.ID); err != nil {
			t.Fatalf("get: %v", err)
		}
		if backend.gets != 0 {
			t.Errorf("expected no backend reads, got %d", backend.gets)
		}
	})

	t.Run("CacheFailuresDegrade", func(t *testing.T) {
		s := repository.WithCache(newMemory(t), failingCache{})
		tpl := storetest.Template(time.Now())
		if err := s.CreateTemplate(ctx, tpl); err != nil {
			t.Fatalf("create should ignore cache failure: %v", err)
		}
		if _, err := s.GetTemplate(ctx, tpl.ID); err != nil {
			t.Fatalf("get should fall through: %v", err)
		}
	})

	t.Run("MissingTemplatesAreNotCached", func(t *testing.T) {
		s := repository.WithCache(newMemory(t), cache.NewMemory())
		if _, err := s.GetTemplate(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ContractThroughCache", func(t *testing.T) {
		storetest.Run(t, func(t *testing.T) repository.Store {
			return repository.WithCache(newMemory(t), cache.NewMemory())
		})
	})
}
