package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/learnstyle/internal/adapters/mq/publisher"
	"github.com/okian/learnstyle/internal/adapters/repository"
	"github.com/okian/learnstyle/internal/adapters/repository/sqlstore"
	service "github.com/okian/learnstyle/internal/app"
	"github.com/okian/learnstyle/internal/config"
	"github.com/okian/learnstyle/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given LEARNSTYLE environment variables", t, func() {
		_ = os.Setenv("LEARNSTYLE_ADDR", ":8080")
		_ = os.Setenv("LEARNSTYLE_QUEUE_SIZE", "1000")
		_ = os.Setenv("LEARNSTYLE_WORKER_COUNT", "4")
		convey.Reset(func() {
			_ = os.Unsetenv("LEARNSTYLE_ADDR")
			_ = os.Unsetenv("LEARNSTYLE_QUEUE_SIZE")
			_ = os.Unsetenv("LEARNSTYLE_WORKER_COUNT")
		})

		convey.Convey("Then configuration should be loadable", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("When the memory driver is selected", func() {
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then a sharded memory store is returned", func() {
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the sqlite driver points at a temp file", func() {
			cfg.StoreDriver = config.StoreSQLite
			cfg.StoreDSN = "file:" + filepath.Join(t.TempDir(), "learnstyle.db")
			store, err := openStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then the schema is ready to use", func() {
				_, ok := store.(*sqlstore.Store)
				convey.So(ok, convey.ShouldBeTrue)
				list, err := store.ListTemplates(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(list, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.StoreDriver = "cassandra"
			_, err := openStore(ctx, cfg)

			convey.Convey("Then it is rejected as invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWithTemplateCache(t *testing.T) {
	convey.Convey("Given a memory store", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		base := repository.NewMemoryStore(ctx)
		log := logger.Get()

		convey.Convey("When caching is disabled", func() {
			cfg.CacheDriver = config.CacheNone
			store, err := withTemplateCache(ctx, cfg, base, log)

			convey.Convey("Then the store is returned unchanged", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store, convey.ShouldPointTo, base)
			})
		})

		convey.Convey("When the memory cache is selected", func() {
			cfg.CacheDriver = config.CacheMemory
			store, err := withTemplateCache(ctx, cfg, base, log)

			convey.Convey("Then the store is wrapped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(store, convey.ShouldNotPointTo, base)
				convey.So(store.Close(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the cache driver is unknown", func() {
			cfg.CacheDriver = "memcached"
			store, err := withTemplateCache(ctx, cfg, base, log)

			convey.Convey("Then the unwrapped store comes back with the error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(store, convey.ShouldPointTo, base)
			})
		})
	})
}

func TestOpenPublisher(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("Then the log publisher is the default", func() {
			pub, err := openPublisher(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			_, ok := pub.(*publisher.Log)
			convey.So(ok, convey.ShouldBeTrue)
		})

		convey.Convey("Then an unknown publisher is rejected", func() {
			cfg.Publisher = "kafka"
			_, err := openPublisher(ctx, cfg, logger.Get())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given a service built from the default config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.CORSOrigins = "http://classroom.test"
		cfg.WorkerCount = 2

		svc, err := buildService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		h := newHandler(ctx, cfg, svc)
		convey.Reset(func() { _ = svc.Stop(context.Background()) })

		convey.Convey("Then health, stats and docs are routed", func() {
			for _, path := range []string{"/healthz", "/stats", "/metrics", "/api-docs", "/openapi.yaml", "/api/surveys"} {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(rec.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a survey can be published", func() {
			body := `{"title":"Quick check","categories":["Active","Passive"],"questions":[` +
				`{"id":"q1","text":"Group work?","options":[` +
				`{"label":"Yes","scores":{"Active":5}},{"label":"No","scores":{"Passive":5}}]}]}`
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/surveys", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			h.ServeHTTP(rec, req)
			convey.So(rec.Code, convey.ShouldEqual, http.StatusCreated)
		})

		convey.Convey("Then configured origins are allowed", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodOptions, "/api/surveys", http.NoBody)
			req.Header.Set("Origin", "http://classroom.test")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			h.ServeHTTP(rec, req)
			convey.So(rec.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "http://classroom.test")
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		svc := service.New()
		convey.Reset(func() { _ = svc.Stop(context.Background()) })

		convey.Convey("Then they return when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
