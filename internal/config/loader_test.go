package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/okian/learnstyle/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.CacheDriver, convey.ShouldEqual, config.CacheMemory)
			convey.So(cfg.Publisher, convey.ShouldEqual, config.PublisherLog)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then origins are split and trimmed", func() {
			cfg.CORSOrigins = " http://a.test , ,http://b.test"
			convey.So(cfg.Origins(), convey.ShouldResemble, []string{"http://a.test", "http://b.test"})
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.IdempotencySize, convey.ShouldEqual, 100_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LEARNSTYLE_ADDR", ":8080")
			_ = os.Setenv("LEARNSTYLE_STORE_DRIVER", "sqlite")
			_ = os.Setenv("LEARNSTYLE_STORE_DSN", "file:test.db")
			_ = os.Setenv("LEARNSTYLE_QUEUE_SIZE", "500")
			_ = os.Setenv("LEARNSTYLE_WORKER_COUNT", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, "sqlite")
				convey.So(cfg.StoreDSN, convey.ShouldEqual, "file:test.db")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
# file values
addr: ":9090"
queue_size: 300
worker_count: 24
cache_driver: none
publisher: log
`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("LEARNSTYLE_CONFIG", tmpFile)
			_ = os.Setenv("LEARNSTYLE_WORKER_COUNT", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")      // file
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 300) // file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)     // env
				convey.So(cfg.CacheDriver, convey.ShouldEqual, "none") // file
				convey.So(cfg.ShardCount, convey.ShouldEqual, 8)       // default
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LEARNSTYLE_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LEARNSTYLE_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("LEARNSTYLE_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown store driver", func() {
			_ = os.Setenv("LEARNSTYLE_STORE_DRIVER", "cassandra")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "cassandra")
			})
		})

		convey.Convey("When selecting mongo without a DSN", func() {
			_ = os.Setenv("LEARNSTYLE_STORE_DRIVER", "mongo")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When selecting postgres without a DSN", func() {
			_ = os.Setenv("LEARNSTYLE_STORE_DRIVER", "postgres")

			_, err := config.Load(ctx)

			convey.Convey("Then it should be rejected naming the driver", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "postgres")
			})
		})

		convey.Convey("When selecting sqlite without a DSN", func() {
			_ = os.Setenv("LEARNSTYLE_STORE_DRIVER", "sqlite")

			cfg, err := config.Load(ctx)

			convey.Convey("Then the default database file is used later", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.StoreDSN, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("LEARNSTYLE_QUEUE_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		"LEARNSTYLE_CONFIG",
		"LEARNSTYLE_ADDR",
		"LEARNSTYLE_STORE_DRIVER",
		"LEARNSTYLE_STORE_DSN",
		"LEARNSTYLE_QUEUE_SIZE",
		"LEARNSTYLE_WORKER_COUNT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "learnstyle-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
