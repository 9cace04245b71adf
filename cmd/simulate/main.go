package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/learnstyle/internal/simulate"
	"github.com/okian/learnstyle/pkg/logger"
)

// Default configuration constants.
const (
	defaultStudents = 200
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 10 * time.Second
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		students = flag.Int("students", defaultStudents, "Number of students submitting answers")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "Seed for answer generation")
		verbose  = flag.Bool("verbose", false, "Log every classification")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	_, err := simulate.Run(ctx, &simulate.Config{
		BaseURL:  *baseURL,
		Students: *students,
		Workers:  *workers,
		Timeout:  *timeout,
		Seed:     *seed,
		Verbose:  *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
