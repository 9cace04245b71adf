// Package publisher delivers classification events to downstream consumers
// such as an activity recommender.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/learnstyle/internal/domain/model"
	"github.com/okian/learnstyle/pkg/logger"
)

// Log writes each event as a structured log line. It is the default when no
// broker is configured.
type Log struct {
	log logger.Logger
}

// NewLog creates a Log publisher; a nil logger uses the global one.
func NewLog(l logger.Logger) *Log {
	if l == nil {
		l = logger.Get().Named("classification")
	}
	return &Log{log: l}
}

func (p *Log) Publish(ctx context.Context, e model.ClassificationEvent) error { //nolint:gocritic // hugeParam: matches worker.Publisher
	p.log.Info(ctx, "learner classified",
		logger.String("submission_id", e.SubmissionID),
		logger.String("student_id", e.StudentID),
		logger.String("survey_id", e.SurveyID),
		logger.String("dominant_category", e.DominantCategoryLabel),
		logger.Any("scores", e.Scores),
	)
	return nil
}

func (p *Log) Close() error { return nil }

// Redis publishes each event as JSON on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
	owned   bool
}

// NewRedis publishes through an existing client, which Close leaves open.
func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

// DialRedis connects to addr and verifies the connection with PING.
func DialRedis(ctx context.Context, addr, channel string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client, channel: channel, owned: true}, nil
}

func (p *Redis) Publish(ctx context.Context, e model.ClassificationEvent) error { //nolint:gocritic // hugeParam: matches worker.Publisher
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// Channel returns the pub/sub channel events are published on.
func (p *Redis) Channel() string { return p.channel }

func (p *Redis) Close() error {
	if !p.owned {
		return nil
	}
	return p.client.Close()
}
