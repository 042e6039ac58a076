package events

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/onboard/internal/events/domain"
	"go.uber.org/zap"
)

const streamMaxLen = 100000

// StreamSink appends events to a redis stream for the platform billing group.
type StreamSink struct {
	client *redis.Client
	stream string
}

func NewStreamSink(client *redis.Client, stream string) *StreamSink {
	return &StreamSink{client: client, stream: stream}
}

func (s *StreamSink) Name() string { return "stream" }

func (s *StreamSink) Publish(ctx context.Context, event domain.Event) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":    event.ID,
			"topic":       event.Topic,
			"payload":     string(event.Payload),
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Err()
}

// LogSink stands in for the stream when redis is not configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events.log")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Publish(_ context.Context, event domain.Event) error {
	s.log.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("topic", event.Topic),
		zap.ByteString("payload", event.Payload),
	)
	return nil
}
