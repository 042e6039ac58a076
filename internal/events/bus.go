package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/events/domain"
	"go.uber.org/zap"
)

const defaultSinkTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Sink is one independent listener group.
type Sink interface {
	Name() string
	Publish(ctx context.Context, event domain.Event) error
}

// Bus delivers every event to all sinks concurrently. A failing sink never
// blocks or fails the others.
type Bus struct {
	sinks   []Sink
	timeout time.Duration
	clock   clock.Clock
	log     *zap.Logger
}

func NewBus(clk clock.Clock, log *zap.Logger, timeout time.Duration, sinks ...Sink) *Bus {
	if timeout <= 0 {
		timeout = defaultSinkTimeout
	}
	return &Bus{
		sinks:   sinks,
		timeout: timeout,
		clock:   clk,
		log:     log.Named("events"),
	}
}

// Publish returns an error only when no sink accepted the event.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) error {
	if len(b.sinks) == 0 {
		return errors.New("no event sinks configured")
	}

	event := domain.Event{
		ID:         ulid.Make().String(),
		Topic:      topic,
		Payload:    payload,
		OccurredAt: b.clock.Now().UTC(),
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, sink := range b.sinks {
		wg.Add(1)
		go func(sink Sink) {
			defer wg.Done()

			sinkCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			if err := sink.Publish(sinkCtx, event); err != nil {
				b.log.Warn("event sink failed",
					zap.String("sink", sink.Name()),
					zap.String("topic", topic),
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
				mu.Unlock()
			}
		}(sink)
	}
	wg.Wait()

	if len(errs) == len(b.sinks) {
		return errors.Join(errs...)
	}
	return nil
}
