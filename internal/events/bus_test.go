package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/events/domain"
	"github.com/smallbiznis/onboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSink struct {
	name string
	err  error
	wait time.Duration

	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, event domain.Event) error {
	if s.wait > 0 {
		select {
		case <-time.After(s.wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	return nil
}

func testClock() *clock.FakeClock {
	return clock.NewFakeClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
}

func TestBusDeliversToEverySink(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	bus := NewBus(testClock(), zaptest.NewLogger(t), time.Second, a, b)

	require.NoError(t, bus.Publish(context.Background(), domain.TopicTenantSignupCompleted, []byte(`{"tenant_id":"1"}`)))

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, a.events[0].ID, b.events[0].ID)
	assert.Len(t, a.events[0].ID, 26)
}

func TestBusIsolatesFailingSink(t *testing.T) {
	broken := &recordingSink{name: "broken", err: errors.New("down")}
	slow := &recordingSink{name: "slow", wait: time.Second}
	ok := &recordingSink{name: "ok"}
	bus := NewBus(testClock(), zaptest.NewLogger(t), 50*time.Millisecond, broken, slow, ok)

	require.NoError(t, bus.Publish(context.Background(), "topic", []byte(`{}`)))
	assert.Len(t, ok.events, 1)
	assert.Empty(t, slow.events)
}

func TestBusFailsWhenEverySinkFails(t *testing.T) {
	bus := NewBus(testClock(), zaptest.NewLogger(t), time.Second,
		&recordingSink{name: "a", err: errors.New("a down")},
		&recordingSink{name: "b", err: errors.New("b down")},
	)
	err := bus.Publish(context.Background(), "topic", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestOutboxSink(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.OutboxEvent{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	sink := NewOutboxSink(conn, node)
	payload, _ := json.Marshal(domain.TenantSignupCompleted{TenantID: "1234", TenantCode: "ACME"})
	event := domain.Event{ID: "01JABCDEFGHJKMNPQRSTVWXYZ0", Topic: domain.TopicTenantSignupCompleted, Payload: payload, OccurredAt: time.Now().UTC()}
	require.NoError(t, sink.Publish(context.Background(), event))

	var rows []domain.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, snowflake.ID(1234), rows[0].TenantID)
	assert.False(t, rows[0].Published)

	err = sink.Publish(context.Background(), domain.Event{ID: "x", Topic: "t", Payload: []byte(`{}`)})
	assert.Error(t, err)
}

func TestStreamSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := NewStreamSink(client, domain.PlatformBillingStream)
	event := domain.Event{ID: "01JABCDEFGHJKMNPQRSTVWXYZ0", Topic: domain.TopicUserSignupCompleted, Payload: []byte(`{"user_id":"9"}`), OccurredAt: time.Now().UTC()}
	require.NoError(t, sink.Publish(context.Background(), event))

	entries, err := client.XRange(context.Background(), domain.PlatformBillingStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, event.ID, entries[0].Values["event_id"])
	assert.Equal(t, domain.TopicUserSignupCompleted, entries[0].Values["topic"])
}
