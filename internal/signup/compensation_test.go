package signup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/onboard/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestCompensatorRunsInReverse(t *testing.T) {
	c := NewCompensator(time.Second, metrics.NewNoop(), zaptest.NewLogger(t))

	var order []string
	c.Push("first", func(context.Context) error { order = append(order, "first"); return nil })
	c.Push("second", func(context.Context) error { order = append(order, "second"); return errors.New("boom") })
	c.Push("third", func(context.Context) error { panic("bad") })

	c.Run(context.Background())

	assert.Equal(t, []string{"second", "first"}, order)
	assert.Zero(t, c.Len())
}

func TestCompensatorBoundsEachAction(t *testing.T) {
	c := NewCompensator(20*time.Millisecond, metrics.NewNoop(), zaptest.NewLogger(t))

	var sawDeadline, ranNext bool
	c.Push("fast", func(context.Context) error { ranNext = true; return nil })
	c.Push("hung", func(ctx context.Context) error {
		<-ctx.Done()
		sawDeadline = errors.Is(ctx.Err(), context.DeadlineExceeded)
		return ctx.Err()
	})

	c.Run(context.Background())

	assert.True(t, sawDeadline)
	assert.True(t, ranNext)
}

func TestCompensatorIgnoresCallerCancellation(t *testing.T) {
	c := NewCompensator(time.Second, metrics.NewNoop(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ctxErr error
	c.Push("delete", func(ctx context.Context) error { ctxErr = ctx.Err(); return nil })
	c.Run(ctx)

	assert.NoError(t, ctxErr)
}
