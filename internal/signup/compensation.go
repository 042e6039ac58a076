package signup

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/onboard/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	stepDeleteTenant       = "delete_tenant"
	stepCancelSubscription = "cancel_subscription"
)

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// Compensator is the saga's undo stack. Run unwinds it in reverse order and
// never fails: each action gets its own timeout and its errors are only
// logged.
type Compensator struct {
	actions []compensation
	timeout time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewCompensator(timeout time.Duration, m *metrics.Metrics, log *zap.Logger) *Compensator {
	return &Compensator{
		timeout: timeout,
		metrics: m,
		log:     log,
	}
}

func (c *Compensator) Push(name string, fn func(ctx context.Context) error) {
	c.actions = append(c.actions, compensation{name: name, fn: fn})
}

func (c *Compensator) Len() int {
	return len(c.actions)
}

// Run executes the pending actions newest first and empties the stack.
func (c *Compensator) Run(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := len(c.actions) - 1; i >= 0; i-- {
		action := c.actions[i]
		if err := c.runOne(base, action); err != nil {
			c.log.Error("compensation failed", zap.String("step", action.name), zap.Error(err))
			c.metrics.RecordCompensation(ctx, action.name, "failure")
			continue
		}
		c.log.Info("compensation applied", zap.String("step", action.name))
		c.metrics.RecordCompensation(ctx, action.name, "success")
	}
	c.actions = nil
}

func (c *Compensator) runOne(ctx context.Context, action compensation) (err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return action.fn(ctx)
}
