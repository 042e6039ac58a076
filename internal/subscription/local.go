package subscription

import (
	"context"

	"github.com/bwmarrin/snowflake"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/smallbiznis/onboard/internal/subscription/domain"
)

// LocalActivator is used when no billing gateway is configured. It accepts
// every request and never returns a checkout URL.
type LocalActivator struct {
	genID *snowflake.Node
}

func NewLocalActivator(genID *snowflake.Node) *LocalActivator {
	return &LocalActivator{genID: genID}
}

func (l *LocalActivator) CreateSubscription(_ context.Context, _, _ snowflake.ID, opts domain.CreateOptions) (*domain.Activation, error) {
	status := domain.StatusActive
	if opts.TrialDays > 0 {
		status = domain.StatusTrialing
	}
	return &domain.Activation{
		ID:     "local_" + l.genID.Generate().String(),
		Status: status,
	}, nil
}

func (l *LocalActivator) CancelSubscription(context.Context, string, *credentialdomain.Credentials) error {
	return nil
}
