package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/audit"
	"github.com/smallbiznis/onboard/internal/billingprovisioning"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/configstore"
	"github.com/smallbiznis/onboard/internal/credential"
	"github.com/smallbiznis/onboard/internal/events"
	"github.com/smallbiznis/onboard/internal/idempotency"
	"github.com/smallbiznis/onboard/internal/migration"
	"github.com/smallbiznis/onboard/internal/notification"
	"github.com/smallbiznis/onboard/internal/observability"
	"github.com/smallbiznis/onboard/internal/plan"
	"github.com/smallbiznis/onboard/internal/providers"
	"github.com/smallbiznis/onboard/internal/ratelimit"
	"github.com/smallbiznis/onboard/internal/recovery"
	"github.com/smallbiznis/onboard/internal/server"
	"github.com/smallbiznis/onboard/internal/signup"
	"github.com/smallbiznis/onboard/internal/subscription"
	"github.com/smallbiznis/onboard/internal/tenant"
	"github.com/smallbiznis/onboard/internal/validation"
	"github.com/smallbiznis/onboard/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		configstore.Module,
		ratelimit.Module,
		providers.Module,
		validation.Module,

		// Functional Domains
		tenant.Module,
		idempotency.Module,
		plan.Module,
		credential.Module,
		subscription.Module,
		recovery.Module,
		events.Module,
		notification.Module,
		audit.Module,
		billingprovisioning.Module,
		signup.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
