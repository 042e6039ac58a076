package billingprovisioning

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/billingprovisioning/domain"
	"github.com/smallbiznis/onboard/internal/clock"
	eventdomain "github.com/smallbiznis/onboard/internal/events/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	batchSize = 50
)

// Consumer drains signup.tenant.completed events from the outbox and
// provisions a billing workspace for each tenant.
type Consumer struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewConsumer(db *gorm.DB, log *zap.Logger, genID *snowflake.Node, clk clock.Clock) *Consumer {
	return &Consumer{
		db:    db,
		log:   log.Named("billing.provisioning"),
		genID: genID,
		clock: clk,
	}
}

// ProcessPending handles one batch and returns how many events were
// provisioned.
func (c *Consumer) ProcessPending(ctx context.Context) (int, error) {
	var events []eventdomain.OutboxEvent
	err := c.db.WithContext(ctx).
		Where("topic = ? AND published = ?", eventdomain.TopicTenantSignupCompleted, false).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&events).Error
	if err != nil {
		return 0, err
	}

	done := 0
	for _, event := range events {
		if err := c.processEvent(ctx, event); err != nil {
			c.log.Error("failed to provision billing workspace", zap.Error(err), zap.String("tenant_id", event.TenantID.String()))
			continue
		}
		done++
	}

	return done, nil
}

func (c *Consumer) processEvent(ctx context.Context, event eventdomain.OutboxEvent) error {
	var payload eventdomain.TenantSignupCompleted
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
		return err
	}
	if payload.TenantID == "" {
		return errors.New("missing tenant_id")
	}
	tenantID, err := snowflake.ParseString(payload.TenantID)
	if err != nil {
		return err
	}

	now := c.clock.Now().UTC()
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workspace := domain.Workspace{
			ID:             c.genID.Generate(),
			TenantID:       tenantID,
			PlanID:         payload.PlanID,
			SubscriptionID: payload.SubscriptionID,
			Currency:       payload.Currency,
			CreatedAt:      now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoNothing: true,
		}).Create(&workspace).Error; err != nil {
			return err
		}

		return tx.Model(&eventdomain.OutboxEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]any{"published": true, "published_at": now}).Error
	})
}
