package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/events/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OutboxSink writes events to the domain_events table for tenant-domain
// consumers.
type OutboxSink struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutboxSink(db *gorm.DB, genID *snowflake.Node) *OutboxSink {
	return &OutboxSink{db: db, genID: genID}
}

func (s *OutboxSink) Name() string { return "outbox" }

type tenantRef struct {
	TenantID string `json:"tenant_id"`
}

func (s *OutboxSink) Publish(ctx context.Context, event domain.Event) error {
	var ref tenantRef
	if err := json.Unmarshal(event.Payload, &ref); err != nil {
		return err
	}
	raw := strings.TrimSpace(ref.TenantID)
	if raw == "" {
		return errors.New("missing tenant_id")
	}
	tenantID, err := snowflake.ParseString(raw)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Create(&domain.OutboxEvent{
		ID:        s.genID.Generate(),
		EventID:   event.ID,
		TenantID:  tenantID,
		Topic:     event.Topic,
		Payload:   datatypes.JSON(event.Payload),
		CreatedAt: event.OccurredAt,
	}).Error
}
