package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Workspace is the billing-side record created for every signed-up tenant.
type Workspace struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	TenantID       snowflake.ID `gorm:"not null;uniqueIndex"`
	PlanID         string       `gorm:"type:varchar(64)"`
	SubscriptionID string       `gorm:"type:varchar(255)"`
	Currency       string       `gorm:"type:varchar(3)"`
	CreatedAt      time.Time    `gorm:"not null"`
}

func (Workspace) TableName() string { return "billing_workspaces" }
