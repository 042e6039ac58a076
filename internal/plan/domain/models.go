package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a sellable subscription plan in the signup catalog.
type Plan struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"type:varchar(64);not null;uniqueIndex:ux_plans_code" json:"code"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Public    bool         `gorm:"not null;default:false" json:"public"`
	Active    bool         `gorm:"not null" json:"active"`
	TrialDays *int         `json:"trial_days,omitempty"`
	Currency  string       `gorm:"type:varchar(3)" json:"currency,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Plan) TableName() string { return "plans" }

// Available reports whether self-service signup may use the plan.
func (p *Plan) Available() bool {
	return p.Public && p.Active
}

type Repository interface {
	// FindByID returns nil, nil when the id is unknown or not a valid plan id.
	FindByID(ctx context.Context, id string) (*Plan, error)
}
