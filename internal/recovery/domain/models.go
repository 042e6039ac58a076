package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	SessionStatusOpen      = "OPEN"
	SessionStatusRecovered = "RECOVERED"
)

var ErrInvalidToken = errors.New("invalid recovery token")

// Session is an abandoned signup attempt that a recovery link can resume.
type Session struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Email       string       `gorm:"type:text;not null"`
	Status      string       `gorm:"type:varchar(32);not null;index"`
	TenantID    *int64       `gorm:"index"`
	RecoveredAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "signup_sessions" }

// Entry is the config store document behind a recovery token.
type Entry struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
