// Package domain contains persistence models for tenants and their owners.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TenantStatusActive = "ACTIVE"

	RoleOwner = "OWNER"
)

// Tenant is a customer account created by self-service signup.
type Tenant struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name         string        `gorm:"type:text;not null" json:"name"`
	Code         string        `gorm:"type:varchar(12);not null;index:ix_tenants_code" json:"code"`
	Slug         string        `gorm:"type:varchar(191);not null;uniqueIndex:ux_tenants_slug" json:"slug"`
	Status       string        `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt    time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
	Users        []User        `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
	Subscription *Subscription `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Tenant) TableName() string { return "tenants" }

// User is a tenant member. Signup creates exactly one, the owner.
type User struct {
	ID                         snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID                   snowflake.ID `gorm:"not null;uniqueIndex:ux_users_tenant_email,priority:1" json:"tenant_id"`
	Email                      string       `gorm:"type:varchar(320);not null;uniqueIndex:ux_users_tenant_email,priority:2" json:"email"`
	PasswordHash               string       `gorm:"type:text;not null" json:"-"`
	Role                       string       `gorm:"type:varchar(32);not null" json:"role"`
	EmailVerified              bool         `gorm:"not null;default:false" json:"email_verified"`
	VerificationToken          string       `gorm:"type:varchar(128);uniqueIndex:ux_users_verification_token" json:"-"`
	VerificationTokenExpiresAt *time.Time   `json:"-"`
	CreatedAt                  time.Time    `gorm:"not null" json:"created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) OwnerTenantID() int64 { return u.TenantID.Int64() }

// Subscription is the tenant's billing subscription as returned by the activator.
type Subscription struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:ux_subscriptions_tenant" json:"tenant_id"`
	PlanID      snowflake.ID `gorm:"not null" json:"plan_id"`
	ExternalID  string       `gorm:"type:varchar(191);not null" json:"external_id"`
	Status      string       `gorm:"type:varchar(32);not null" json:"status"`
	Currency    string       `gorm:"type:varchar(3);not null" json:"currency"`
	CheckoutURL string       `gorm:"type:text" json:"checkout_url,omitempty"`
	TrialEndsAt *time.Time   `json:"trial_ends_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) OwnerTenantID() int64 { return s.TenantID.Int64() }
