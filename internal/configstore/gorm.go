package configstore

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/onboard/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the relational form of a config store value, used when redis is
// not configured.
type Entry struct {
	Key       string         `gorm:"column:config_key;primaryKey;type:varchar(255)"`
	Scope     string         `gorm:"primaryKey;type:varchar(64)"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`
	ExpiresAt *time.Time     `gorm:"index"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (Entry) TableName() string { return "config_entries" }

type GormStore struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewGormStore(db *gorm.DB, clk clock.Clock) *GormStore {
	return &GormStore{db: db, clock: clk}
}

// Get treats expired rows as missing. They are removed by the next Set or
// Delete on the same key.
func (s *GormStore) Get(ctx context.Context, key, scope string) ([]byte, error) {
	if err := validateKey(key, scope); err != nil {
		return nil, err
	}

	var entry Entry
	err := s.db.WithContext(ctx).
		Where("config_key = ? AND scope = ?", key, scope).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if entry.ExpiresAt != nil && !s.clock.Now().Before(*entry.ExpiresAt) {
		return nil, ErrNotFound
	}
	return []byte(entry.Value), nil
}

func (s *GormStore) Set(ctx context.Context, key, scope string, value []byte, ttl time.Duration) error {
	if err := validateKey(key, scope); err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	entry := Entry{
		Key:       key,
		Scope:     scope,
		Value:     datatypes.JSON(value),
		UpdatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		entry.ExpiresAt = &expiresAt
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_key"}, {Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&entry).Error
}

func (s *GormStore) Delete(ctx context.Context, key, scope string) error {
	if err := validateKey(key, scope); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Where("config_key = ? AND scope = ?", key, scope).
		Delete(&Entry{}).Error
}
