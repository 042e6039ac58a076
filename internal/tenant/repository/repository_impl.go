package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/tenant/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) CreateTenant(ctx context.Context, tenant *domain.Tenant) error {
	return r.db.WithContext(ctx).Omit("Users", "Subscription").Create(tenant).Error
}

func (r *repository) FindTenant(ctx context.Context, id snowflake.ID) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *repository) DeleteTenant(ctx context.Context, id snowflake.ID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Tenant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (r *repository) CountTenantsByName(ctx context.Context, name string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Tenant{}).Where("name = ?", name).Count(&count).Error
	return count, err
}
