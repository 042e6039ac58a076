package plan

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/plan/domain"
	"github.com/smallbiznis/onboard/pkg/repository"
	"gorm.io/gorm"
)

type planRepository struct {
	store repository.Repository[domain.Plan]
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &planRepository{store: repository.ProvideStore[domain.Plan](db)}
}

func (r *planRepository) FindByID(ctx context.Context, id string) (*domain.Plan, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed <= 0 {
		return nil, nil
	}
	return r.store.FindOne(ctx, &domain.Plan{ID: parsed})
}
