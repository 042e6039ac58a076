package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/onboard/internal/plan/domain"
	"gorm.io/gorm"
)

type starterPlan struct {
	code      string
	name      string
	public    bool
	trialDays int
}

var starterPlans = []starterPlan{
	{code: "starter", name: "Starter", public: true, trialDays: 14},
	{code: "growth", name: "Growth", public: true},
	{code: "enterprise", name: "Enterprise", public: false},
}

// EnsureStarterPlans seeds the default plan catalog for local and self-hosted
// environments. Existing plans are left untouched. It returns how many plans
// were created.
func EnsureStarterPlans(db *gorm.DB, node *snowflake.Node) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	ctx := context.Background()
	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range starterPlans {
			ok, err := ensurePlanTx(ctx, tx, node, p)
			if err != nil {
				return err
			}
			if ok {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, p starterPlan) (bool, error) {
	var plan plandomain.Plan
	err := tx.WithContext(ctx).Where("code = ?", p.code).First(&plan).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	plan = plandomain.Plan{
		ID:        node.Generate(),
		Code:      p.code,
		Name:      p.name,
		Public:    p.public,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if p.trialDays > 0 {
		days := p.trialDays
		plan.TrialDays = &days
	}
	if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
		return false, err
	}
	return true, nil
}
