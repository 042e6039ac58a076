package credential

import (
	_ "embed"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/onboard/internal/credential/domain"
	"gorm.io/gorm"
)

//go:embed policy.conf
var policyModel string

const (
	ObjectBilling = "billing"

	ActionSignupActivate = "signup.activate"
)

// NewEnforcer loads credential-scope policies from the casbin_rule table and
// seeds the platform grant when it is missing.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer with only the seeded policies.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	_, err := enforcer.AddPolicy(domain.ScopePlatform, ObjectBilling, ActionSignupActivate)
	return err
}
