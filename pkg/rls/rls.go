package rls

import (
	"strconv"

	"gorm.io/gorm"
)

// Setting is the postgres session variable read by row-level security policies.
const Setting = "app.current_tenant_id"

// WithTenant binds tx to tenantID for the rest of the transaction. Only
// postgres enforces policies; other dialects are left untouched and rely on
// the explicit tenant filter applied by the caller.
func WithTenant(tx *gorm.DB, tenantID int64) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT set_config(?, ?, true)", Setting, strconv.FormatInt(tenantID, 10)).Error
}
