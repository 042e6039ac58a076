package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/onboard/internal/audit/domain"
	billingprovisioningdomain "github.com/smallbiznis/onboard/internal/billingprovisioning/domain"
	"github.com/smallbiznis/onboard/internal/configstore"
	credentialdomain "github.com/smallbiznis/onboard/internal/credential/domain"
	eventsdomain "github.com/smallbiznis/onboard/internal/events/domain"
	idempotencydomain "github.com/smallbiznis/onboard/internal/idempotency/domain"
	plandomain "github.com/smallbiznis/onboard/internal/plan/domain"
	recoverydomain "github.com/smallbiznis/onboard/internal/recovery/domain"
	tenantdomain "github.com/smallbiznis/onboard/internal/tenant/domain"
	"gorm.io/gorm"
)

// Models lists every table the signup flow owns, in dependency order.
// Tenant, user and subscription go in one AutoMigrate call so the cascading
// foreign keys are created.
func Models() []any {
	return []any{
		&tenantdomain.Tenant{},
		&tenantdomain.User{},
		&tenantdomain.Subscription{},
		&idempotencydomain.Attempt{},
		&plandomain.Plan{},
		&credentialdomain.ProviderConfig{},
		&recoverydomain.Session{},
		&configstore.Entry{},
		&eventsdomain.OutboxEvent{},
		&billingprovisioningdomain.Workspace{},
		&auditdomain.AuditLog{},
	}
}

// Run applies the schema for the connected dialect. Postgres gets the
// versioned SQL migrations including row level security; other dialects
// fall back to AutoMigrate.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
