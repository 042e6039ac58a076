package credential

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/smallbiznis/onboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newConfigDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.ProviderConfig{}))
	return conn
}

func seedConfig(t *testing.T, conn *gorm.DB, key []byte, orgID int64, active bool, payload domain.ConfigPayload) {
	t.Helper()
	sealed, err := EncryptConfig(key, payload)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, conn.Create(&domain.ProviderConfig{
		OrgID:     orgID,
		Provider:  "stripe",
		Config:    sealed,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error)
}

func TestEncryptDecryptConfig(t *testing.T) {
	key := DeriveKey("top-secret")
	sealed, err := EncryptConfig(key, domain.ConfigPayload{SecretKey: "sk_live_1", Scope: "platform"})
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "sk_live_1")

	payload, err := DecryptConfig(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_1", payload.SecretKey)

	_, err = DecryptConfig(DeriveKey("other"), sealed)
	assert.Error(t, err)

	_, err = EncryptConfig(nil, domain.ConfigPayload{})
	assert.ErrorIs(t, err, domain.ErrEncryptionKeyMissing)
}

func TestDatabaseResolverResolvesPlatformConfig(t *testing.T) {
	conn := newConfigDB(t)
	key := DeriveKey("secret")
	seedConfig(t, conn, key, domain.PlatformOrgID, true, domain.ConfigPayload{SecretKey: "sk_platform", PublishableKey: "pk_platform"})

	creds, err := NewDatabaseResolver(conn, "Stripe", key).Resolve(context.Background(), domain.ScopePlatform)
	require.NoError(t, err)
	assert.Equal(t, "sk_platform", creds.SecretKey)
	assert.Equal(t, "pk_platform", creds.PublishableKey)
	assert.Equal(t, domain.ScopePlatform, creds.Scope)
	assert.Equal(t, "database", creds.Source)
}

func TestDatabaseResolverMissingConfig(t *testing.T) {
	conn := newConfigDB(t)
	key := DeriveKey("secret")
	// A tenant-owned row must not satisfy the platform scope.
	seedConfig(t, conn, key, 42, true, domain.ConfigPayload{SecretKey: "sk_tenant"})

	_, err := NewDatabaseResolver(conn, "stripe", key).Resolve(context.Background(), domain.ScopePlatform)
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestDatabaseResolverInactiveOrUndecryptable(t *testing.T) {
	conn := newConfigDB(t)
	seedConfig(t, conn, DeriveKey("secret"), domain.PlatformOrgID, true, domain.ConfigPayload{SecretKey: "sk"})

	_, err := NewDatabaseResolver(conn, "stripe", nil).Resolve(context.Background(), domain.ScopePlatform)
	assert.ErrorIs(t, err, domain.ErrConfigMissing)

	require.NoError(t, conn.Model(&domain.ProviderConfig{}).Where("org_id = ?", 0).Update("is_active", false).Error)
	_, err = NewDatabaseResolver(conn, "stripe", DeriveKey("secret")).Resolve(context.Background(), domain.ScopePlatform)
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}
