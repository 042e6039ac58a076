package credential

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/credential/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeVault(t *testing.T, data map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/platform/billing" || data == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 1},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestVaultResolver(t *testing.T, srv *httptest.Server) *VaultResolver {
	t.Helper()
	cfg := config.VaultConfig{Addr: srv.URL, Token: "test-token", Mount: "secret", Path: "platform/billing"}
	client, err := NewVaultClient(cfg)
	require.NoError(t, err)
	return NewVaultResolver(client, cfg, "stripe")
}

func TestVaultResolverReadsKV(t *testing.T) {
	srv := newFakeVault(t, map[string]any{"secret_key": "sk_vault", "publishable_key": "pk_vault"})

	creds, err := newTestVaultResolver(t, srv).Resolve(context.Background(), domain.ScopePlatform)
	require.NoError(t, err)
	assert.Equal(t, "sk_vault", creds.SecretKey)
	assert.Equal(t, "pk_vault", creds.PublishableKey)
	assert.Equal(t, domain.ScopePlatform, creds.Scope)
	assert.Equal(t, "vault", creds.Source)
}

func TestVaultResolverMissingSecret(t *testing.T) {
	srv := newFakeVault(t, nil)

	_, err := newTestVaultResolver(t, srv).Resolve(context.Background(), domain.ScopePlatform)
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}

func TestVaultResolverMissingSecretKey(t *testing.T) {
	srv := newFakeVault(t, map[string]any{"publishable_key": "pk"})

	_, err := newTestVaultResolver(t, srv).Resolve(context.Background(), domain.ScopePlatform)
	assert.ErrorIs(t, err, domain.ErrConfigMissing)
}
