package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/credential/domain"
)

// VaultResolver reads platform credentials from a KV-v2 secret with the keys
// secret_key, publishable_key and scope.
type VaultResolver struct {
	kv       *vault.KVv2
	path     string
	provider string
}

func NewVaultClient(cfg config.VaultConfig) (*vault.Client, error) {
	vcfg := vault.DefaultConfig()
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		vcfg.Address = addr
	}
	client, err := vault.NewClient(vcfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		client.SetToken(token)
	}
	return client, nil
}

func NewVaultResolver(client *vault.Client, cfg config.VaultConfig, provider string) *VaultResolver {
	return &VaultResolver{
		kv:       client.KVv2(cfg.Mount),
		path:     strings.Trim(cfg.Path, "/"),
		provider: strings.ToLower(strings.TrimSpace(provider)),
	}
}

func (r *VaultResolver) Resolve(ctx context.Context, scope string) (*domain.Credentials, error) {
	if scope != domain.ScopePlatform {
		return nil, fmt.Errorf("%w: unsupported scope %q", domain.ErrScopeViolation, scope)
	}

	secret, err := r.kv.Get(ctx, r.path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return nil, fmt.Errorf("%w: vault secret %s", domain.ErrConfigMissing, r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("vault get %s: %w", r.path, err)
	}

	secretKey := stringValue(secret.Data, "secret_key")
	if secretKey == "" {
		return nil, fmt.Errorf("%w: vault secret %s has no secret_key", domain.ErrConfigMissing, r.path)
	}

	return &domain.Credentials{
		Provider:       r.provider,
		Scope:          scopeOrDefault(stringValue(secret.Data, "scope"), scope),
		SecretKey:      secretKey,
		PublishableKey: stringValue(secret.Data, "publishable_key"),
		Source:         "vault",
	}, nil
}

func stringValue(data map[string]interface{}, key string) string {
	raw, ok := data[key]
	if !ok {
		return ""
	}
	value, _ := raw.(string)
	return strings.TrimSpace(value)
}
