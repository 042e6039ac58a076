package recovery

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/config"
	"github.com/smallbiznis/onboard/internal/configstore"
	"github.com/smallbiznis/onboard/internal/recovery/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const keyPrefix = "signup.recovery."

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Store  configstore.Store
	Clock  clock.Clock
	Policy *config.SignupPolicyHolder
	Log    *zap.Logger
}

// Service validates and consumes abandoned-cart recovery tokens.
type Service struct {
	db     *gorm.DB
	store  configstore.Store
	clock  clock.Clock
	policy *config.SignupPolicyHolder
	log    *zap.Logger
}

// Token is a validated recovery token ready to be consumed.
type Token struct {
	key       string
	SessionID int64
	ExpiresAt time.Time
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		store:  p.Store,
		clock:  p.Clock,
		policy: p.Policy,
		log:    p.Log.Named("recovery"),
	}
}

// Validate checks the token without changing anything. Unknown, malformed
// and expired tokens all return domain.ErrInvalidToken.
func (s *Service) Validate(ctx context.Context, token string) (*Token, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	key := entryKey(token)
	raw, err := s.store.Get(ctx, key, configstore.ScopePlatform)
	if errors.Is(err, configstore.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load recovery entry: %w", err)
	}

	var entry domain.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, domain.ErrInvalidToken
	}
	sessionID, err := strconv.ParseInt(entry.SessionID, 10, 64)
	if err != nil || sessionID <= 0 {
		return nil, domain.ErrInvalidToken
	}
	if entry.ExpiresAt.IsZero() || !s.clock.Now().Before(entry.ExpiresAt) {
		return nil, domain.ErrInvalidToken
	}

	return &Token{key: key, SessionID: sessionID, ExpiresAt: entry.ExpiresAt}, nil
}

// Consume marks the session recovered and removes the token. Failures are
// logged and dropped.
func (s *Service) Consume(ctx context.Context, token *Token, tenantID int64) {
	if token == nil {
		return
	}
	log := s.log.With(zap.Int64("session_id", token.SessionID), zap.Int64("tenant_id", tenantID))

	now := s.clock.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", token.SessionID).
		Updates(map[string]any{
			"status":       domain.SessionStatusRecovered,
			"recovered_at": now,
			"tenant_id":    tenantID,
			"updated_at":   now,
		})
	if res.Error != nil {
		log.Warn("mark session recovered failed", zap.Error(res.Error))
	} else if res.RowsAffected == 0 {
		log.Warn("recovery session not found")
	}

	if err := s.store.Delete(ctx, token.key, configstore.ScopePlatform); err != nil {
		log.Warn("delete recovery entry failed", zap.Error(err))
	}
}

// Issue creates a recovery token for an existing session. The raw token is
// only ever returned here.
func (s *Service) Issue(ctx context.Context, sessionID int64) (string, error) {
	if sessionID <= 0 {
		return "", errors.New("session id is required")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	ttl := s.policy.Get().RecoveryTokenTTL
	payload, err := json.Marshal(domain.Entry{
		SessionID: strconv.FormatInt(sessionID, 10),
		ExpiresAt: s.clock.Now().UTC().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, entryKey(token), configstore.ScopePlatform, payload, ttl); err != nil {
		return "", fmt.Errorf("store recovery entry: %w", err)
	}
	return token, nil
}

func entryKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}
