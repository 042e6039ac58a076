package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/idempotency/domain"
	"github.com/smallbiznis/onboard/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ledger records one outcome per idempotency key. Uniqueness is enforced by
// the database index on key_hash, which is what makes concurrent duplicate
// signups converge across processes.
type Ledger struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
	log   *zap.Logger
}

func NewLedger(conn *gorm.DB, genID *snowflake.Node, clk clock.Clock, log *zap.Logger) *Ledger {
	return &Ledger{
		db:    conn,
		genID: genID,
		clock: clk,
		log:   log.Named("idempotency.ledger"),
	}
}

// Lookup returns the committed outcome for key, or nil, nil on a miss.
func (l *Ledger) Lookup(ctx context.Context, key domain.Key) (*domain.Replay, error) {
	var attempt domain.Attempt
	err := l.db.WithContext(ctx).
		Where("key_hash = ?", key.Hash()).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}

	var outcome domain.Outcome
	if err := json.Unmarshal(attempt.Response, &outcome); err != nil {
		return nil, fmt.Errorf("decode stored outcome: %w", err)
	}
	return &domain.Replay{
		Outcome:     outcome,
		KeyKind:     attempt.KeyKind,
		RequestHash: attempt.RequestHash,
		CreatedAt:   attempt.CreatedAt,
	}, nil
}

// Commit persists req under key exactly once. A lost race surfaces as
// domain.ErrAlreadyCommitted; every other failure is returned wrapped.
func (l *Ledger) Commit(ctx context.Context, key domain.Key, req domain.CommitRequest) error {
	payload, err := json.Marshal(req.Outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	attempt := domain.Attempt{
		ID:          l.genID.Generate(),
		KeyHash:     key.Hash(),
		KeyKind:     key.Kind(),
		OwnerEmail:  key.OwnerEmail,
		TenantCode:  key.TenantCode,
		TenantID:    req.TenantID,
		RequestHash: req.RequestHash,
		Response:    payload,
		CreatedAt:   l.clock.Now(),
	}

	if err := l.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			l.log.Info("idempotency key committed concurrently",
				zap.String("key_kind", attempt.KeyKind),
				zap.Int64("tenant_id", req.TenantID.Int64()),
			)
			return domain.ErrAlreadyCommitted
		}
		return fmt.Errorf("commit idempotency key: %w", err)
	}
	return nil
}
