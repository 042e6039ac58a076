package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/onboard/internal/clock"
	"github.com/smallbiznis/onboard/internal/idempotency/domain"
	"github.com/smallbiznis/onboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Attempt{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewLedger(conn, node, clock.NewFakeClock(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)), zaptest.NewLogger(t))
}

func TestLookupMiss(t *testing.T) {
	ledger := newTestLedger(t)

	replay, err := ledger.Lookup(context.Background(), domain.NewKey("nope", "", ""))
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func TestCommitThenLookup(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	key := domain.NewKey("", "owner@acme.io", "ACME")

	outcome := domain.Outcome{TenantID: "11", OwnerUserID: "12", SubscriptionID: "13", CheckoutURL: "https://pay.example/13"}
	require.NoError(t, ledger.Commit(ctx, key, domain.CommitRequest{
		TenantID:    snowflake.ID(11),
		RequestHash: "fp",
		Outcome:     outcome,
	}))

	replay, err := ledger.Lookup(ctx, domain.NewKey("", "OWNER@acme.io", "acme"))
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, outcome, replay.Outcome)
	assert.Equal(t, domain.KindIdentity, replay.KeyKind)
	assert.Equal(t, "fp", replay.RequestHash)
}

func TestCommitTwiceReturnsAlreadyCommitted(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	key := domain.NewKey("retry-1", "", "")

	require.NoError(t, ledger.Commit(ctx, key, domain.CommitRequest{TenantID: 1, Outcome: domain.Outcome{TenantID: "1"}}))
	err := ledger.Commit(ctx, key, domain.CommitRequest{TenantID: 2, Outcome: domain.Outcome{TenantID: "2"}})
	assert.ErrorIs(t, err, domain.ErrAlreadyCommitted)

	replay, err := ledger.Lookup(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, "1", replay.Outcome.TenantID)
}

func TestConcurrentCommitsHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger(t)
	key := domain.NewKey("", "race@acme.io", "RACE")

	const racers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		losses  int
		unknown []error
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := ledger.Commit(ctx, key, domain.CommitRequest{TenantID: snowflake.ID(i + 1)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case err == domain.ErrAlreadyCommitted:
				losses++
			default:
				unknown = append(unknown, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)
}
