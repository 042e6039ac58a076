package seed

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/onboard/internal/plan/domain"
	"github.com/smallbiznis/onboard/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureStarterPlansIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&plandomain.Plan{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	created, err := EnsureStarterPlans(conn, node)
	require.NoError(t, err)
	assert.Equal(t, len(starterPlans), created)

	created, err = EnsureStarterPlans(conn, node)
	require.NoError(t, err)
	assert.Zero(t, created)

	var starter plandomain.Plan
	require.NoError(t, conn.Where("code = ?", "starter").First(&starter).Error)
	assert.True(t, starter.Public)
	assert.True(t, starter.Active)
	require.NotNil(t, starter.TrialDays)
	assert.Equal(t, 14, *starter.TrialDays)

	var enterprise plandomain.Plan
	require.NoError(t, conn.Where("code = ?", "enterprise").First(&enterprise).Error)
	assert.False(t, enterprise.Public)
}
