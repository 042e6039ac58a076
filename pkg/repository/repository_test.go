package repository

import (
	"context"
	"testing"

	"github.com/smallbiznis/onboard/pkg/db"
	"github.com/smallbiznis/onboard/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID     int64 `gorm:"primaryKey"`
	Name   string
	Active bool
}

func newWidgetStore(t *testing.T) Repository[widget] {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return ProvideStore[widget](conn)
}

func TestFindOneReturnsNilOnMiss(t *testing.T) {
	store := newWidgetStore(t)

	got, err := store.FindOne(context.Background(), &widget{ID: 99})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateFindDelete(t *testing.T) {
	ctx := context.Background()
	store := newWidgetStore(t)

	require.NoError(t, store.Create(ctx, &widget{ID: 1, Name: "a", Active: true}))
	require.NoError(t, store.Create(ctx, &widget{ID: 2, Name: "b", Active: true}))

	got, err := store.FindOne(ctx, &widget{ID: 2})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Name)

	all, err := store.Find(ctx, &widget{Active: true},
		option.WithSortBy(option.QuerySortBy{Field: "id", Desc: true}),
		option.WithLimit(1),
	)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].ID)

	require.NoError(t, store.Delete(ctx, 1))
	count, err := store.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
