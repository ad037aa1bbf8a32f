package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	"github.com/d60-Lab/feedsync/pkg/database"
)

func setup(t *testing.T) (*FollowerCache, repository.FanRepository, *miniredis.Miniredis) {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	fans := repository.NewFanRepository(db)
	return NewFollowerCache(rdb, fans, time.Minute), fans, mr
}

func TestPageLoadsOnceThenServesFromIndex(t *testing.T) {
	c, fans, mr := setup(t)
	ctx := context.Background()
	for _, fan := range []int64{10, 11, 12} {
		require.NoError(t, fans.Create(ctx, 1, fan))
	}

	ids, total, err := c.Page(ctx, 1, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, ids, 2)
	assert.EqualValues(t, 1, c.IndexLoads())
	assert.True(t, mr.Exists(indexKey(1)))
	assert.Greater(t, mr.TTL(indexKey(1)), time.Duration(0))

	ids, total, err = c.Page(ctx, 1, 2, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, ids, 1)
	assert.EqualValues(t, 1, c.IndexLoads())

	ids, _, err = c.Page(ctx, 1, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestInvalidateForcesReload(t *testing.T) {
	c, fans, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, fans.Create(ctx, 1, 10))
	_, _, err := c.Page(ctx, 1, 0, 10)
	require.NoError(t, err)

	require.NoError(t, fans.Create(ctx, 1, 11))
	c.Invalidate(ctx, 1)
	assert.False(t, mr.Exists(indexKey(1)))

	ids, total, err := c.Page(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.ElementsMatch(t, []int64{10, 11}, ids)
	assert.EqualValues(t, 2, c.IndexLoads())
}

func TestEmptyListIsNotCached(t *testing.T) {
	c, _, mr := setup(t)
	ids, total, err := c.Page(context.Background(), 7, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, total)
	assert.False(t, mr.Exists(indexKey(7)))
}

func TestRedisDownFallsBackToDB(t *testing.T) {
	c, fans, mr := setup(t)
	ctx := context.Background()
	require.NoError(t, fans.Create(ctx, 1, 10))
	mr.Close()

	ids, total, err := c.Page(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []int64{10}, ids)
}
