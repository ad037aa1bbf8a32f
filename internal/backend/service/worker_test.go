package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/database"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue("kim")
	require.NoError(t, err)

	name, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "kim", name)

	_, err = NewTokenIssuer("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokenIssuer("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPublishAndFanout(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	fans := repository.NewFanRepository(db)
	const author = int64(1)
	for _, fan := range []int64{2, 3, 4} {
		require.NoError(t, fans.Create(ctx, author, fan))
	}

	postID, err := NewPublisher(db).Publish(ctx, author, dto.PostCreateRequest{
		Body:  "hello",
		Media: []dto.PostMediaRequest{{URI: "b.jpg", Order: 1}, {URI: "a.jpg", Order: 0}},
	})
	require.NoError(t, err)

	post, err := repository.NewPostRepository(db).FindByID(ctx, postID)
	require.NoError(t, err)
	require.Len(t, post.Media, 2)
	assert.Equal(t, "a.jpg", post.Media[0].URL)

	// batch of 2 pages through the three fans
	w := NewFanoutWorker(db, fans, 1, 2, 10, time.Millisecond)
	n, err := w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var inbox []model.Inbox
	require.NoError(t, db.Order("user_id").Find(&inbox).Error)
	require.Len(t, inbox, 3)
	for _, ib := range inbox {
		assert.Equal(t, postID, ib.PostID)
		assert.Equal(t, postID, ib.Score)
	}

	var out model.Outbox
	require.NoError(t, db.Where("post_id = ?", postID).First(&out).Error)
	assert.Equal(t, model.OutboxDone, out.Status)
	assert.EqualValues(t, 3, out.FanoutCount)

	select {
	case d := <-w.Metrics():
		assert.GreaterOrEqual(t, d, time.Duration(0))
	default:
		t.Fatal("no landing sample recorded")
	}

	n, err = w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingFans struct{ repository.FanRepository }

func (failingFans) ListFans(context.Context, int64, int, int) ([]*model.Fan, error) {
	return nil, errors.New("boom")
}

func TestFanoutFailureReturnsToPending(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	postID, err := NewPublisher(db).Publish(ctx, 1, dto.PostCreateRequest{Body: "x"})
	require.NoError(t, err)

	w := NewFanoutWorker(db, failingFans{repository.NewFanRepository(db)}, 1, 10, 10, time.Millisecond)
	n, err := w.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var out model.Outbox
	require.NoError(t, db.Where("post_id = ?", postID).First(&out).Error)
	assert.Equal(t, model.OutboxPending, out.Status)
}

func TestReplicatorDrainsOnStop(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	fans := repository.NewFanRepository(db)

	var applied atomic.Int32
	r := NewFanReplicator(fans, 16, func(context.Context, int64) { applied.Add(1) })
	stop := r.Start(1)
	r.EnqueueAdd(1, 2)
	r.EnqueueAdd(1, 3)
	r.EnqueueRemove(1, 2)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, stop(stopCtx))

	assert.EqualValues(t, 3, applied.Load())
	assert.Zero(t, r.QueueLen())
	ids, err := fans.ListFanIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids)
}

func TestPageRequestNormalize(t *testing.T) {
	req := PageRequest{Page: -1, Size: 500}.normalize(10)
	assert.Equal(t, 0, req.Page)
	assert.Equal(t, 100, req.Size)
	assert.Equal(t, 10, PageRequest{}.normalize(10).Size)
	assert.Equal(t, 40, PageRequest{Page: 2, Size: 20}.Offset())
}
