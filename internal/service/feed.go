package service

import (
	"context"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/optimistic"
	"github.com/d60-Lab/feedsync/internal/paging"
)

// Feed is the home screen: posts of followed users, newest pages appended.
type Feed struct {
	api     *api.Client
	metrics metrics.Recorder
	posts   *paging.Collection[int64, model.PostDetail]
}

func NewFeed(d Deps) *Feed {
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.PostDetail], error) {
		return d.API.FollowingFeed(ctx, req)
	}
	return &Feed{
		api:     d.API,
		metrics: d.recorder(),
		posts: paging.New(model.PostDetailKey, fetch, paging.Options{
			Name:    "feed",
			Size:    d.Paging.FeedSize,
			Metrics: d.recorder(),
		}),
	}
}

func (f *Feed) LoadMore(ctx context.Context) (int, error) { return f.posts.LoadMore(ctx) }

// Refresh drops everything and loads page 0 again.
func (f *Feed) Refresh(ctx context.Context) (int, error) {
	f.posts.Reset()
	return f.posts.LoadMore(ctx)
}

func (f *Feed) Posts() []model.PostDetail { return f.posts.Items() }
func (f *Feed) State() paging.State       { return f.posts.State() }

// ToggleLike flips isLiked and likeCnt at once and reverts both if the
// like/unlike call fails. While one toggle is in flight another on the same
// post returns optimistic.ErrPending.
func (f *Feed) ToggleLike(ctx context.Context, postID int64) error {
	return toggleLike(ctx, f.api, f.posts.Edit(postID), postID, f.metrics)
}

func (f *Feed) Close() { f.posts.Close() }

func toggleLike(ctx context.Context, c *api.Client, edit optimistic.Editor[model.PostDetail], postID int64, rec metrics.Recorder) error {
	return optimistic.Run(ctx, edit, likeMutation, rec, func(ctx context.Context, wasLiked bool) error {
		if wasLiked {
			return c.Unlike(ctx, postID)
		}
		return c.Like(ctx, postID)
	})
}
