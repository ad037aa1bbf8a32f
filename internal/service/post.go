package service

import (
	"context"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/optimistic"
)

// PostDetail is the single post screen. When opened from a feed, likes and
// deletion are mirrored into it.
type PostDetail struct {
	api     *api.Client
	metrics metrics.Recorder
	id      int64
	feed    *Feed
	post    optimistic.Value[model.PostDetail]
}

func NewPostDetail(d Deps, postID int64, feed *Feed) *PostDetail {
	return &PostDetail{api: d.API, metrics: d.recorder(), id: postID, feed: feed}
}

func (p *PostDetail) Load(ctx context.Context) (model.PostDetail, error) {
	post, err := p.api.Post(ctx, p.id)
	if err != nil {
		return model.PostDetail{}, err
	}
	p.post.Set(post)
	return post, nil
}

func (p *PostDetail) Post() (model.PostDetail, bool) { return p.post.Get() }

func (p *PostDetail) ToggleLike(ctx context.Context) error {
	if err := toggleLike(ctx, p.api, &p.post, p.id, p.metrics); err != nil {
		return err
	}
	if cur, ok := p.post.Get(); ok && p.feed != nil {
		p.feed.posts.Update(p.id, func(fp *model.PostDetail) {
			fp.IsLiked = cur.IsLiked
			fp.LikeCnt = cur.LikeCnt
		})
	}
	return nil
}

// Delete removes the post on the server, then locally.
func (p *PostDetail) Delete(ctx context.Context) error {
	if err := p.api.DeletePost(ctx, p.id); err != nil {
		return err
	}
	if p.feed != nil {
		p.feed.posts.Remove(p.id)
	}
	p.post.Clear()
	return nil
}

func (p *PostDetail) Close() { p.post.Clear() }
