package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/optimistic"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/internal/session"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

var ErrSelfFollow = errors.New("service: cannot follow yourself")

// Profile is a user's page: header counters plus a thumbnail grid.
// An empty name opens the session user's own profile.
type Profile struct {
	api     *api.Client
	session *session.Manager
	metrics metrics.Recorder
	name    string
	header  optimistic.Value[model.UserDetail]
	posts   *paging.Collection[int64, model.PostSummary]
	log     *zap.Logger
}

func NewProfile(d Deps, name string) *Profile {
	if name == "" {
		name = d.Session.UserName()
	}
	p := &Profile{
		api:     d.API,
		session: d.Session,
		metrics: d.recorder(),
		name:    name,
		log:     logger.Named("service").With(zap.String("profile", name)),
	}
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.PostSummary], error) {
		return d.API.UserPosts(ctx, p.name, req)
	}
	p.posts = paging.New(model.PostSummaryKey, fetch, paging.Options{
		Name:    "profile_posts",
		Size:    d.Paging.ProfilePostSize,
		Metrics: d.recorder(),
	})
	return p
}

// Load fetches the header and the first grid page. A failed follow-check is
// logged and treated as not following.
func (p *Profile) Load(ctx context.Context) error {
	var (
		detail model.UserDetail
		err    error
	)
	self := p.IsSelf()
	if self {
		detail, err = p.api.MyInfo(ctx)
	} else {
		detail, err = p.api.User(ctx, p.name)
	}
	if err != nil {
		return err
	}
	if !self {
		following, err := p.api.FollowCheck(ctx, p.name)
		if err != nil {
			p.log.Warn("follow check failed", zap.Error(err))
		}
		detail.IsFollowing = following
	}
	p.header.Set(detail)

	_, err = p.posts.LoadMore(ctx)
	return err
}

func (p *Profile) Header() (model.UserDetail, bool) { return p.header.Get() }

// IsSelf compares against the current session user.
func (p *Profile) IsSelf() bool { return p.name == p.session.UserName() }

func (p *Profile) LoadMorePosts(ctx context.Context) (int, error) { return p.posts.LoadMore(ctx) }
func (p *Profile) Posts() []model.PostSummary                     { return p.posts.Items() }
func (p *Profile) PostsState() paging.State                       { return p.posts.State() }

// ToggleFollow flips isFollowing and followerCount together.
func (p *Profile) ToggleFollow(ctx context.Context) error {
	if p.IsSelf() {
		return ErrSelfFollow
	}
	return optimistic.Run(ctx, &p.header, followMutation, p.metrics, func(ctx context.Context, wasFollowing bool) error {
		if wasFollowing {
			return p.api.Unfollow(ctx, p.name)
		}
		return p.api.Follow(ctx, p.name)
	})
}

func (p *Profile) Close() {
	p.posts.Close()
	p.header.Clear()
}
