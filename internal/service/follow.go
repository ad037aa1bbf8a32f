package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

type FollowKind int

const (
	Followers FollowKind = iota
	Following
	MyFollowers
	MyFollowing
)

func (k FollowKind) String() string {
	switch k {
	case Followers:
		return "followers"
	case Following:
		return "following"
	case MyFollowers:
		return "my_followers"
	case MyFollowing:
		return "my_following"
	default:
		return fmt.Sprintf("FollowKind(%d)", int(k))
	}
}

// FollowList is one of the four follow lists. name is ignored for the My* kinds.
type FollowList struct {
	kind  FollowKind
	users *paging.Collection[string, model.UserInfo]
}

func NewFollowList(d Deps, kind FollowKind, name string) *FollowList {
	var fetch paging.FetchFunc[model.UserInfo]
	switch kind {
	case Followers:
		fetch = func(ctx context.Context, req paging.Request) (paging.Window[model.UserInfo], error) {
			return d.API.Followers(ctx, name, req)
		}
	case Following:
		fetch = func(ctx context.Context, req paging.Request) (paging.Window[model.UserInfo], error) {
			return d.API.Following(ctx, name, req)
		}
	case MyFollowers:
		fetch = func(ctx context.Context, req paging.Request) (paging.Window[model.UserInfo], error) {
			return d.API.MyFollowers(ctx, req)
		}
	default:
		fetch = func(ctx context.Context, req paging.Request) (paging.Window[model.UserInfo], error) {
			return d.API.MyFollowing(ctx, req)
		}
	}
	return &FollowList{
		kind: kind,
		users: paging.New(model.UserInfoKey, fetch, paging.Options{
			Name:    kind.String(),
			Size:    d.Paging.FollowSize,
			Metrics: d.recorder(),
		}),
	}
}

func (l *FollowList) Kind() FollowKind { return l.kind }

func (l *FollowList) LoadMore(ctx context.Context) (int, error) { return l.users.LoadMore(ctx) }

func (l *FollowList) Refresh(ctx context.Context) (int, error) {
	l.users.Reset()
	return l.users.LoadMore(ctx)
}

func (l *FollowList) Users() []model.UserInfo { return l.users.Items() }
func (l *FollowList) State() paging.State     { return l.users.State() }
func (l *FollowList) Close()                  { l.users.Close() }
