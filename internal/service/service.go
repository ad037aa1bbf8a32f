// Package service holds one type per client screen. A screen owns its
// collections exclusively; Close tears them down and later responses for
// them are dropped.
package service

import (
	"errors"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/live"
	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/optimistic"
	"github.com/d60-Lab/feedsync/internal/session"
)

// ErrEmptyText rejects blank comments and chat messages before any call.
var ErrEmptyText = errors.New("service: text is empty")

// Deps are the collaborators shared by every screen.
type Deps struct {
	API     *api.Client
	Session *session.Manager
	Paging  config.PagingConfig
	// Live is the template for chat room channels.
	Live    live.Options
	Metrics metrics.Recorder
}

// NewDeps wires the client side from configuration.
func NewDeps(cfg *config.Config, sess *session.Manager, rec metrics.Recorder) Deps {
	opts := live.OptionsFromConfig(cfg.API.StompURL, cfg.Live)
	opts.Metrics = rec
	return Deps{
		API:     api.NewFromConfig(cfg.API, sess),
		Session: sess,
		Paging:  cfg.Paging,
		Live:    opts,
		Metrics: rec,
	}
}

func (d Deps) recorder() metrics.Recorder {
	if d.Metrics == nil {
		return metrics.Nop
	}
	return d.Metrics
}

var (
	likeMutation = optimistic.Toggle("like",
		func(p *model.PostDetail) *bool { return &p.IsLiked },
		func(p *model.PostDetail) *int { return &p.LikeCnt },
	)
	followMutation = optimistic.Toggle("follow",
		func(u *model.UserDetail) *bool { return &u.IsFollowing },
		func(u *model.UserDetail) *int { return &u.FollowerCount },
	)
	unreadMutation = optimistic.Clear("enter_room",
		func(r *model.ChatRoom) *int { return &r.NotReadMessageCnt },
	)
)
