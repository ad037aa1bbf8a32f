package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

func postPath(id int64) string { return "/posts/" + strconv.FormatInt(id, 10) }

// FollowingFeed is the home feed: posts of followed users.
func (c *Client) FollowingFeed(ctx context.Context, req paging.Request) (*paging.Page[model.PostDetail], error) {
	return result[*paging.Page[model.PostDetail]](ctx, c, call{
		method: http.MethodGet, path: "/posts/following", query: req.Values(), private: true,
	})
}

func (c *Client) Post(ctx context.Context, id int64) (model.PostDetail, error) {
	return result[model.PostDetail](ctx, c, call{method: http.MethodGet, path: postPath(id), private: true})
}

// UserPosts lists the thumbnails on a profile.
func (c *Client) UserPosts(ctx context.Context, name string, req paging.Request) (*paging.Page[model.PostSummary], error) {
	return result[*paging.Page[model.PostSummary]](ctx, c, call{
		method: http.MethodGet, path: "/posts/info/" + escape(name), query: req.Values(),
	})
}

func (c *Client) CreatePost(ctx context.Context, req model.PostCreateRequest) error {
	return c.exec(ctx, call{method: http.MethodPost, path: "/posts", body: req, private: true})
}

func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.exec(ctx, call{method: http.MethodDelete, path: postPath(id), private: true})
}

func (c *Client) Like(ctx context.Context, id int64) error {
	return c.exec(ctx, call{method: http.MethodPost, path: postPath(id) + "/likes", private: true})
}

func (c *Client) Unlike(ctx context.Context, id int64) error {
	return c.exec(ctx, call{method: http.MethodDelete, path: postPath(id) + "/likes", private: true})
}
