package api

import (
	"context"
	"net/http"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

// FollowCheck reports whether the session user follows name. The server
// answers with a bare boolean.
func (c *Client) FollowCheck(ctx context.Context, name string) (bool, error) {
	return bare[bool](ctx, c, call{method: http.MethodGet, path: "/users/follow-check/" + escape(name), private: true})
}

func (c *Client) Follow(ctx context.Context, name string) error {
	return c.exec(ctx, call{method: http.MethodPost, path: "/users/follow/" + escape(name), private: true})
}

func (c *Client) Unfollow(ctx context.Context, name string) error {
	return c.exec(ctx, call{method: http.MethodDelete, path: "/users/unfollow/" + escape(name), private: true})
}

func (c *Client) Following(ctx context.Context, name string, req paging.Request) (*paging.Page[model.UserInfo], error) {
	return c.userPage(ctx, "/users/"+escape(name)+"/following", req)
}

func (c *Client) Followers(ctx context.Context, name string, req paging.Request) (*paging.Page[model.UserInfo], error) {
	return c.userPage(ctx, "/users/"+escape(name)+"/followers", req)
}

func (c *Client) MyFollowing(ctx context.Context, req paging.Request) (*paging.Page[model.UserInfo], error) {
	return c.userPage(ctx, "/users/my-following", req)
}

func (c *Client) MyFollowers(ctx context.Context, req paging.Request) (*paging.Page[model.UserInfo], error) {
	return c.userPage(ctx, "/users/my-followers", req)
}

func (c *Client) userPage(ctx context.Context, path string, req paging.Request) (*paging.Page[model.UserInfo], error) {
	return result[*paging.Page[model.UserInfo]](ctx, c, call{
		method: http.MethodGet, path: path, query: req.Values(), private: true,
	})
}
