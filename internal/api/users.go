package api

import (
	"context"
	"net/http"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

func (c *Client) Join(ctx context.Context, req model.JoinRequest) (model.JoinResult, error) {
	return result[model.JoinResult](ctx, c, call{method: http.MethodPost, path: "/users/join", body: req})
}

// Login returns the issued JWT.
func (c *Client) Login(ctx context.Context, req model.LoginRequest) (string, error) {
	res, err := result[model.LoginResult](ctx, c, call{method: http.MethodPost, path: "/users/login", body: req})
	if err != nil {
		return "", err
	}
	return res.JWT, nil
}

func (c *Client) User(ctx context.Context, name string) (model.UserDetail, error) {
	return result[model.UserDetail](ctx, c, call{method: http.MethodGet, path: "/users/" + escape(name)})
}

func (c *Client) MyInfo(ctx context.Context) (model.UserDetail, error) {
	return result[model.UserDetail](ctx, c, call{method: http.MethodGet, path: "/users/info", private: true})
}

func (c *Client) SearchUsers(ctx context.Context, keyword string, req paging.Request) (*paging.Page[model.UserInfo], error) {
	q := req.Values()
	q.Set("keyword", keyword)
	return result[*paging.Page[model.UserInfo]](ctx, c, call{method: http.MethodGet, path: "/users/search", query: q})
}
