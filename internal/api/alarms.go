package api

import (
	"context"
	"net/http"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

func (c *Client) Alarms(ctx context.Context, req paging.Request) (*paging.Page[model.Alarm], error) {
	if req.Sort == "" {
		req.Sort = SortNewest
	}
	return result[*paging.Page[model.Alarm]](ctx, c, call{
		method: http.MethodGet, path: "/users/alarm", query: req.Values(), private: true,
	})
}
