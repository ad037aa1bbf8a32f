package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

// Comments are public and newest first unless req carries its own sort.
func (c *Client) Comments(ctx context.Context, postID int64, req paging.Request) (*paging.Page[model.Comment], error) {
	if req.Sort == "" {
		req.Sort = SortNewest
	}
	return result[*paging.Page[model.Comment]](ctx, c, call{
		method: http.MethodGet, path: postPath(postID) + "/comments", query: req.Values(),
	})
}

func (c *Client) AddComment(ctx context.Context, postID int64, req model.CommentRequest) error {
	return c.exec(ctx, call{method: http.MethodPost, path: postPath(postID) + "/comments", body: req, private: true})
}

func (c *Client) UpdateComment(ctx context.Context, postID, commentID int64, req model.CommentRequest) error {
	return c.exec(ctx, call{
		method:  http.MethodPut,
		path:    postPath(postID) + "/comments/" + strconv.FormatInt(commentID, 10),
		body:    req,
		private: true,
	})
}

func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.exec(ctx, call{
		method:  http.MethodDelete,
		path:    "/posts/comments/" + strconv.FormatInt(commentID, 10),
		private: true,
	})
}
