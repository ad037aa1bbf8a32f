package service

import (
	"context"
	"strings"

	"github.com/d60-Lab/feedsync/internal/api"
	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

// Comments is the comment sheet of one post, newest first.
type Comments struct {
	api      *api.Client
	postID   int64
	comments *paging.Collection[int64, model.Comment]
}

func NewComments(d Deps, postID int64) *Comments {
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.Comment], error) {
		return d.API.Comments(ctx, postID, req)
	}
	return &Comments{
		api:    d.API,
		postID: postID,
		comments: paging.New(model.CommentKey, fetch, paging.Options{
			Name:    "comments",
			Size:    d.Paging.CommentSize,
			Sort:    api.SortNewest,
			Metrics: d.recorder(),
		}),
	}
}

func (c *Comments) LoadMore(ctx context.Context) (int, error) { return c.comments.LoadMore(ctx) }

func (c *Comments) Refresh(ctx context.Context) (int, error) {
	c.comments.Reset()
	return c.comments.LoadMore(ctx)
}

func (c *Comments) Items() []model.Comment { return c.comments.Items() }
func (c *Comments) State() paging.State    { return c.comments.State() }

// Add posts a comment and reloads from the top, where the server puts it.
func (c *Comments) Add(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if err := c.api.AddComment(ctx, c.postID, model.CommentRequest{Comment: text}); err != nil {
		return err
	}
	_, err := c.Refresh(ctx)
	return err
}

// Edit changes the text locally once the server accepted it.
func (c *Comments) Edit(ctx context.Context, commentID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	if err := c.api.UpdateComment(ctx, c.postID, commentID, model.CommentRequest{Comment: text}); err != nil {
		return err
	}
	c.comments.Update(commentID, func(cm *model.Comment) { cm.Comment = text })
	return nil
}

func (c *Comments) Delete(ctx context.Context, commentID int64) error {
	if err := c.api.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	c.comments.Remove(commentID)
	return nil
}

func (c *Comments) Close() { c.comments.Close() }
