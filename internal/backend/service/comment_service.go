package service

import (
	"context"
	"errors"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	alarms   *AlarmService
}

func NewCommentService(comments repository.CommentRepository, posts repository.PostRepository, users repository.UserRepository, alarms *AlarmService) *CommentService {
	return &CommentService{comments: comments, posts: posts, users: users, alarms: alarms}
}

func (s *CommentService) post(ctx context.Context, id int64) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

// owned 评论存在且属于 viewer
func (s *CommentService) owned(ctx context.Context, viewer *model.User, id int64) (*model.Comment, error) {
	c, err := s.comments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.UserID != viewer.ID {
		return nil, ErrPermission
	}
	return c, nil
}

func (s *CommentService) List(ctx context.Context, postID int64, req PageRequest) (*paging.Page[dto.Comment], error) {
	if _, err := s.post(ctx, postID); err != nil {
		return nil, err
	}
	req = req.normalize(10)
	rows, total, err := s.comments.ListByPost(ctx, postID, req.Offset(), req.Size)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, c := range rows {
		ids[i] = c.UserID
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Comment, 0, len(rows))
	for _, c := range rows {
		item := dto.Comment{ID: c.ID, Comment: c.Body, PostID: c.PostID, RegisteredAt: c.CreatedAt.Format(timeLayout)}
		if u, ok := users[c.UserID]; ok {
			item.UserName, item.UserImg = u.UserName, u.UserImg
		}
		out = append(out, item)
	}
	return newPage(out, req, total), nil
}

func (s *CommentService) Add(ctx context.Context, viewer *model.User, postID int64, body string) error {
	p, err := s.post(ctx, postID)
	if err != nil {
		return err
	}
	if err := s.comments.Create(ctx, &model.Comment{PostID: postID, UserID: viewer.ID, Body: body}); err != nil {
		return err
	}
	if s.alarms != nil {
		s.alarms.Record(ctx, dto.AlarmComment, viewer.ID, p.AuthorID, body)
	}
	return nil
}

func (s *CommentService) Update(ctx context.Context, viewer *model.User, postID, commentID int64, body string) error {
	c, err := s.owned(ctx, viewer, commentID)
	if err != nil {
		return err
	}
	if c.PostID != postID {
		return ErrCommentNotFound
	}
	return s.comments.UpdateBody(ctx, commentID, body)
}

func (s *CommentService) Delete(ctx context.Context, viewer *model.User, commentID int64) error {
	c, err := s.owned(ctx, viewer, commentID)
	if err != nil {
		return err
	}
	return s.comments.Delete(ctx, c)
}
