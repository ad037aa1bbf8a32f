package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// PostService 发帖、关注流、点赞
type PostService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	publisher *Publisher
	fanout    *FanoutWorker
	inline    bool // 发帖后同步扇出（无后台 worker 时）
	alarms    *AlarmService
	log       *zap.Logger
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository, publisher *Publisher, fanout *FanoutWorker, inline bool, alarms *AlarmService) *PostService {
	return &PostService{
		posts:     posts,
		users:     users,
		publisher: publisher,
		fanout:    fanout,
		inline:    inline,
		alarms:    alarms,
		log:       logger.Named("post_service"),
	}
}

func (s *PostService) Create(ctx context.Context, author *model.User, req dto.PostCreateRequest) (int64, error) {
	id, err := s.publisher.Publish(ctx, author.ID, req)
	if err != nil {
		return 0, err
	}
	if s.inline && s.fanout != nil {
		if _, err := s.fanout.ProcessOnce(ctx); err != nil {
			// outbox 仍为 pending，后续轮次补投
			s.log.Warn("inline fanout failed", zap.Int64("post", id), zap.Error(err))
		}
	}
	return id, nil
}

func (s *PostService) find(ctx context.Context, id int64) (*model.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (s *PostService) Detail(ctx context.Context, viewer *model.User, id int64) (dto.PostDetail, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return dto.PostDetail{}, err
	}
	out, err := s.details(ctx, viewer, []*model.Post{p})
	if err != nil {
		return dto.PostDetail{}, err
	}
	return out[0], nil
}

// Feed 关注流：读 inbox
func (s *PostService) Feed(ctx context.Context, viewer *model.User, req PageRequest) (*paging.Page[dto.PostDetail], error) {
	req = req.normalize(10)
	posts, total, err := s.posts.Timeline(ctx, viewer.ID, req.Offset(), req.Size)
	if err != nil {
		return nil, err
	}
	out, err := s.details(ctx, viewer, posts)
	if err != nil {
		return nil, err
	}
	return newPage(out, req, total), nil
}

// UserPosts 个人主页缩略图，首图为缩略图
func (s *PostService) UserPosts(ctx context.Context, author *model.User, req PageRequest) (*paging.Page[dto.PostSummary], error) {
	req = req.normalize(9)
	posts, total, err := s.posts.ListByAuthor(ctx, author.ID, req.Offset(), req.Size)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PostSummary, len(posts))
	for i, p := range posts {
		out[i] = dto.PostSummary{PostID: p.ID, RegisteredAt: p.CreatedAt}
		if len(p.Media) > 0 {
			out[i].ThumbnailURL = p.Media[0].URL
		}
	}
	return newPage(out, req, total), nil
}

func (s *PostService) Delete(ctx context.Context, viewer *model.User, id int64) error {
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != viewer.ID {
		return ErrPermission
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPostNotFound
		}
		return err
	}
	return nil
}

// Like 重复点赞幂等；首次点赞通知作者
func (s *PostService) Like(ctx context.Context, viewer *model.User, id int64) error {
	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	created, err := s.posts.Like(ctx, id, viewer.ID)
	if err != nil {
		return err
	}
	if created && s.alarms != nil {
		s.alarms.Record(ctx, dto.AlarmLike, viewer.ID, p.AuthorID, "")
	}
	return nil
}

func (s *PostService) Unlike(ctx context.Context, viewer *model.User, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	_, err := s.posts.Unlike(ctx, id, viewer.ID)
	return err
}

func (s *PostService) details(ctx context.Context, viewer *model.User, posts []*model.Post) ([]dto.PostDetail, error) {
	authorIDs := make([]int64, 0, len(posts))
	postIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		postIDs = append(postIDs, p.ID)
	}
	authors, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked, err := s.posts.LikedSet(ctx, viewer.ID, postIDs)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PostDetail, 0, len(posts))
	for _, p := range posts {
		d := dto.PostDetail{
			PostID:       p.ID,
			Body:         p.Body,
			RegisteredAt: p.CreatedAt.Format(timeLayout),
			LikeCnt:      p.LikeCnt,
			CommentCnt:   p.CommentCnt,
			IsOwner:      p.AuthorID == viewer.ID,
			IsLiked:      liked[p.ID],
			Media:        make([]dto.PostMedia, len(p.Media)),
		}
		if a, ok := authors[p.AuthorID]; ok {
			d.UserName, d.NickName, d.UserImg = a.UserName, a.NickName, a.UserImg
		}
		for i, m := range p.Media {
			d.Media[i] = dto.PostMedia{MediaURL: m.URL, MediaOrder: m.MediaOrder}
		}
		out = append(out, d)
	}
	return out, nil
}
