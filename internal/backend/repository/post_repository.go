package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/feedsync/internal/backend/model"
)

type PostRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Post, error)
	ListByAuthor(ctx context.Context, authorID int64, offset, limit int) ([]*model.Post, int64, error)
	Timeline(ctx context.Context, userID int64, offset, limit int) ([]*model.Post, int64, error)
	Delete(ctx context.Context, id int64) error

	Like(ctx context.Context, postID, userID int64) (bool, error)
	Unlike(ctx context.Context, postID, userID int64) (bool, error)
	LikedSet(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error)
}

type postRepository struct{ db *gorm.DB }

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	var p model.Post
	err := r.db.WithContext(ctx).Preload("Media", withMediaOrder).First(&p, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID int64, offset, limit int) ([]*model.Post, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Post{}).Where("author_id = ?", authorID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Post
	err := q.Preload("Media", withMediaOrder).Order("id DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, total, err
}

// Timeline 读 inbox（写扩散结果），按投递分数倒序
func (r *postRepository) Timeline(ctx context.Context, userID int64, offset, limit int) ([]*model.Post, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Inbox{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&model.Inbox{}).
		Where("user_id = ?", userID).
		Order("score DESC").
		Offset(offset).Limit(limit).
		Pluck("post_id", &ids).Error; err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return nil, total, nil
	}
	var posts []*model.Post
	if err := r.db.WithContext(ctx).Preload("Media", withMediaOrder).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	byID := make(map[int64]*model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	res := make([]*model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			res = append(res, p)
		}
	}
	return res, total, nil
}

// Delete 连带删除图片、点赞、评论与时间线投递
func (r *postRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.PostMedia{}, &model.Like{}, &model.Comment{}, &model.Inbox{}, &model.Outbox{}} {
			if err := tx.Where("post_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&model.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Like 返回是否新增；计数与点赞记录同事务
func (r *postRepository) Like(ctx context.Context, postID, userID int64) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.Like{ID: uuid.New().String(), PostID: postID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&model.Post{}).Where("id = ?", postID).
			UpdateColumn("like_cnt", gorm.Expr("like_cnt + 1")).Error
	})
	return created, err
}

func (r *postRepository) Unlike(ctx context.Context, postID, userID int64) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&model.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&model.Post{}).Where("id = ? AND like_cnt > 0", postID).
			UpdateColumn("like_cnt", gorm.Expr("like_cnt - 1")).Error
	})
	return removed, err
}

func (r *postRepository) LikedSet(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}
	var liked []int64
	if err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &liked).Error; err != nil {
		return nil, err
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}

func withMediaOrder(db *gorm.DB) *gorm.DB { return db.Order("media_order") }
