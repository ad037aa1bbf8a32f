package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/internal/backend/model"
)

type CommentRepository interface {
	Create(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id int64) (*model.Comment, error)
	UpdateBody(ctx context.Context, id int64, body string) error
	Delete(ctx context.Context, c *model.Comment) error
	ListByPost(ctx context.Context, postID int64, offset, limit int) ([]*model.Comment, int64, error)
}

type commentRepository struct{ db *gorm.DB }

func NewCommentRepository(db *gorm.DB) CommentRepository { return &commentRepository{db: db} }

// Create 同事务累加帖子评论数
func (r *commentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&model.Post{}).Where("id = ?", c.PostID).
			UpdateColumn("comment_cnt", gorm.Expr("comment_cnt + 1")).Error
	})
}

func (r *commentRepository) FindByID(ctx context.Context, id int64) (*model.Comment, error) {
	var c model.Comment
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *commentRepository) UpdateBody(ctx context.Context, id int64, body string) error {
	return r.db.WithContext(ctx).Model(&model.Comment{}).Where("id = ?", id).Update("body", body).Error
}

func (r *commentRepository) Delete(ctx context.Context, c *model.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Comment{}, c.ID).Error; err != nil {
			return err
		}
		return tx.Model(&model.Post{}).Where("id = ? AND comment_cnt > 0", c.PostID).
			UpdateColumn("comment_cnt", gorm.Expr("comment_cnt - 1")).Error
	})
}

// ListByPost 最新在前
func (r *commentRepository) ListByPost(ctx context.Context, postID int64, offset, limit int) ([]*model.Comment, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Comment{}).Where("post_id = ?", postID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Comment
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, total, err
}
