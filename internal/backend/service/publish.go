package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	dto "github.com/d60-Lab/feedsync/internal/model"
)

// Publisher 负责事务内写 posts + post_media + outbox
type Publisher struct{ db *gorm.DB }

func NewPublisher(db *gorm.DB) *Publisher { return &Publisher{db: db} }

// Publish 在一个事务内落地 Post 与 Outbox 事件
func (p *Publisher) Publish(ctx context.Context, authorID int64, req dto.PostCreateRequest) (int64, error) {
	now := time.Now()
	post := &model.Post{AuthorID: authorID, Body: req.Body, CreatedAt: now, UpdatedAt: now}
	for _, m := range req.Media {
		post.Media = append(post.Media, model.PostMedia{URL: m.URI, MediaOrder: m.Order})
	}
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		out := &model.Outbox{
			ID:        uuid.New().String(),
			PostID:    post.ID,
			AuthorID:  authorID,
			CreatedAt: now,
			Status:    model.OutboxPending,
		}
		return tx.Create(out).Error
	})
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}
