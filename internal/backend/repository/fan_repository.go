package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/feedsync/internal/backend/model"
)

type FanRepository interface {
	Create(ctx context.Context, userID, fanID int64) error
	Delete(ctx context.Context, userID, fanID int64) error
	ListFans(ctx context.Context, userID int64, offset, limit int) ([]*model.Fan, error)
	ListFanIDs(ctx context.Context, userID int64) ([]int64, error)
	CountFans(ctx context.Context, userID int64) (int64, error)
}

type fanRepository struct{ db *gorm.DB }

func NewFanRepository(db *gorm.DB) FanRepository { return &fanRepository{db: db} }

func (r *fanRepository) Create(ctx context.Context, userID, fanID int64) error {
	f := &model.Fan{ID: uuid.New().String(), UserID: userID, FanID: fanID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *fanRepository) Delete(ctx context.Context, userID, fanID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ? AND fan_id = ?", userID, fanID).Delete(&model.Fan{}).Error
}

func (r *fanRepository) ListFans(ctx context.Context, userID int64, offset, limit int) ([]*model.Fan, error) {
	var res []*model.Fan
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

// ListFanIDs 全量粉丝 id，供缓存索引与扇出使用
func (r *fanRepository) ListFanIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Fan{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("fan_id", &ids).Error
	return ids, err
}

func (r *fanRepository) CountFans(ctx context.Context, userID int64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Fan{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt, err
}
