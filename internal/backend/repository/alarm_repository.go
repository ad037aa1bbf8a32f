package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/internal/backend/model"
)

type AlarmRepository interface {
	Create(ctx context.Context, a *model.Alarm) error
	ListByTarget(ctx context.Context, targetID int64, offset, limit int) ([]*model.Alarm, int64, error)
}

type alarmRepository struct{ db *gorm.DB }

func NewAlarmRepository(db *gorm.DB) AlarmRepository { return &alarmRepository{db: db} }

func (r *alarmRepository) Create(ctx context.Context, a *model.Alarm) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *alarmRepository) ListByTarget(ctx context.Context, targetID int64, offset, limit int) ([]*model.Alarm, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Alarm{}).Where("target_user_id = ?", targetID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var res []*model.Alarm
	err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&res).Error
	return res, total, err
}
