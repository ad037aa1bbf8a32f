package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

type AlarmService struct {
	alarms repository.AlarmRepository
	users  repository.UserRepository
	log    *zap.Logger
}

func NewAlarmService(alarms repository.AlarmRepository, users repository.UserRepository) *AlarmService {
	return &AlarmService{alarms: alarms, users: users, log: logger.Named("alarm_service")}
}

// Record 尽力写入通知，失败只记日志；给自己的操作不产生通知
func (s *AlarmService) Record(ctx context.Context, typ dto.AlarmType, fromID, targetID int64, text string) {
	if fromID == targetID {
		return
	}
	if text == "" {
		text = defaultAlarmText(typ)
	}
	a := &model.Alarm{AlarmType: string(typ), FromUserID: fromID, TargetUserID: targetID, Text: text}
	if err := s.alarms.Create(ctx, a); err != nil {
		s.log.Warn("record alarm failed",
			zap.String("type", string(typ)), zap.Int64("from", fromID), zap.Int64("target", targetID), zap.Error(err))
	}
}

func defaultAlarmText(typ dto.AlarmType) string {
	switch typ {
	case dto.AlarmLike:
		return "liked your post"
	case dto.AlarmFollow:
		return "started following you"
	default:
		return "commented on your post"
	}
}

// List 最新在前
func (s *AlarmService) List(ctx context.Context, target *model.User, req PageRequest) (*paging.Page[dto.Alarm], error) {
	req = req.normalize(20)
	rows, total, err := s.alarms.ListByTarget(ctx, target.ID, req.Offset(), req.Size)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i, a := range rows {
		ids[i] = a.FromUserID
	}
	from, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]dto.Alarm, 0, len(rows))
	for _, a := range rows {
		item := dto.Alarm{
			ID:             a.ID,
			AlarmType:      dto.AlarmType(a.AlarmType),
			TargetUserName: target.UserName,
			Text:           a.Text,
			RegisteredAt:   a.CreatedAt.Format(timeLayout),
		}
		if u, ok := from[a.FromUserID]; ok {
			item.FromUserName = u.UserName
		}
		out = append(out, item)
	}
	return newPage(out, req, total), nil
}
