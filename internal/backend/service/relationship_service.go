package service

import (
	"context"

	"github.com/d60-Lab/feedsync/internal/backend/cache"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID int64) error
	Unfollow(ctx context.Context, fromUserID, toUserID int64) error
	IsFollowing(ctx context.Context, fromUserID, toUserID int64) (bool, error)
	ListFollowing(ctx context.Context, userID int64, req PageRequest) ([]int64, int64, error)
	ListFans(ctx context.Context, userID int64, req PageRequest) ([]int64, int64, error)
}

type relationshipService struct {
	followRepo repository.FollowRepository
	fanRepo    repository.FanRepository
	replicator *FanReplicator       // nil 时同步写粉丝表
	fanCache   *cache.FollowerCache // nil 时粉丝列表直接查库
	alarms     *AlarmService
}

func NewRelationshipService(
	followRepo repository.FollowRepository,
	fanRepo repository.FanRepository,
	replicator *FanReplicator,
	fanCache *cache.FollowerCache,
	alarms *AlarmService,
) RelationshipService {
	return &relationshipService{
		followRepo: followRepo,
		fanRepo:    fanRepo,
		replicator: replicator,
		fanCache:   fanCache,
		alarms:     alarms,
	}
}

func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID int64) error {
	if fromUserID == toUserID {
		return ErrFollowSelf
	}
	exists, err := s.followRepo.Exists(ctx, fromUserID, toUserID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.followRepo.Create(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	if s.replicator != nil {
		s.replicator.EnqueueAdd(toUserID, fromUserID)
	} else {
		if err := s.fanRepo.Create(ctx, toUserID, fromUserID); err != nil {
			return err
		}
		s.invalidate(ctx, toUserID)
	}
	if s.alarms != nil {
		s.alarms.Record(ctx, dto.AlarmFollow, fromUserID, toUserID, "")
	}
	return nil
}

func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID int64) error {
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	if s.replicator != nil {
		s.replicator.EnqueueRemove(toUserID, fromUserID)
		return nil
	}
	if err := s.fanRepo.Delete(ctx, toUserID, fromUserID); err != nil {
		return err
	}
	s.invalidate(ctx, toUserID)
	return nil
}

func (s *relationshipService) IsFollowing(ctx context.Context, fromUserID, toUserID int64) (bool, error) {
	return s.followRepo.Exists(ctx, fromUserID, toUserID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID int64, req PageRequest) ([]int64, int64, error) {
	req = req.normalize(20)
	total, err := s.followRepo.CountFollowings(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.followRepo.ListFollowings(ctx, userID, req.Offset(), req.Size)
	if err != nil {
		return nil, 0, err
	}
	res := make([]int64, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, total, nil
}

func (s *relationshipService) ListFans(ctx context.Context, userID int64, req PageRequest) ([]int64, int64, error) {
	req = req.normalize(20)
	if s.fanCache != nil {
		return s.fanCache.Page(ctx, userID, req.Offset(), req.Size)
	}
	total, err := s.fanRepo.CountFans(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.fanRepo.ListFans(ctx, userID, req.Offset(), req.Size)
	if err != nil {
		return nil, 0, err
	}
	res := make([]int64, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, total, nil
}

func (s *relationshipService) invalidate(ctx context.Context, userID int64) {
	if s.fanCache != nil {
		s.fanCache.Invalidate(ctx, userID)
	}
}
