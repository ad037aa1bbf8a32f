package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// UserService 注册、登录、鉴权与用户资料
type UserService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	fans    repository.FanRepository
	tokens  *TokenIssuer
	log     *zap.Logger
}

func NewUserService(users repository.UserRepository, follows repository.FollowRepository, fans repository.FanRepository, tokens *TokenIssuer) *UserService {
	return &UserService{users: users, follows: follows, fans: fans, tokens: tokens, log: logger.Named("user_service")}
}

func (s *UserService) Join(ctx context.Context, userName, nickName, password string) (dto.JoinResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dto.JoinResult{}, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{UserName: userName, NickName: nickName, Password: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.JoinResult{}, ErrDuplicatedName
		}
		return dto.JoinResult{}, err
	}
	s.log.Info("user joined", zap.Int64("user_id", u.ID), zap.String("user", u.UserName))
	return dto.JoinResult{UserID: u.ID, UserName: u.UserName, NickName: u.NickName}, nil
}

// Login 校验密码并签发 JWT
func (s *UserService) Login(ctx context.Context, userName, password string) (string, error) {
	u, err := s.Resolve(ctx, userName)
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}
	return s.tokens.Issue(u.UserName)
}

func (s *UserService) Resolve(ctx context.Context, name string) (*model.User, error) {
	u, err := s.users.FindByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// Authenticate token 合法且用户仍存在
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	name, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.Resolve(ctx, name)
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	return u, err
}

func (s *UserService) Detail(ctx context.Context, name string) (dto.UserDetail, error) {
	u, err := s.Resolve(ctx, name)
	if err != nil {
		return dto.UserDetail{}, err
	}
	following, err := s.follows.CountFollowings(ctx, u.ID)
	if err != nil {
		return dto.UserDetail{}, err
	}
	followers, err := s.fans.CountFans(ctx, u.ID)
	if err != nil {
		return dto.UserDetail{}, err
	}
	return dto.UserDetail{
		UserName:       u.UserName,
		NickName:       u.NickName,
		UserImg:        u.UserImg,
		FollowingCount: int(following),
		FollowerCount:  int(followers),
	}, nil
}

func (s *UserService) Search(ctx context.Context, keyword string, req PageRequest) (*paging.Page[dto.UserInfo], error) {
	req = req.normalize(20)
	users, total, err := s.users.Search(ctx, keyword, req.Offset(), req.Size)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserInfo, len(users))
	for i, u := range users {
		out[i] = userInfo(u)
	}
	return newPage(out, req, total), nil
}

// Infos 按 ids 顺序返回，已删除的用户跳过
func (s *UserService) Infos(ctx context.Context, ids []int64) ([]dto.UserInfo, error) {
	byID, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserInfo, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, userInfo(u))
		}
	}
	return out, nil
}

// InfoPage 把关系链返回的 id 页包装成用户列表页
func (s *UserService) InfoPage(ctx context.Context, ids []int64, req PageRequest, total int64) (*paging.Page[dto.UserInfo], error) {
	infos, err := s.Infos(ctx, ids)
	if err != nil {
		return nil, err
	}
	return newPage(infos, req.normalize(20), total), nil
}

func userInfo(u *model.User) dto.UserInfo {
	return dto.UserInfo{UserID: u.ID, UserName: u.UserName, NickName: u.NickName, UserImg: u.UserImg}
}
