// Package backend 组装开发用后端：gin REST 接口、STOMP 聊天代理与后台 worker。
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/backend/broker"
	"github.com/d60-Lab/feedsync/internal/backend/cache"
	"github.com/d60-Lab/feedsync/internal/backend/handler"
	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	"github.com/d60-Lab/feedsync/internal/backend/service"
	"github.com/d60-Lab/feedsync/internal/live"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

const serviceName = "feedsync-devserver"

type Server struct {
	Engine     *gin.Engine
	Broker     *broker.Broker
	Fanout     *service.FanoutWorker
	Replicator *service.FanReplicator // 仅 replica_workers > 0 时非空
	Followers  *cache.FollowerCache   // 仅传入 redis 时非空

	cfg   config.ServerConfig
	stops []func(context.Context) error
	log   *zap.Logger
}

// New 迁移表结构并装配各层；rdb 可为 nil
func New(cfg config.ServerConfig, db *gorm.DB, rdb *redis.Client) (*Server, error) {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	alarmRepo := repository.NewAlarmRepository(db)
	chatRepo := repository.NewChatRepository(db)

	s := &Server{cfg: cfg, log: logger.Named("backend")}

	var invalidate func(context.Context, int64)
	if rdb != nil {
		s.Followers = cache.NewFollowerCache(rdb, fanRepo, cfg.CacheTTL)
		invalidate = s.Followers.Invalidate
	}
	if cfg.ReplicaWorkers > 0 {
		s.Replicator = service.NewFanReplicator(fanRepo, 0, invalidate)
	}
	s.Fanout = service.NewFanoutWorker(db, fanRepo, cfg.FanoutWorkers, 0, 0, 0)

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	alarms := service.NewAlarmService(alarmRepo, userRepo)
	users := service.NewUserService(userRepo, followRepo, fanRepo, tokens)
	rel := service.NewRelationshipService(followRepo, fanRepo, s.Replicator, s.Followers, alarms)
	posts := service.NewPostService(postRepo, userRepo, service.NewPublisher(db), s.Fanout, cfg.FanoutWorkers <= 0, alarms)
	comments := service.NewCommentService(commentRepo, postRepo, userRepo, alarms)
	chats := service.NewChatService(chatRepo, userRepo)

	h := handler.New(users, rel, posts, comments, alarms, chats)
	s.Broker = broker.New(users, chats)

	engine := gin.New()
	engine.Use(gin.Recovery(), handler.Logger(logger.Named("http")), otelgin.Middleware(serviceName))
	h.Register(engine)
	engine.GET(live.Endpoint, gin.WrapH(s.Broker))
	s.Engine = engine
	return s, nil
}

// Start 启动后台 worker（同步模式下无事可做）
func (s *Server) Start() {
	if s.Replicator != nil {
		s.stops = append(s.stops, s.Replicator.Start(s.cfg.ReplicaWorkers))
	}
	if s.cfg.FanoutWorkers > 0 {
		s.stops = append(s.stops, s.Fanout.Start())
	}
	s.log.Info("background workers started",
		zap.Int("replica_workers", s.cfg.ReplicaWorkers), zap.Int("fanout_workers", s.cfg.FanoutWorkers))
}

func (s *Server) Handler() http.Handler { return s.Engine }

// Shutdown 断开 STOMP 会话并停止 worker
func (s *Server) Shutdown(ctx context.Context) error {
	s.Broker.Close()
	var errs []error
	for _, stop := range s.stops {
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.stops = nil
	return errors.Join(errs...)
}
