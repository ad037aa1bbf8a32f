package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/repository"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

type replicateAction int

const (
	actionAdd replicateAction = iota + 1
	actionRemove
)

type replicateJob struct {
	action replicateAction
	userID int64
	fanID  int64
	enqAt  time.Time
}

// FanReplicator 异步把关注关系冗余到粉丝表；落地后回调 onApplied（如缓存失效）
type FanReplicator struct {
	fanRepo   repository.FanRepository
	onApplied func(ctx context.Context, userID int64)
	ch        chan replicateJob
	metricsCh chan time.Duration
	log       *zap.Logger
}

func NewFanReplicator(fanRepo repository.FanRepository, queueSize int, onApplied func(context.Context, int64)) *FanReplicator {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &FanReplicator{
		fanRepo:   fanRepo,
		onApplied: onApplied,
		ch:        make(chan replicateJob, queueSize),
		metricsCh: make(chan time.Duration, 1024),
		log:       logger.Named("fan_replicator"),
	}
}

// Start 启动 workers 个消费者；返回的停止函数先排空队列（受 ctx 约束）再退出
func (r *FanReplicator) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job := <-r.ch:
					r.apply(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for len(r.ch) > 0 {
			select {
			case <-ctx.Done():
				close(stopCh)
				wg.Wait()
				return ctx.Err()
			case <-ticker.C:
			}
		}
		close(stopCh)
		wg.Wait()
		return nil
	}
}

func (r *FanReplicator) apply(job replicateJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var err error
	switch job.action {
	case actionAdd:
		err = r.fanRepo.Create(ctx, job.userID, job.fanID)
	case actionRemove:
		err = r.fanRepo.Delete(ctx, job.userID, job.fanID)
	}
	if err != nil {
		r.log.Error("replicate fan failed",
			zap.Int64("user", job.userID), zap.Int64("fan", job.fanID), zap.Error(err))
		return
	}
	if r.onApplied != nil {
		r.onApplied(ctx, job.userID)
	}
	if !job.enqAt.IsZero() {
		select {
		case r.metricsCh <- time.Since(job.enqAt):
		default:
		}
	}
}

func (r *FanReplicator) EnqueueAdd(userID, fanID int64) {
	r.enqueue(replicateJob{action: actionAdd, userID: userID, fanID: fanID, enqAt: time.Now()})
}

func (r *FanReplicator) EnqueueRemove(userID, fanID int64) {
	r.enqueue(replicateJob{action: actionRemove, userID: userID, fanID: fanID, enqAt: time.Now()})
}

func (r *FanReplicator) enqueue(job replicateJob) {
	select {
	case r.ch <- job:
	default:
		r.log.Warn("replicator queue full, drop job",
			zap.Int("action", int(job.action)), zap.Int64("user", job.userID), zap.Int64("fan", job.fanID))
	}
}

// Metrics 返回复制落地耗时的只读通道（每处理一条发送一次 duration）。
func (r *FanReplicator) Metrics() <-chan time.Duration { return r.metricsCh }

// QueueLen 返回当前队列长度（采样值）。
func (r *FanReplicator) QueueLen() int { return len(r.ch) }
