package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// FanoutWorker 从 outbox 拉取发帖事件并写入粉丝的 inbox
type FanoutWorker struct {
	db           *gorm.DB
	fanRepo      repository.FanRepository
	batchSize    int
	claimLimit   int
	pollInterval time.Duration
	workers      int
	metricsCh    chan time.Duration // outbox->processed latency
	log          *zap.Logger
}

func NewFanoutWorker(db *gorm.DB, fanRepo repository.FanRepository, workers, batchSize, claimLimit int, pollInterval time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 4
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	if claimLimit <= 0 {
		claimLimit = 128
	}
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &FanoutWorker{
		db:           db,
		fanRepo:      fanRepo,
		workers:      workers,
		batchSize:    batchSize,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		metricsCh:    make(chan time.Duration, 1024),
		log:          logger.Named("fanout"),
	}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动若干 worker 轮询处理 outbox；返回停止函数。
func (w *FanoutWorker) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(stop)
		}()
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *FanoutWorker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(context.Background()); err != nil {
				w.log.Warn("fanout round failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce claim 一批 pending outbox 并扇出，返回处理的事件数
func (w *FanoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	var batch []model.Outbox
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", model.OutboxPending).Order("created_at").Limit(w.claimLimit)
		// postgres 下多 worker 靠 SKIP LOCKED 互斥；sqlite 单连接天然串行
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).Update("status", model.OutboxProcessing).Error
	})
	if err != nil || len(batch) == 0 {
		return 0, err
	}

	for _, b := range batch {
		written, err := w.deliver(ctx, b)
		if err != nil {
			// 退回 pending，下一轮重试
			w.log.Warn("fanout failed", zap.Int64("post", b.PostID), zap.Error(err))
			_ = w.db.WithContext(ctx).Model(&model.Outbox{}).Where("id = ?", b.ID).
				Update("status", model.OutboxPending).Error
			continue
		}
		now := time.Now()
		if err := w.db.WithContext(ctx).Model(&model.Outbox{}).
			Where("id = ?", b.ID).
			Updates(map[string]any{"status": model.OutboxDone, "processed_at": now, "fanout_count": written}).Error; err != nil {
			w.log.Warn("mark outbox done failed", zap.String("outbox", b.ID), zap.Error(err))
		}
		if !b.CreatedAt.IsZero() {
			select {
			case w.metricsCh <- time.Since(b.CreatedAt):
			default:
			}
		}
	}
	return len(batch), nil
}

// deliver 分页读取粉丝并批量写 inbox；自增 post id 即发布顺序，用作分数
func (w *FanoutWorker) deliver(ctx context.Context, b model.Outbox) (int64, error) {
	var written int64
	for offset := 0; ; offset += w.batchSize {
		fans, err := w.fanRepo.ListFans(ctx, b.AuthorID, offset, w.batchSize)
		if err != nil {
			return written, err
		}
		if len(fans) == 0 {
			return written, nil
		}
		now := time.Now()
		records := make([]model.Inbox, 0, len(fans))
		for _, f := range fans {
			records = append(records, model.Inbox{
				ID:        uuid.New().String(),
				UserID:    f.FanID,
				PostID:    b.PostID,
				Score:     b.PostID,
				CreatedAt: now,
			})
		}
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error; err != nil {
			return written, err
		}
		written += int64(len(records))
		if len(fans) < w.batchSize {
			return written, nil
		}
	}
}
