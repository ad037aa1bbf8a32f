// Command feedbench measures publish latency and fanout landing time for one
// author with many fans against the configured database.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/config"
	"github.com/d60-Lab/feedsync/internal/backend/model"
	"github.com/d60-Lab/feedsync/internal/backend/repository"
	"github.com/d60-Lab/feedsync/internal/backend/service"
	dto "github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/pkg/database"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db := must(database.InitDB(cfg))
	if err := db.AutoMigrate(model.All()...); err != nil {
		panic(err)
	}

	var (
		fans    = envInt("N", 20000)
		posts   = envInt("POSTS", 100)
		workers = envInt("WORKERS", 8)
		batch   = envInt("BATCH", 1000)
		claim   = envInt("CLAIM", 64)
	)
	ctx := context.Background()
	stamp := time.Now().UnixNano()

	author := model.User{UserName: fmt.Sprintf("author-%d", stamp), Password: "p"}
	if err := db.Create(&author).Error; err != nil {
		panic(err)
	}
	users := make([]model.User, fans)
	for i := range users {
		users[i] = model.User{UserName: fmt.Sprintf("fan-%d-%d", stamp, i), Password: "p"}
	}
	if err := db.CreateInBatches(&users, 1000).Error; err != nil {
		panic(err)
	}

	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	for _, u := range users {
		_ = followRepo.Create(ctx, u.ID, author.ID)
		_ = fanRepo.Create(ctx, author.ID, u.ID)
	}
	logger.Info("seeded", zap.Int("fans", fans), zap.Int64("author", author.ID))

	worker := service.NewFanoutWorker(db, fanRepo, workers, batch, claim, 20*time.Millisecond)
	stop := worker.Start()
	defer func() { _ = stop(context.Background()) }()

	publisher := service.NewPublisher(db)
	pub := make([]time.Duration, 0, posts)
	for i := 0; i < posts; i++ {
		st := time.Now()
		if _, err := publisher.Publish(ctx, author.ID, dto.PostCreateRequest{Body: fmt.Sprintf("hello %d", i)}); err != nil {
			panic(err)
		}
		pub = append(pub, time.Since(st))
	}

	land := make([]time.Duration, 0, posts)
	timeout := time.After(2 * time.Minute)
collect:
	for len(land) < posts {
		select {
		case d := <-worker.Metrics():
			land = append(land, d)
		case <-timeout:
			fmt.Printf("timeout while waiting for fanout metrics: got=%d want=%d\n", len(land), posts)
			break collect
		}
	}

	fmt.Printf("N=%d POSTS=%d WORKERS=%d BATCH=%d CLAIM=%d\n", fans, posts, workers, batch, claim)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n", avg(pub), pct(pub, 0.95), pct(pub, 0.99))
	fmt.Printf("Fanout landing (outbox->done): samples=%d avg=%v p95=%v p99=%v\n", len(land), avg(land), pct(land, 0.95), pct(land, 0.99))

	if len(users) > 0 {
		postRepo := repository.NewPostRepository(db)
		st := time.Now()
		rows, total, err := postRepo.Timeline(ctx, users[0].ID, 0, 50)
		if err != nil {
			panic(err)
		}
		fmt.Printf("Timeline read (fan0, limit=50): %v, rows=%d total=%d\n", time.Since(st), len(rows), total)
	}
}
