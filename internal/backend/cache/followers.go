// Package cache 粉丝列表的 Redis 索引缓存：整表 fan_id 存为 List，分页走 LRANGE，
// 关系变化时整体失效。
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/backend/repository"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

// FollowerCache 缓存未命中时从 fans 表加载全量 id 并回填
type FollowerCache struct {
	rdb  *redis.Client
	fans repository.FanRepository
	ttl  time.Duration
	log  *zap.Logger

	indexLoads atomic.Int64
}

func NewFollowerCache(rdb *redis.Client, fans repository.FanRepository, ttl time.Duration) *FollowerCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &FollowerCache{rdb: rdb, fans: fans, ttl: ttl, log: logger.Named("follower_cache")}
}

func indexKey(userID int64) string { return fmt.Sprintf("followers:index:%d", userID) }

// Page 返回 [offset, offset+limit) 的粉丝 id 与总数
func (c *FollowerCache) Page(ctx context.Context, userID int64, offset, limit int) ([]int64, int64, error) {
	key := indexKey(userID)
	total, err := c.rdb.LLen(ctx, key).Result()
	if err == nil && total > 0 {
		raw, err := c.rdb.LRange(ctx, key, int64(offset), int64(offset+limit-1)).Result()
		if err == nil {
			return parseIDs(raw), total, nil
		}
	}
	if err != nil {
		c.log.Warn("follower index read failed, falling back to db", zap.Int64("user", userID), zap.Error(err))
	}

	all, err := c.load(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if offset >= len(all) {
		return []int64{}, int64(len(all)), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], int64(len(all)), nil
}

func (c *FollowerCache) load(ctx context.Context, userID int64) ([]int64, error) {
	c.indexLoads.Add(1)
	ids, err := c.fans.ListFanIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	// 空列表不缓存，List 无法表达“存在但为空”
	if len(ids) > 0 {
		key := indexKey(userID)
		vals := make([]any, len(ids))
		for i, id := range ids {
			vals[i] = id
		}
		pipe := c.rdb.TxPipeline()
		pipe.Del(ctx, key)
		pipe.RPush(ctx, key, vals...)
		pipe.Expire(ctx, key, c.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			c.log.Warn("follower index write failed", zap.Int64("user", userID), zap.Error(err))
		}
	}
	return ids, nil
}

// Invalidate 关注/取关落地后调用
func (c *FollowerCache) Invalidate(ctx context.Context, userID int64) {
	if err := c.rdb.Del(ctx, indexKey(userID)).Err(); err != nil {
		c.log.Warn("follower index invalidate failed", zap.Int64("user", userID), zap.Error(err))
	}
}

// IndexLoads 回源次数
func (c *FollowerCache) IndexLoads() int64 { return c.indexLoads.Load() }

func parseIDs(raw []string) []int64 {
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}
