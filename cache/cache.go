// Package cache 提供按 feed 类型分桶的短周期卡片批次缓存。
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rushteam/feedkit/core"
)

const (
	// DefaultTTL 批次有效期。过期与访问模式无关（被动过期，不是滑动窗口）。
	DefaultTTL = 24 * time.Hour

	// DefaultMaxCards 单批次的卡片数上限，写入时截断
	DefaultMaxCards = 100

	// DefaultSweepInterval 两次后台清扫之间的最小间隔
	DefaultSweepInterval = 30 * time.Minute

	// DefaultKey 未指定 feed 类型时的缓存键
	DefaultKey = "default"
)

// CachedBatch 是一个已装配的卡片批次。
// 不变量：now - Timestamp >= TTL 的批次绝不能被返回，
// 懒失效（Get 时判断）或周期清扫都可以，但读到即过期的必须当作 miss。
type CachedBatch struct {
	Cards     []*core.Card `json:"cards"`
	Timestamp time.Time    `json:"timestamp"`
	UserID    string       `json:"user_id,omitempty"`
}

// FeedCache 是内存 + 可选持久层的批次缓存。
// 每个 feedType 键下至多一个活批次；缓存只持有 Card 的副本，
// 失效操作从不触碰内容仓库的权威记录。
type FeedCache struct {
	mu      sync.RWMutex
	batches map[string]*CachedBatch

	// TTL 批次有效期（<=0 用 DefaultTTL）
	TTL time.Duration

	// MaxCards 批次容量上限（<=0 用 DefaultMaxCards）
	MaxCards int

	// Store 可选的持久层（进程重启后仍可命中）
	Store core.Store

	// KeyPrefix 持久层键前缀，默认 "feedcache"
	KeyPrefix string

	// SweepInterval 周期清扫的最小间隔（<=0 用 DefaultSweepInterval）
	SweepInterval time.Duration

	Logger *zap.Logger

	lastSweep time.Time
	done      chan struct{}
	stopOnce  sync.Once

	// now 可注入，便于测试过期行为
	now func() time.Time
}

func NewFeedCache() *FeedCache {
	return &FeedCache{
		batches: make(map[string]*CachedBatch),
		done:    make(chan struct{}),
		now:     time.Now,
	}
}

func (c *FeedCache) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *FeedCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultTTL
}

func (c *FeedCache) maxCards() int {
	if c.MaxCards > 0 {
		return c.MaxCards
	}
	return DefaultMaxCards
}

func (c *FeedCache) key(feedType string) string {
	if feedType == "" {
		return DefaultKey
	}
	return feedType
}

func (c *FeedCache) storeKey(feedType string) string {
	prefix := c.KeyPrefix
	if prefix == "" {
		prefix = "feedcache"
	}
	return prefix + ":" + c.key(feedType)
}

// valid 判断批次对指定用户是否可用。
// 过期或跨用户都必须当作 miss —— 跨用户命中是正确性 bug，不是优化空间。
func (c *FeedCache) valid(b *CachedBatch, userID string) bool {
	if b == nil {
		return false
	}
	if c.now().Sub(b.Timestamp) >= c.ttl() {
		return false
	}
	if b.UserID != "" && userID != b.UserID {
		return false
	}
	if b.UserID == "" && userID != "" {
		return false
	}
	return true
}

// Get 返回缓存的批次，miss（不存在/过期/用户不匹配）时返回 nil。
func (c *FeedCache) Get(ctx context.Context, userID, feedType string) []*core.Card {
	key := c.key(feedType)

	c.mu.RLock()
	b := c.batches[key]
	c.mu.RUnlock()

	if c.valid(b, userID) {
		return b.Cards
	}

	// 内存 miss：尝试持久层（进程重启后的恢复路径）
	if c.Store == nil {
		return nil
	}
	raw, err := c.Store.Get(ctx, c.storeKey(feedType))
	if err != nil {
		return nil
	}
	var persisted CachedBatch
	if json.Unmarshal(raw, &persisted) != nil {
		return nil
	}
	if !c.valid(&persisted, userID) {
		return nil
	}

	c.mu.Lock()
	c.batches[key] = &persisted
	c.mu.Unlock()
	return persisted.Cards
}

// Put 写入一个新批次，容量超限时截断（后加的先丢）。
// 持久层写入失败只记日志不返回错误 —— 新算出的结果仍然有效。
func (c *FeedCache) Put(ctx context.Context, cards []*core.Card, userID, feedType string) {
	if len(cards) > c.maxCards() {
		cards = cards[:c.maxCards()]
	}

	b := &CachedBatch{
		Cards:     cards,
		Timestamp: c.now(),
		UserID:    userID,
	}

	c.mu.Lock()
	c.batches[c.key(feedType)] = b
	c.mu.Unlock()

	if c.Store == nil {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		c.logger().Warn("cache batch marshal failed", zap.Error(err))
		return
	}
	ttlSeconds := int(c.ttl() / time.Second)
	if err := c.Store.Set(ctx, c.storeKey(feedType), raw, ttlSeconds); err != nil {
		c.logger().Warn("cache persist failed",
			zap.String("feed_type", c.key(feedType)), zap.Error(err))
	}
}

// InvalidateExpired 清除所有过期批次。
// 与并发读安全：读侧的 valid 判断保证"过期但尚未清扫"的条目也返回 miss。
func (c *FeedCache) InvalidateExpired(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, b := range c.batches {
		if now.Sub(b.Timestamp) >= c.ttl() {
			delete(c.batches, key)
		}
	}
	c.lastSweep = now
}

// InvalidateAll 清空缓存（含持久层）。
func (c *FeedCache) InvalidateAll(ctx context.Context) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.batches))
	for key := range c.batches {
		keys = append(keys, key)
	}
	c.batches = make(map[string]*CachedBatch)
	c.mu.Unlock()

	if c.Store == nil {
		return
	}
	for _, key := range keys {
		if err := c.Store.Delete(ctx, c.storeKey(key)); err != nil {
			c.logger().Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// StartSweeper 启动后台清扫循环，独立于请求处理。
// 间隔低于 SweepInterval 的触发会被跳过。
func (c *FeedCache) StartSweeper(ctx context.Context) {
	interval := c.SweepInterval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case <-ticker.C:
				c.mu.RLock()
				last := c.lastSweep
				c.mu.RUnlock()
				if c.now().Sub(last) < interval {
					continue
				}
				c.InvalidateExpired(ctx)
			}
		}
	}()
}

// Close 停止后台清扫。
func (c *FeedCache) Close() {
	c.stopOnce.Do(func() { close(c.done) })
}
