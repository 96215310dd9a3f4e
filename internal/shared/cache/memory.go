package cache

import (
	"context"
	"sync"
	"time"
)

// ============================================================================
// MemoryCache - 进程内 Cache 实现（单实例部署、开发和测试）
// ============================================================================

// sweepMinEntries 条目数达到该值后才开始整表清理过期条目
const sweepMinEntries = 1024

type attemptEntry struct {
	count     int
	expiresAt time.Time
}

// MemoryCache 基于 map 的 Cache 实现，过期条目在访问时惰性清理，
// 写入时按表大小分摊整表清理，只访问一次的 key 不会一直留在表中
type MemoryCache struct {
	mu        sync.Mutex
	attempts  map[string]attemptEntry
	nextSweep int
	now       func() time.Time
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache 创建 MemoryCache 实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		attempts:  make(map[string]attemptEntry),
		nextSweep: sweepMinEntries,
		now:       time.Now,
	}
}

// Close 关闭缓存
func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) FailedLogins(ctx context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live(key).count, nil
}

func (c *MemoryCache) RecordFailedLogin(ctx context.Context, key string, window time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.live(key)
	if e.count == 0 {
		e.expiresAt = c.now().Add(window)
	}
	e.count++
	c.attempts[key] = e
	if len(c.attempts) >= c.nextSweep {
		c.sweep()
	}
	return e.count, nil
}

func (c *MemoryCache) ResetFailedLogins(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, key)
	return nil
}

// sweep 删除全部过期条目，下次清理阈值为剩余条目数的两倍，调用方需持有锁
func (c *MemoryCache) sweep() {
	now := c.now()
	for k, e := range c.attempts {
		if !now.Before(e.expiresAt) {
			delete(c.attempts, k)
		}
	}
	c.nextSweep = max(sweepMinEntries, 2*len(c.attempts))
}

// live 返回未过期的条目，调用方需持有锁
func (c *MemoryCache) live(key string) attemptEntry {
	e, ok := c.attempts[key]
	if !ok {
		return attemptEntry{}
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.attempts, key)
		return attemptEntry{}
	}
	return e
}
