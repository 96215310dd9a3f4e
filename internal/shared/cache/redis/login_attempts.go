package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/cache"
)

// FailedLogins 获取窗口内失败次数
func (s *Store) FailedLogins(ctx context.Context, key string) (int, error) {
	n, err := s.client.Get(ctx, cache.KeyLoginAttempts+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get login attempts: %w", err)
	}
	return n, nil
}

// RecordFailedLogin 自增失败次数
//
// EXPIRE NX 只在 key 首次创建时设置过期时间，窗口不会被后续失败延长。
func (s *Store) RecordFailedLogin(ctx context.Context, key string, window time.Duration) (int, error) {
	k := cache.KeyLoginAttempts + key

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record login attempt: %w", err)
	}
	return int(incr.Val()), nil
}

// ResetFailedLogins 清零
func (s *Store) ResetFailedLogins(ctx context.Context, key string) error {
	return s.client.Del(ctx, cache.KeyLoginAttempts+key).Err()
}
