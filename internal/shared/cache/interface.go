// Package cache 缓存层抽象接口
//
// 提供临时状态和缓存的存取能力，部署环境由 Redis 实现，
// 未配置 Redis 时使用进程内实现。
package cache

import (
	"context"
	"time"
)

// ============================================================================
// 缓存接口定义
// ============================================================================

// LoginAttemptCache 登录失败计数缓存
//
// 计数按 key（通常是规范化后的邮箱）隔离，窗口从第一次失败开始计时，
// 窗口过期后计数自动清零。
type LoginAttemptCache interface {
	// FailedLogins 返回当前窗口内的失败次数
	FailedLogins(ctx context.Context, key string) (int, error)
	// RecordFailedLogin 记录一次失败，返回累计次数
	RecordFailedLogin(ctx context.Context, key string, window time.Duration) (int, error)
	// ResetFailedLogins 登录成功后清零
	ResetFailedLogins(ctx context.Context, key string) error
}

// ============================================================================
// 组合接口
// ============================================================================

// Cache 缓存组合接口
type Cache interface {
	LoginAttemptCache
	Close() error
}

// KeyLoginAttempts 登录失败计数 key 前缀
const KeyLoginAttempts = "tugas:login_attempts:"
