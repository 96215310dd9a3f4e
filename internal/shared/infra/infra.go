// Package infra 基础设施聚合层
//
// 提供统一的基础设施初始化和依赖注入，包括：
//   - Storage：持久化存储（PostgreSQL 或 SQLite）
//   - Cache：登录失败计数（Redis，未配置时为进程内实现）
//   - Avatars：头像对象存储（MinIO，可选）
package infra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Danin2/Manajemen-Tugas/internal/config"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/cache"
	cacheredis "github.com/Danin2/Manajemen-Tugas/internal/shared/cache/redis"
	objstore "github.com/Danin2/Manajemen-Tugas/internal/shared/minio"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// Infrastructure 基础设施聚合结构
type Infrastructure struct {
	// Storage 持久化存储
	Storage storage.PersistentStore

	// Cache 登录失败计数缓存
	Cache cache.Cache

	// Avatars 头像存储，未配置 MinIO 时为 nil
	Avatars objstore.AvatarStore
}

// New 按配置初始化全部基础设施，任一必需组件失败时关闭已打开的连接
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Infrastructure, error) {
	driver, err := dbutil.ParseDriverType(cfg.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	if driver == dbutil.DriverSQLite {
		if err := ensureSQLiteDir(cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	store, err := storage.Open(ctx, driver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	infra := &Infrastructure{Storage: store}
	logger.Info("Storage ready", "driver", string(driver))

	if cfg.RedisURL != "" {
		rc, err := cacheredis.NewStoreFromURL(ctx, cfg.RedisURL, logger.Named("redis"))
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.Cache = rc
		logger.Info("Login throttle backed by Redis")
	} else {
		infra.Cache = cache.NewMemoryCache()
		logger.Info("Redis not configured, login throttle uses in-process counters")
	}

	if cfg.MinIO.Enabled() {
		mc, err := objstore.NewClient(cfg.MinIO, logger.Named("minio"))
		if err != nil {
			infra.Close()
			return nil, err
		}
		if err := mc.EnsureBucket(ctx); err != nil {
			infra.Close()
			return nil, fmt.Errorf("minio: %w", err)
		}
		infra.Avatars = mc
		logger.Info("Avatar storage ready", "bucket", mc.Bucket())
	}

	return infra, nil
}

// Close 关闭所有基础设施连接
func (i *Infrastructure) Close() error {
	var errs []error
	if i.Storage != nil {
		errs = append(errs, i.Storage.Close())
	}
	if i.Cache != nil {
		errs = append(errs, i.Cache.Close())
	}
	return errors.Join(errs...)
}

// ensureSQLiteDir 为 file: DSN 创建所在目录
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir %s: %w", dir, err)
	}
	return nil
}
