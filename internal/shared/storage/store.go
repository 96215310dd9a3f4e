package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"
	pgdriver "github.com/Danin2/Manajemen-Tugas/internal/shared/storage/driver/postgres"
	sqlitedriver "github.com/Danin2/Manajemen-Tugas/internal/shared/storage/driver/sqlite"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/repository"
)

var _ PersistentStore = (*repository.Store)(nil)

// Open 根据驱动类型和 DSN 打开数据库、执行迁移并返回存储
//
// 支持的驱动：
//   - postgres: DSN 为 postgres:// URL，迁移由 goose 执行
//   - sqlite:   DSN 为文件路径或 ":memory:"，迁移为内置建表脚本
func Open(ctx context.Context, driver dbutil.DriverType, dsn string) (*repository.Store, error) {
	var (
		db      *sql.DB
		dialect dbutil.Dialect
		err     error
	)

	switch driver {
	case dbutil.DriverPostgres:
		db, err = pgdriver.Open(ctx, dsn)
		dialect = pgdriver.NewDialect()
	case dbutil.DriverSQLite:
		db, err = sqlitedriver.Open(dsn)
		dialect = sqlitedriver.NewDialect()
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := dialect.AutoMigrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s auto-migrate failed: %w", driver, err)
	}
	return repository.NewStore(db, dialect), nil
}
