// Package deployments 嵌入部署相关文件到二进制
//
// 包含：
//   - migrations/*.sql: PostgreSQL 迁移脚本（goose 格式）
package deployments

import (
	"embed"
)

// MigrationsDir Migrations 中迁移脚本所在目录
const MigrationsDir = "migrations"

// Migrations PostgreSQL 增量迁移脚本
//
//go:embed migrations/*.sql
var Migrations embed.FS
