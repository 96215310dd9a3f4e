// Package storage 定义存储层领域错误与接口
//
// 这些错误用于隔离业务层与底层存储引擎的错误类型，
// repository 负责将 sql.ErrNoRows、唯一约束冲突等转换为这些领域错误。
package storage

import "github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"

var (
	// ErrNotFound 实体不存在
	// 替代 sql.ErrNoRows；更新/删除未命中当前用户的记录时同样返回
	ErrNotFound = dbutil.ErrNotFound

	// ErrDuplicate 唯一键冲突（如重复邮箱）
	ErrDuplicate = dbutil.ErrDuplicate
)
