package dbutil

import "errors"

var (
	// ErrNotFound 实体不存在（或不属于当前用户）
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate 唯一键冲突
	ErrDuplicate = errors.New("duplicate: entity already exists")
)
