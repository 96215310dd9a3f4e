// Package auth 用户认证：密码哈希、会话令牌、Cookie、访问闸门与认证接口
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// bcryptCost 哈希轮数
	bcryptCost = 10

	// MinPasswordLength 注册与改密时的最小密码长度
	MinPasswordLength = 6

	// MaxPasswordBytes bcrypt 只处理前 72 字节
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong 密码超过 bcrypt 上限
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// ============================================================================
// 密码哈希
// ============================================================================

// HashPassword 使用 bcrypt 哈希密码（盐内嵌在结果中），空串合法
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword 验证密码，格式错误的哈希返回 false
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
