package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// Valid 判断角色是否合法
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// User 用户账号
//
// 账号在注册时创建，之后只有 PasswordHash 会被修改。
// Profile 在按 ID 查询时一并加载，按邮箱查询登录时同样加载（登录需要 name）。
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never expose in JSON
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`

	Profile *Profile `json:"profile,omitempty" db:"-"`
}

// DisplayName 返回资料中的名字，缺失时返回 fallback
func (u *User) DisplayName(fallback string) string {
	if u.Profile != nil && u.Profile.Name != "" {
		return u.Profile.Name
	}
	return fallback
}

// Profile 用户资料（与 User 一对一）
type Profile struct {
	UserID    int64     `json:"userId" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	AvatarURL *string   `json:"avatarUrl" db:"avatar_url"`
	Bio       *string   `json:"bio" db:"bio"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
