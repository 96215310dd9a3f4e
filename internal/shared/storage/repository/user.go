package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"
)

const userColumns = `u.id, u.email, u.password_hash, u.role, u.created_at, u.updated_at,
	p.name, p.avatar_url, p.bio, p.updated_at`

// CreateUser 创建用户及其资料（同一事务）
func (s *Store) CreateUser(ctx context.Context, user *model.User, profile *model.Profile) error {
	now := s.now()
	if user.Role == "" {
		user.Role = model.UserRoleUser
	}

	err := s.withTx(ctx, func(tx dbtx) error {
		if err := tx.QueryRowContext(ctx, s.rebind(
			`INSERT INTO users (email, password_hash, role, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`),
			user.Email, user.PasswordHash, user.Role, now, now,
		).Scan(&user.ID); err != nil {
			return err
		}

		profile.UserID = user.ID
		_, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO profiles (user_id, name, avatar_url, bio, updated_at)
			 VALUES ($1, $2, $3, $4, $5)`),
			profile.UserID, profile.Name, nullString(profile.AvatarURL), nullString(profile.Bio), now,
		)
		return err
	})
	if err != nil {
		user.ID = 0
		if s.dialect.IsUniqueViolation(err) {
			return dbutil.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}

	user.CreatedAt, user.UpdatedAt = now, now
	profile.UpdatedAt = now
	user.Profile = profile
	return nil
}

// GetUserByEmail 通过邮箱查找用户（区分大小写，按原样匹配）
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+`
		 FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.email = $1`), email)
	return scanUser(row)
}

// GetUserByID 通过 ID 查找用户
func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+userColumns+`
		 FROM users u LEFT JOIN profiles p ON p.user_id = u.id
		 WHERE u.id = $1`), id)
	return scanUser(row)
}

// UpdateUserPassword 更新用户密码
func (s *Store) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`),
		passwordHash, s.now(), id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res)
}

// GetProfile 获取用户资料
func (s *Store) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	p := &model.Profile{}
	var avatar, bio sql.NullString
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT user_id, name, avatar_url, bio, updated_at FROM profiles WHERE user_id = $1`), userID,
	).Scan(&p.UserID, &p.Name, &avatar, &bio, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.AvatarURL, p.Bio = stringPtr(avatar), stringPtr(bio)
	return p, nil
}

// UpdateProfile 更新用户资料（name、bio、avatarUrl 整体覆盖）
func (s *Store) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE profiles SET name = $1, avatar_url = $2, bio = $3, updated_at = $4 WHERE user_id = $5`),
		profile.Name, nullString(profile.AvatarURL), nullString(profile.Bio), now, profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	profile.UpdatedAt = now
	return nil
}

// UpdateAvatarURL 只更新头像地址
func (s *Store) UpdateAvatarURL(ctx context.Context, userID int64, avatarURL string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE profiles SET avatar_url = $1, updated_at = $2 WHERE user_id = $3`),
		avatarURL, s.now(), userID,
	)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return expectAffected(res)
}

func scanUser(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	var (
		name, avatar, bio sql.NullString
		profileUpdated    sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		&name, &avatar, &bio, &profileUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if name.Valid {
		u.Profile = &model.Profile{
			UserID:    u.ID,
			Name:      name.String,
			AvatarURL: stringPtr(avatar),
			Bio:       stringPtr(bio),
			UpdatedAt: profileUpdated.Time,
		}
	}
	return u, nil
}
