package storage

import (
	"context"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
)

// ============================================================================
// 持久化存储接口
// ============================================================================
//
// 约定：
//   - Get 系列方法在记录不存在时返回 (nil, nil)
//   - Update/Delete 系列方法在未命中（包括记录属于其他用户）时返回 ErrNotFound
//   - 所有任务/课程表操作都以 userID 为作用域

// UserStore 用户与资料存储
type UserStore interface {
	// CreateUser 在同一事务内创建用户和资料，回填 user.ID；邮箱重复返回 ErrDuplicate
	CreateUser(ctx context.Context, user *model.User, profile *model.Profile) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error

	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	UpdateAvatarURL(ctx context.Context, userID int64, avatarURL string) error
}

// TaskStore 任务存储
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, userID, id int64) (*model.Task, error)
	ListTasks(ctx context.Context, userID int64) ([]*model.Task, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, userID, id int64) error
	GetTaskStats(ctx context.Context, userID int64) (model.TaskStats, error)
}

// ScheduleStore 课程表存储
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, schedule *model.Schedule) error
	GetSchedule(ctx context.Context, userID, id int64) (*model.Schedule, error)
	ListSchedules(ctx context.Context, userID int64) ([]*model.Schedule, error)
	UpdateSchedule(ctx context.Context, schedule *model.Schedule) error
	DeleteSchedule(ctx context.Context, userID, id int64) error
}

// PersistentStore 持久化存储组合接口
type PersistentStore interface {
	UserStore
	TaskStore
	ScheduleStore

	Ping(ctx context.Context) error
	Close() error
}
