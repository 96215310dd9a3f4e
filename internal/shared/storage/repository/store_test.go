// Package repository SQLite 集成测试
//
// 使用 SQLite 内存数据库验证 repository 层所有存储接口的正确性。
// 无需外部数据库依赖，可在任何环境下运行。
package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"
	sqlitedriver "github.com/Danin2/Manajemen-Tugas/internal/shared/storage/driver/sqlite"
)

// newTestStore 创建用于测试的 SQLite 内存数据库 Store
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlitedriver.Open(":memory:")
	require.NoError(t, err)
	dialect := sqlitedriver.NewDialect()
	require.NoError(t, dialect.AutoMigrate(context.Background(), db))
	store := NewStore(db, dialect)
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, s *Store, email, name string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "$2a$10$hash"}
	require.NoError(t, s.CreateUser(context.Background(), u, &model.Profile{Name: name}))
	return u
}

func strPtr(s string) *string { return &s }

// ============================================================================
// Dialect 基础测试
// ============================================================================

func TestDialectTypes(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, dbutil.DriverSQLite, d.DriverType())
}

func TestRebind(t *testing.T) {
	d := sqlitedriver.NewDialect()
	assert.Equal(t, "SELECT * FROM t WHERE id = ? AND name = ?",
		d.Rebind("SELECT * FROM t WHERE id = $1 AND name = $2"))
	// 应去除 PG 类型转换
	assert.Equal(t, "UPDATE t SET status = ? WHERE id = ?",
		d.Rebind("UPDATE t SET status = $1::varchar WHERE id = $2"))
}

// ============================================================================
// User / Profile 测试
// ============================================================================

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Email: "siti@example.com", PasswordHash: "hash-1"}
	p := &model.Profile{Name: "Siti", AvatarURL: strPtr("https://example.com/a.svg")}
	require.NoError(t, s.CreateUser(ctx, u, p))
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.UserRoleUser, u.Role)
	assert.Equal(t, u.ID, p.UserID)

	// GetByEmail（包含资料）
	got, err := s.GetUserByEmail(ctx, "siti@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash-1", got.PasswordHash)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Siti", got.Profile.Name)
	require.NotNil(t, got.Profile.AvatarURL)
	assert.Equal(t, "https://example.com/a.svg", *got.Profile.AvatarURL)
	assert.Nil(t, got.Profile.Bio)

	// 邮箱区分大小写
	got, err = s.GetUserByEmail(ctx, "SITI@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	// GetByID
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "siti@example.com", got.Email)

	// Not found
	got, err = s.GetUserByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, got)

	// 修改密码
	require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "hash-2"))
	got, _ = s.GetUserByID(ctx, u.ID)
	assert.Equal(t, "hash-2", got.PasswordHash)
	assert.ErrorIs(t, s.UpdateUserPassword(ctx, 9999, "x"), dbutil.ErrNotFound)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createUser(t, s, "dup@example.com", "A")

	u := &model.User{Email: "dup@example.com", PasswordHash: "h"}
	err := s.CreateUser(ctx, u, &model.Profile{Name: "B"})
	assert.ErrorIs(t, err, dbutil.ErrDuplicate)
	assert.Zero(t, u.ID)

	// 事务回滚：没有多出的资料
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM profiles`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestProfileUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "budi@example.com", "Budi")

	p := &model.Profile{UserID: u.ID, Name: "Budi S", Bio: strPtr("Kelas XI RPL")}
	require.NoError(t, s.UpdateProfile(ctx, p))

	got, err := s.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Budi S", got.Name)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "Kelas XI RPL", *got.Bio)
	assert.Nil(t, got.AvatarURL)

	require.NoError(t, s.UpdateAvatarURL(ctx, u.ID, "/api/profile/avatar/1"))
	got, _ = s.GetProfile(ctx, u.ID)
	require.NotNil(t, got.AvatarURL)
	assert.Equal(t, "/api/profile/avatar/1", *got.AvatarURL)

	assert.ErrorIs(t, s.UpdateProfile(ctx, &model.Profile{UserID: 9999, Name: "x"}), dbutil.ErrNotFound)

	got, err = s.GetProfile(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "gone@example.com", "Gone")
	require.NoError(t, s.CreateTask(ctx, &model.Task{UserID: u.ID, Title: "t", Subject: "Kimia"}))

	_, err := s.DB().Exec(`DELETE FROM users WHERE id = ?`, u.ID)
	require.NoError(t, err)

	tasks, err := s.ListTasks(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
	p, err := s.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

// ============================================================================
// Task 测试
// ============================================================================

func TestTaskCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com", "A")
	other := createUser(t, s, "b@example.com", "B")

	deadline := time.Date(2026, 11, 1, 8, 0, 0, 0, time.UTC)
	task := &model.Task{UserID: owner.ID, Title: "Laporan PKL", Subject: "PKL", Deadline: &deadline}

	// Create
	require.NoError(t, s.CreateTask(ctx, task))
	assert.NotZero(t, task.ID)
	assert.Equal(t, model.TaskPriorityMedium, task.Priority)

	// Get
	got, err := s.GetTask(ctx, owner.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Laporan PKL", got.Title)
	require.NotNil(t, got.Deadline)
	assert.True(t, deadline.Equal(*got.Deadline))
	assert.False(t, got.Completed)

	// 其他用户看不到
	got, err = s.GetTask(ctx, other.ID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Update
	task.Completed = true
	task.Priority = model.TaskPriorityHigh
	task.Deadline = nil
	require.NoError(t, s.UpdateTask(ctx, task))
	got, _ = s.GetTask(ctx, owner.ID, task.ID)
	assert.True(t, got.Completed)
	assert.Equal(t, model.TaskPriorityHigh, got.Priority)
	assert.Nil(t, got.Deadline)

	// 其他用户无法更新/删除
	foreign := *task
	foreign.UserID = other.ID
	assert.ErrorIs(t, s.UpdateTask(ctx, &foreign), dbutil.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTask(ctx, other.ID, task.ID), dbutil.ErrNotFound)

	// Delete
	require.NoError(t, s.DeleteTask(ctx, owner.ID, task.ID))
	got, _ = s.GetTask(ctx, owner.ID, task.ID)
	assert.Nil(t, got)
	assert.ErrorIs(t, s.DeleteTask(ctx, owner.ID, task.ID), dbutil.ErrNotFound)
}

func TestListTasksAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com", "A")
	other := createUser(t, s, "b@example.com", "B")

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.clock = func() time.Time { return at }
		require.NoError(t, s.CreateTask(ctx, &model.Task{UserID: owner.ID, Title: title, Subject: "Fisika", Completed: i == 0}))
	}
	require.NoError(t, s.CreateTask(ctx, &model.Task{UserID: other.ID, Title: "foreign", Subject: "Fisika"}))

	tasks, err := s.ListTasks(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "third", tasks[0].Title)
	assert.Equal(t, "first", tasks[2].Title)

	stats, err := s.GetTaskStats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStats{Total: 3, Completed: 1, Pending: 2, CompletionRate: 33}, stats)

	stats, err = s.GetTaskStats(ctx, 9999)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStats{}, stats)

	empty, err := s.ListTasks(ctx, 9999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

// ============================================================================
// Schedule 测试
// ============================================================================

func TestScheduleCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "a@example.com", "A")
	other := createUser(t, s, "b@example.com", "B")

	entries := []*model.Schedule{
		{UserID: owner.ID, Day: model.WeekdayWednesday, Subject: "Kimia", StartTime: "07:00", EndTime: "08:30"},
		{UserID: owner.ID, Day: model.WeekdayMonday, Subject: "Fisika", StartTime: "10:00", EndTime: "11:00", Room: strPtr("Lab 2")},
		{UserID: owner.ID, Day: model.WeekdayMonday, Subject: "Matematika", StartTime: "07:00", EndTime: "08:30"},
	}
	for _, e := range entries {
		require.NoError(t, s.CreateSchedule(ctx, e))
		assert.NotZero(t, e.ID)
	}

	list, err := s.ListSchedules(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Matematika", list[0].Subject)
	assert.Equal(t, "Fisika", list[1].Subject)
	require.NotNil(t, list[1].Room)
	assert.Equal(t, "Lab 2", *list[1].Room)
	assert.Equal(t, "Kimia", list[2].Subject)

	// Update（移到周五）
	sc := entries[0]
	sc.Day = model.WeekdayFriday
	sc.Room = strPtr("R.12")
	require.NoError(t, s.UpdateSchedule(ctx, sc))
	got, err := s.GetSchedule(ctx, owner.ID, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WeekdayFriday, got.Day)
	assert.Equal(t, "R.12", *got.Room)

	// 作用域
	got, err = s.GetSchedule(ctx, other.ID, sc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, s.DeleteSchedule(ctx, other.ID, sc.ID), dbutil.ErrNotFound)

	require.NoError(t, s.DeleteSchedule(ctx, owner.ID, sc.ID))
	list, _ = s.ListSchedules(ctx, owner.ID)
	assert.Len(t, list, 2)
}

// ============================================================================
// 错误路径（sqlmock）
// ============================================================================

func TestCreateUser_RollbackOnProfileError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db, sqlitedriver.NewDialect())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO profiles`)).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	u := &model.User{Email: "x@example.com", PasswordHash: "h"}
	err = s.CreateUser(context.Background(), u, &model.Profile{Name: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NotErrorIs(t, err, dbutil.ErrDuplicate)
	assert.Zero(t, u.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTasks_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewStore(db, sqlitedriver.NewDialect())
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE user_id = ?`)).
		WithArgs(int64(1)).
		WillReturnError(errors.New("connection reset"))

	_, err = s.ListTasks(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list tasks")
	assert.NoError(t, mock.ExpectationsWereMet())
}
