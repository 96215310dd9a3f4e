package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
)

const taskColumns = `id, user_id, title, subject, deadline, priority, completed, created_at, updated_at`

// CreateTask 创建任务，回填 ID 与时间戳
func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	now := s.now()
	if task.Priority == "" {
		task.Priority = model.TaskPriorityMedium
	}
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO tasks (user_id, title, subject, deadline, priority, completed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`),
		task.UserID, task.Title, task.Subject, nullTime(task.Deadline), task.Priority, task.Completed, now, now,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	task.CreatedAt, task.UpdatedAt = now, now
	return nil
}

// GetTask 获取当前用户的任务
func (s *Store) GetTask(ctx context.Context, userID, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`), id, userID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks 列出当前用户的任务，最新创建的在前
func (s *Store) ListTasks(ctx context.Context, userID int64) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask 覆盖更新任务的可编辑字段
func (s *Store) UpdateTask(ctx context.Context, task *model.Task) error {
	now := s.now()
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE tasks SET title = $1, subject = $2, deadline = $3, priority = $4, completed = $5, updated_at = $6
		 WHERE id = $7 AND user_id = $8`),
		task.Title, task.Subject, nullTime(task.Deadline), task.Priority, task.Completed, now,
		task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	task.UpdatedAt = now
	return nil
}

// DeleteTask 删除当前用户的任务
func (s *Store) DeleteTask(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`), id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectAffected(res)
}

// GetTaskStats 统计当前用户的任务完成情况
func (s *Store) GetTaskStats(ctx context.Context, userID int64) (model.TaskStats, error) {
	var total, completed int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0)
		 FROM tasks WHERE user_id = $1`), userID,
	).Scan(&total, &completed)
	if err != nil {
		return model.TaskStats{}, fmt.Errorf("task stats: %w", err)
	}
	return model.NewTaskStats(total, completed), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	t := &model.Task{}
	var deadline sql.NullTime
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Subject, &deadline,
		&t.Priority, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Deadline = timePtr(deadline)
	return t, nil
}
