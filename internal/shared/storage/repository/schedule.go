package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
)

const scheduleColumns = `id, user_id, day, subject, start_time, end_time, room, created_at`

// CreateSchedule 创建课程表条目
func (s *Store) CreateSchedule(ctx context.Context, sc *model.Schedule) error {
	now := s.now()
	err := s.db.QueryRowContext(ctx, s.rebind(
		`INSERT INTO schedules (user_id, day, day_order, subject, start_time, end_time, room, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`),
		sc.UserID, sc.Day, sc.Day.Order(), sc.Subject, sc.StartTime, sc.EndTime, nullString(sc.Room), now,
	).Scan(&sc.ID)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	sc.CreatedAt = now
	return nil
}

// GetSchedule 获取当前用户的课程表条目
func (s *Store) GetSchedule(ctx context.Context, userID, id int64) (*model.Schedule, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1 AND user_id = $2`), id, userID)
	sc, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sc, nil
}

// ListSchedules 按星期、开始时间排序列出课程表
func (s *Store) ListSchedules(ctx context.Context, userID int64) ([]*model.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT `+scheduleColumns+` FROM schedules WHERE user_id = $1
		 ORDER BY day_order ASC, start_time ASC, id ASC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]*model.Schedule, 0)
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// UpdateSchedule 覆盖更新课程表条目
func (s *Store) UpdateSchedule(ctx context.Context, sc *model.Schedule) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`UPDATE schedules SET day = $1, day_order = $2, subject = $3, start_time = $4, end_time = $5, room = $6
		 WHERE id = $7 AND user_id = $8`),
		sc.Day, sc.Day.Order(), sc.Subject, sc.StartTime, sc.EndTime, nullString(sc.Room),
		sc.ID, sc.UserID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return expectAffected(res)
}

// DeleteSchedule 删除当前用户的课程表条目
func (s *Store) DeleteSchedule(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM schedules WHERE id = $1 AND user_id = $2`), id, userID)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectAffected(res)
}

func scanSchedule(row rowScanner) (*model.Schedule, error) {
	sc := &model.Schedule{}
	var room sql.NullString
	if err := row.Scan(&sc.ID, &sc.UserID, &sc.Day, &sc.Subject, &sc.StartTime, &sc.EndTime,
		&room, &sc.CreatedAt); err != nil {
		return nil, err
	}
	sc.Room = stringPtr(room)
	return sc, nil
}
