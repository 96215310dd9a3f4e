// Package model 定义核心数据模型
//
//   - user.go：用户账号与资料
//   - task.go：学习任务（作业、报告等）及其统计
//   - schedule.go：每周课程表
package model

import (
	"math"
	"time"
)

// TaskPriority 任务优先级
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Rendah"
	TaskPriorityMedium TaskPriority = "Sedang"
	TaskPriorityHigh   TaskPriority = "Tinggi"
)

// Valid 判断优先级是否合法
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task 学习任务
type Task struct {
	ID        int64        `json:"id" db:"id"`
	UserID    int64        `json:"userId" db:"user_id"`
	Title     string       `json:"title" db:"title"`
	Subject   string       `json:"subject" db:"subject"`
	Deadline  *time.Time   `json:"deadline" db:"deadline"`
	Priority  TaskPriority `json:"priority" db:"priority"`
	Completed bool         `json:"isCompleted" db:"completed"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time    `json:"updatedAt" db:"updated_at"`
}

// TaskStats 任务统计（首页仪表盘）
type TaskStats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"` // 百分比，四舍五入
}

// NewTaskStats 根据总数和完成数计算统计
func NewTaskStats(total, completed int) TaskStats {
	s := TaskStats{Total: total, Completed: completed, Pending: total - completed}
	if total > 0 {
		s.CompletionRate = int(math.Round(float64(completed) * 100 / float64(total)))
	}
	return s
}
