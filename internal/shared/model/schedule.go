package model

import (
	"fmt"
	"time"
)

// Weekday 上课日（印尼语星期名称）
type Weekday string

const (
	WeekdayMonday    Weekday = "Senin"
	WeekdayTuesday   Weekday = "Selasa"
	WeekdayWednesday Weekday = "Rabu"
	WeekdayThursday  Weekday = "Kamis"
	WeekdayFriday    Weekday = "Jumat"
	WeekdaySaturday  Weekday = "Sabtu"
	WeekdaySunday    Weekday = "Minggu"
)

var weekdayOrder = map[Weekday]int{
	WeekdayMonday:    1,
	WeekdayTuesday:   2,
	WeekdayWednesday: 3,
	WeekdayThursday:  4,
	WeekdayFriday:    5,
	WeekdaySaturday:  6,
	WeekdaySunday:    7,
}

// Order 返回一周内的序号（周一为 1），非法值返回 0
func (d Weekday) Order() int {
	return weekdayOrder[d]
}

// Valid 判断是否为合法的星期名称
func (d Weekday) Valid() bool {
	return d.Order() > 0
}

// Schedule 课程表条目
type Schedule struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Day       Weekday   `json:"day" db:"day"`
	Subject   string    `json:"subject" db:"subject"`
	StartTime string    `json:"startTime" db:"start_time"` // HH:MM
	EndTime   string    `json:"endTime" db:"end_time"`     // HH:MM
	Room      *string   `json:"room" db:"room"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ParseClock 解析 24 小时制 HH:MM，返回当天的分钟数
func ParseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// FormatClock 将分钟数格式化为两位数的 HH:MM
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
