package db

import (
	"time"

	"gorm.io/gorm"
)

// 原始打点数据表。录入 API 属于外部协作方，任务引擎只读。
// 各表统一以 user_id + log_date 过滤，log_date 为用户本地日历日零点。

// WaterLog 记录单次饮水量（毫升）
type WaterLog struct {
	gorm.Model
	UserID   uint      `gorm:"index:idx_water_user_date;not null"`
	LogDate  time.Time `gorm:"index:idx_water_user_date;not null"`
	VolumeML float64   `gorm:"not null"`
}

// FitnessLog 记录一次运动：步数、时长、消耗
type FitnessLog struct {
	gorm.Model
	UserID          uint      `gorm:"index:idx_fitness_user_date;not null"`
	LogDate         time.Time `gorm:"index:idx_fitness_user_date;not null"`
	ActivityType    string
	Steps           float64
	DurationMinutes float64
	Calories        float64
}

// MealLog 记录一餐的热量摄入
type MealLog struct {
	gorm.Model
	UserID   uint      `gorm:"index:idx_meal_user_date;not null"`
	LogDate  time.Time `gorm:"index:idx_meal_user_date;not null"`
	MealType string
	Calories float64
}

// SleepLog 记录一段睡眠时长（分钟），同日多段取最长
type SleepLog struct {
	gorm.Model
	UserID          uint      `gorm:"index:idx_sleep_user_date;not null"`
	LogDate         time.Time `gorm:"index:idx_sleep_user_date;not null"`
	DurationMinutes float64   `gorm:"not null"`
}

// MoodLog 记录一次心情评分；引擎约定评分已由录入方归一化
type MoodLog struct {
	gorm.Model
	UserID  uint      `gorm:"index:idx_mood_user_date;not null"`
	LogDate time.Time `gorm:"index:idx_mood_user_date;not null"`
	Score   float64   `gorm:"not null"`
	Note    string
}
