package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

// TrackingHook 在每次打点写入后被同步调用，参数为触发打点的
// (用户, 日历日, 指标)。任务引擎把 AutoUpdate 注册到这里。
type TrackingHook func(userID uint, date time.Time, metricKey MetricKey)

// TrackingService 是打点数据的写入通道。完整的录入 API 属于外部协作方，
// 这里只承载最小写入 + 事后钩子：先落库，再同步通知任务引擎，
// 保证聚合一定能观察到刚写入的行。
// 钩子失败只记日志，绝不反噬打点写入本身；下一次打点会重新触发重算。
// 心情评分（Score）约定由调用方归一化到统一量纲后再传入。
type TrackingService struct {
	db   *gorm.DB
	hook TrackingHook
}

// NewTrackingService 构造 TrackingService
func NewTrackingService(gdb *gorm.DB) *TrackingService {
	return &TrackingService{db: gdb}
}

// SetHook 注册打点后回调；传 nil 关闭联动
func (s *TrackingService) SetHook(hook TrackingHook) {
	s.hook = hook
}

// RecordWater 记录一次饮水
func (s *TrackingService) RecordWater(userID uint, date time.Time, volumeML float64) (*db.WaterLog, error) {
	if volumeML <= 0 {
		return nil, fmt.Errorf("volume must be positive")
	}

	record := db.WaterLog{UserID: userID, LogDate: normalizeToDate(date), VolumeML: volumeML}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record water log: %w", err)
	}

	s.notify(userID, record.LogDate, MetricWaterML)
	return &record, nil
}

// RecordFitness 记录一次运动；步数/时长/消耗各自驱动对应指标的重算
func (s *TrackingService) RecordFitness(userID uint, date time.Time, activityType string, steps, durationMinutes, calories float64) (*db.FitnessLog, error) {
	if steps < 0 || durationMinutes < 0 || calories < 0 {
		return nil, fmt.Errorf("fitness values must not be negative")
	}

	record := db.FitnessLog{
		UserID:          userID,
		LogDate:         normalizeToDate(date),
		ActivityType:    strings.TrimSpace(activityType),
		Steps:           steps,
		DurationMinutes: durationMinutes,
		Calories:        calories,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record fitness log: %w", err)
	}

	if steps > 0 {
		s.notify(userID, record.LogDate, MetricSteps)
	}
	if durationMinutes > 0 {
		s.notify(userID, record.LogDate, MetricExerciseMinutes)
	}
	if calories > 0 {
		s.notify(userID, record.LogDate, MetricCaloriesBurned)
	}
	return &record, nil
}

// RecordMeal 记录一餐
func (s *TrackingService) RecordMeal(userID uint, date time.Time, mealType string, calories float64) (*db.MealLog, error) {
	if calories <= 0 {
		return nil, fmt.Errorf("calories must be positive")
	}

	record := db.MealLog{
		UserID:   userID,
		LogDate:  normalizeToDate(date),
		MealType: strings.TrimSpace(mealType),
		Calories: calories,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record meal log: %w", err)
	}

	s.notify(userID, record.LogDate, MetricMealCalories)
	return &record, nil
}

// RecordSleep 记录一段睡眠
func (s *TrackingService) RecordSleep(userID uint, date time.Time, durationMinutes float64) (*db.SleepLog, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}

	record := db.SleepLog{UserID: userID, LogDate: normalizeToDate(date), DurationMinutes: durationMinutes}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record sleep log: %w", err)
	}

	s.notify(userID, record.LogDate, MetricSleepMinutes)
	return &record, nil
}

// RecordMood 记录一次心情评分（已归一化）
func (s *TrackingService) RecordMood(userID uint, date time.Time, score float64, note string) (*db.MoodLog, error) {
	if score < 0 {
		return nil, fmt.Errorf("score must not be negative")
	}

	record := db.MoodLog{
		UserID:  userID,
		LogDate: normalizeToDate(date),
		Score:   score,
		Note:    strings.TrimSpace(note),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("record mood log: %w", err)
	}

	s.notify(userID, record.LogDate, MetricMoodScore)
	return &record, nil
}

// notify 同步触发钩子，panic 一并兜住：
// 任务联动只追求最终一致，打点写入不承担它的失败
func (s *TrackingService) notify(userID uint, date time.Time, metricKey MetricKey) {
	if s.hook == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("tracking hook panic for user %d metric %s: %v", userID, metricKey, r)
		}
	}()

	s.hook(userID, date, metricKey)
}
