package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrInstanceNotFound 在指定任务实例不存在（或不属于该用户）时返回
	ErrInstanceNotFound = errors.New("mission instance not found")
	// ErrInvalidState 当操作在当前状态下不被允许时返回
	ErrInvalidState = errors.New("operation not allowed in current mission state")
	// ErrNegativeValue 当手动更新传入负数进度时返回
	ErrNegativeValue = errors.New("current value must not be negative")
	// ErrStaleInstance 表示乐观锁冲突，调用方需重读后重试
	ErrStaleInstance = errors.New("mission instance was modified concurrently")
)

// saveRetryLimit 限制乐观锁冲突时 read-modify-write 的重试次数
const saveRetryLimit = 3

// DuplicateAcceptError 表示同一 (用户, 模板, 日期) 已存在实例。
// 携带既有实例的状态，接口层据此提示用户是继续更新还是换个日期。
type DuplicateAcceptError struct {
	ExistingStatus string
}

func (e *DuplicateAcceptError) Error() string {
	return fmt.Sprintf("mission already accepted for this date (status: %s)", e.ExistingStatus)
}

// MissionService 管理任务实例的完整生命周期：
// 接取、手动更新、打点联动自动更新、放弃。
// active 是唯一非终态；completed/abandoned 一经进入即冻结。
type MissionService struct {
	db         *gorm.DB
	catalog    *CatalogService
	aggregator *TrackingAggregator
}

// MissionStats 汇总一段日期区间内的任务完成情况
type MissionStats struct {
	RangeStart     time.Time
	RangeEnd       time.Time
	AcceptedCount  int
	CompletedCount int
	AbandonedCount int
	PointsEarned   int
}

// NewMissionService 构造 MissionService
func NewMissionService(gdb *gorm.DB) *MissionService {
	return &MissionService{
		db:         gdb,
		catalog:    NewCatalogService(gdb),
		aggregator: NewTrackingAggregator(gdb),
	}
}

// Accept 为用户在指定日历日接取一个任务模板。
// 同一 (用户, 模板, 日期) 只允许一个实例，无论其状态如何；
// 已放弃/已完成的实例同样阻止重复接取，用户只能换日期。
func (s *MissionService) Accept(userID, templateID uint, date time.Time) (*db.UserMissionInstance, error) {
	template, err := s.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}

	day := normalizeToDate(date)

	if existing, err := s.findByTriple(userID, templateID, day); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &DuplicateAcceptError{ExistingStatus: existing.Status}
	}

	instance := db.UserMissionInstance{
		UserID:            userID,
		MissionTemplateID: template.ID,
		InstanceDate:      day,
		CurrentValue:      0,
		ProgressPercent:   0,
		Status:            db.MissionStatusActive,
	}

	if err := s.db.Create(&instance).Error; err != nil {
		// 并发接取会撞唯一索引，此时重读并按冲突处理
		if existing, findErr := s.findByTriple(userID, templateID, day); findErr == nil && existing != nil {
			return nil, &DuplicateAcceptError{ExistingStatus: existing.Status}
		}
		return nil, fmt.Errorf("create mission instance: %w", err)
	}

	instance.Template = *template
	return &instance, nil
}

// Get 返回属于该用户的任务实例（含模板）
func (s *MissionService) Get(userID, instanceID uint) (*db.UserMissionInstance, error) {
	var instance db.UserMissionInstance
	if err := s.db.Preload("Template").
		Where("user_id = ?", userID).
		First(&instance, instanceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, fmt.Errorf("get mission instance: %w", err)
	}
	return &instance, nil
}

// ListByUserAndDate 返回用户当日的全部任务实例（含模板字段）
func (s *MissionService) ListByUserAndDate(userID uint, date time.Time) ([]db.UserMissionInstance, error) {
	var instances []db.UserMissionInstance
	if err := s.db.Preload("Template").
		Where("user_id = ? AND instance_date = ?", userID, normalizeToDate(date)).
		Order("created_at ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list mission instances: %w", err)
	}
	return instances, nil
}

// ManualUpdate 由任务页面的手动录入驱动：覆盖当前值并重算进度。
// 达成目标时置为 completed 并一次性发放积分；终态实例拒绝更新。
func (s *MissionService) ManualUpdate(userID, instanceID uint, newValue float64, notes string) (*db.UserMissionInstance, error) {
	if newValue < 0 {
		return nil, ErrNegativeValue
	}

	var updated *db.UserMissionInstance
	err := s.withRetry(func() error {
		instance, err := s.Get(userID, instanceID)
		if err != nil {
			return err
		}

		if instance.Status != db.MissionStatusActive {
			return fmt.Errorf("%w: %s", ErrInvalidState, instance.Status)
		}

		if err := s.applyProgress(instance, newValue); err != nil {
			return err
		}
		instance.Notes = strings.TrimSpace(notes)

		if err := s.saveInstance(instance); err != nil {
			return err
		}

		updated = instance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// AutoUpdate 由打点写入触发：对 (用户, 日期) 下所有绑定该指标且仍为
// active 的实例，用同一份聚合快照重算进度。聚合器每次调用只查询一次，
// 避免同指标实例观察到不同总量。进度只增不减，终态实例永不回写。
func (s *MissionService) AutoUpdate(userID uint, date time.Time, metricKey MetricKey) error {
	binding, err := BindingForMetric(metricKey)
	if err != nil {
		return err
	}

	day := normalizeToDate(date)

	total, err := s.aggregator.Aggregate(userID, day, binding)
	if err != nil {
		return err
	}

	var instances []db.UserMissionInstance
	if err := s.db.Preload("Template").
		Joins("JOIN mission_templates ON mission_templates.id = user_mission_instances.mission_template_id").
		Where("user_mission_instances.user_id = ?", userID).
		Where("user_mission_instances.instance_date = ?", day).
		Where("user_mission_instances.status = ?", db.MissionStatusActive).
		Where("mission_templates.metric_key = ?", string(metricKey)).
		Find(&instances).Error; err != nil {
		return fmt.Errorf("list active instances for metric: %w", err)
	}

	for i := range instances {
		instanceID := instances[i].ID
		err := s.withRetry(func() error {
			instance, err := s.Get(userID, instanceID)
			if err != nil {
				return err
			}

			// 与并发调用竞争时实例可能已进入终态，终态永不回写
			if instance.Status != db.MissionStatusActive {
				return nil
			}

			prev := instance.ProgressPercent
			if err := s.applyProgress(instance, total); err != nil {
				return err
			}
			// 打点联动只向前推进：LATEST 类聚合回落（如新录入更低的心情分）
			// 不回退已有进度，跳过写回
			if instance.ProgressPercent < prev {
				return nil
			}
			return s.saveInstance(instance)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Abandon 放弃一个进行中的任务：状态置为 abandoned，
// 当前值冻结在最后一次已知进度，不发放积分。
func (s *MissionService) Abandon(userID, instanceID uint) (*db.UserMissionInstance, error) {
	var updated *db.UserMissionInstance
	err := s.withRetry(func() error {
		instance, err := s.Get(userID, instanceID)
		if err != nil {
			return err
		}

		if instance.Status != db.MissionStatusActive {
			return fmt.Errorf("%w: %s", ErrInvalidState, instance.Status)
		}

		instance.Status = db.MissionStatusAbandoned
		if err := s.saveInstance(instance); err != nil {
			return err
		}

		updated = instance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// StatsBetween 统计区间内的接取/完成/放弃数量与累计积分，供看板类读模型使用
func (s *MissionService) StatsBetween(userID uint, start, end time.Time) (*MissionStats, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end before start")
	}

	var instances []db.UserMissionInstance
	if err := s.db.
		Where("user_id = ?", userID).
		Where("instance_date BETWEEN ? AND ?", normalizeToDate(start), normalizeToDate(end)).
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list instances for stats: %w", err)
	}

	stats := &MissionStats{RangeStart: start, RangeEnd: end, AcceptedCount: len(instances)}
	for _, instance := range instances {
		switch instance.Status {
		case db.MissionStatusCompleted:
			stats.CompletedCount++
			stats.PointsEarned += instance.PointsAwarded
		case db.MissionStatusAbandoned:
			stats.AbandonedCount++
		}
	}

	return stats, nil
}

// applyProgress 重算进度并在首次达标时完成任务。
// ErrInvalidTarget 说明目录配置有缺陷，记录日志后原样上抛由调用方兜底。
func (s *MissionService) applyProgress(instance *db.UserMissionInstance, value float64) error {
	percent, complete, err := ComputeProgress(value, instance.Template.TargetValue)
	if err != nil {
		log.Printf("mission template %d misconfigured: %v", instance.MissionTemplateID, err)
		return err
	}

	instance.CurrentValue = value
	instance.ProgressPercent = percent
	if complete {
		instance.Status = db.MissionStatusCompleted
		instance.PointsAwarded = instance.Template.Points
	}

	return nil
}

// saveInstance 以乐观锁写回可变字段：WHERE 带上 lock_version 做 CAS，
// 未命中说明被并发修改，返回 ErrStaleInstance 由上层重读重试。
func (s *MissionService) saveInstance(instance *db.UserMissionInstance) error {
	result := s.db.Model(&db.UserMissionInstance{}).
		Where("id = ? AND lock_version = ?", instance.ID, instance.LockVersion).
		Updates(map[string]interface{}{
			"current_value":    instance.CurrentValue,
			"progress_percent": instance.ProgressPercent,
			"status":           instance.Status,
			"notes":            instance.Notes,
			"points_awarded":   instance.PointsAwarded,
			"lock_version":     instance.LockVersion + 1,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("save mission instance: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrStaleInstance
	}

	instance.LockVersion++
	return nil
}

// withRetry 在乐观锁冲突时重跑整个 read-modify-write 闭包，
// 确保丢失的更新被重算而不是被静默吞掉
func (s *MissionService) withRetry(op func() error) error {
	var err error
	for attempt := 0; attempt < saveRetryLimit; attempt++ {
		err = op()
		if !errors.Is(err, ErrStaleInstance) {
			return err
		}
	}
	return err
}

// findByTriple 查询 (用户, 模板, 日期) 对应的实例，不存在时返回 nil
func (s *MissionService) findByTriple(userID, templateID uint, day time.Time) (*db.UserMissionInstance, error) {
	var existing db.UserMissionInstance
	err := s.db.
		Where("user_id = ? AND mission_template_id = ? AND instance_date = ?", userID, templateID, day).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find mission instance: %w", err)
	}
	return &existing, nil
}
