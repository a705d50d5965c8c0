package service

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TrackingAggregator 负责把原始打点数据汇总成单日指标总量
// 只读、幂等、无副作用；追踪数据的写入方属于外部协作方。
// 单位是否匹配是目录 authoring 阶段的职责，这里不做校验。
// 心情评分等量纲约定由打点录入方归一化后再落库。
type TrackingAggregator struct {
	db *gorm.DB
}

// NewTrackingAggregator 构造 TrackingAggregator
func NewTrackingAggregator(gdb *gorm.DB) *TrackingAggregator {
	return &TrackingAggregator{db: gdb}
}

// Aggregate 返回指定用户在指定日历日内某指标的聚合值。
// 无任何记录时返回 0，永远不视为错误。
func (s *TrackingAggregator) Aggregate(userID uint, date time.Time, binding MetricBinding) (float64, error) {
	day := normalizeToDate(date)

	switch binding.Fn {
	case AggSum, AggMax:
		var total float64
		expr := fmt.Sprintf("COALESCE(%s(%s), 0)", binding.Fn, binding.Column)
		if err := s.db.Table(binding.SourceTable).
			Select(expr).
			Where("user_id = ? AND log_date = ? AND deleted_at IS NULL", userID, day).
			Scan(&total).Error; err != nil {
			return 0, fmt.Errorf("aggregate %s from %s: %w", binding.Fn, binding.SourceTable, err)
		}
		return total, nil
	case AggLatest:
		var latest float64
		// Scan 在零行时不报错，latest 保持 0
		if err := s.db.Table(binding.SourceTable).
			Select(binding.Column).
			Where("user_id = ? AND log_date = ? AND deleted_at IS NULL", userID, day).
			Order("created_at DESC, id DESC").
			Limit(1).
			Scan(&latest).Error; err != nil {
			return 0, fmt.Errorf("aggregate LATEST from %s: %w", binding.SourceTable, err)
		}
		return latest, nil
	default:
		return 0, fmt.Errorf("unsupported aggregation function: %s", binding.Fn)
	}
}

// normalizeToDate 把时间截断到当日零点，保留原时区
func normalizeToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
