package db

import (
	"time"

	"gorm.io/gorm"
)

// 任务状态常量：active 为唯一非终态，completed/abandoned 为终态
const (
	MissionStatusActive    = "active"
	MissionStatusCompleted = "completed"
	MissionStatusAbandoned = "abandoned"
)

// 任务分类常量，与移动端展示的频道一一对应
const (
	CategoryHealthTracking = "health_tracking"
	CategoryFitness        = "fitness"
	CategoryNutrition      = "nutrition"
	CategoryMentalHealth   = "mental_health"
)

// MissionTemplate 定义任务模板（目标值、单位、积分、指标绑定）
// 模板由后台管理员维护，用户操作永远不会修改模板
// MetricKey 关联 service 层的指标注册表，决定聚合来源表/列/函数
// TargetValue 必须为正数，authoring 阶段校验
type MissionTemplate struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Category    string `gorm:"index;not null"`
	MetricKey   string `gorm:"index;not null"`
	Unit        string
	TargetValue float64 `gorm:"not null"`
	Points      int     `gorm:"not null;default:0"`
	IconURL     string
	Status      string `gorm:"index;default:'active'"`
}

// UserMissionInstance 记录某用户在某个日历日对某模板的一次挑战
// UserID + MissionTemplateID + InstanceDate 采用唯一索引，重复接取直接冲突
// ProgressPercent 始终由 CurrentValue/TargetValue 重新推导，不独立维护
// LockVersion 用于乐观并发控制，save 时 CAS 校验
// PointsAwarded 仅在进入 completed 时写入一次，此后冻结
type UserMissionInstance struct {
	gorm.Model
	UserID            uint            `gorm:"index;index:idx_user_mission_date,unique;not null"`
	MissionTemplateID uint            `gorm:"index:idx_user_mission_date,unique;not null"`
	Template          MissionTemplate `gorm:"foreignKey:MissionTemplateID"`
	InstanceDate      time.Time       `gorm:"index:idx_user_mission_date,unique;not null"`
	CurrentValue      float64         `gorm:"not null;default:0"`
	ProgressPercent   int             `gorm:"not null;default:0"`
	Status            string          `gorm:"index;default:'active'"`
	Notes             string
	PointsAwarded     int `gorm:"not null;default:0"`
	LockVersion       int `gorm:"not null;default:0"`
}

// TableName 确保唯一索引作用到 user_id + mission_template_id + instance_date
func (UserMissionInstance) TableName() string {
	return "user_mission_instances"
}

// Terminal 判断实例是否已进入终态
func (i UserMissionInstance) Terminal() bool {
	return i.Status == MissionStatusCompleted || i.Status == MissionStatusAbandoned
}
