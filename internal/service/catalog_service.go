package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrTemplateNotFound 在指定任务模板不存在时返回
	ErrTemplateNotFound = errors.New("mission template not found")
	// ErrTemplateInvalid 当模板配置不合法（目标值、指标、分类）时返回
	ErrTemplateInvalid = errors.New("invalid mission template configuration")
)

// CatalogService 负责任务模板目录的查询与后台维护
// 对任务引擎而言模板是只读输入；Create/Update 仅服务于后台管理
type CatalogService struct {
	db *gorm.DB
}

// TemplateFilter 描述目录列表过滤条件
type TemplateFilter struct {
	Category string
	Status   string
	Search   string
}

// TemplateInput 定义创建/更新模板时可配置字段
type TemplateInput struct {
	Title       string
	Description string
	Category    string
	MetricKey   string
	Unit        string
	TargetValue float64
	Points      int
	IconURL     string
	Status      string
}

// NewCatalogService 构造 CatalogService
func NewCatalogService(gdb *gorm.DB) *CatalogService {
	return &CatalogService{db: gdb}
}

// Get 根据 ID 获取模板
func (s *CatalogService) Get(id uint) (*db.MissionTemplate, error) {
	var template db.MissionTemplate
	if err := s.db.First(&template, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get mission template: %w", err)
	}
	return &template, nil
}

// List 返回模板集合，支持基本筛选
func (s *CatalogService) List(filter TemplateFilter) ([]db.MissionTemplate, error) {
	var templates []db.MissionTemplate

	query := s.db.Model(&db.MissionTemplate{})

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("title LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("category ASC, target_value ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list mission templates: %w", err)
	}

	return templates, nil
}

// Create 新建模板
func (s *CatalogService) Create(input TemplateInput) (*db.MissionTemplate, error) {
	if err := validateTemplateInput(input); err != nil {
		return nil, err
	}

	template := db.MissionTemplate{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		MetricKey:   strings.TrimSpace(input.MetricKey),
		Unit:        strings.TrimSpace(input.Unit),
		TargetValue: input.TargetValue,
		Points:      input.Points,
		IconURL:     strings.TrimSpace(input.IconURL),
		Status:      normalizeTemplateStatus(input.Status),
	}

	if err := s.db.Create(&template).Error; err != nil {
		return nil, fmt.Errorf("create mission template: %w", err)
	}
	return &template, nil
}

// Update 更新模板；已被实例引用的模板仍可调整文案与积分，
// 但目标值与指标同样要通过校验
func (s *CatalogService) Update(id uint, input TemplateInput) (*db.MissionTemplate, error) {
	if err := validateTemplateInput(input); err != nil {
		return nil, err
	}

	var existing db.MissionTemplate
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("find mission template: %w", err)
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Description = strings.TrimSpace(input.Description)
	existing.Category = strings.TrimSpace(input.Category)
	existing.MetricKey = strings.TrimSpace(input.MetricKey)
	existing.Unit = strings.TrimSpace(input.Unit)
	existing.TargetValue = input.TargetValue
	existing.Points = input.Points
	existing.IconURL = strings.TrimSpace(input.IconURL)
	existing.Status = normalizeTemplateStatus(input.Status)

	if err := s.db.Save(&existing).Error; err != nil {
		return nil, fmt.Errorf("update mission template: %w", err)
	}
	return &existing, nil
}

func validateTemplateInput(input TemplateInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrTemplateInvalid)
	}

	if input.TargetValue <= 0 {
		return fmt.Errorf("%w: target value must be positive", ErrTemplateInvalid)
	}

	if input.Points < 0 {
		return fmt.Errorf("%w: points must not be negative", ErrTemplateInvalid)
	}

	if !KnownMetricKey(strings.TrimSpace(input.MetricKey)) {
		return fmt.Errorf("%w: unknown metric key %s", ErrTemplateInvalid, input.MetricKey)
	}

	switch strings.TrimSpace(input.Category) {
	case db.CategoryHealthTracking, db.CategoryFitness, db.CategoryNutrition, db.CategoryMentalHealth:
		return nil
	default:
		return fmt.Errorf("%w: unsupported category %s", ErrTemplateInvalid, input.Category)
	}
}

func normalizeTemplateStatus(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	if status != "inactive" {
		return "active"
	}
	return "inactive"
}
