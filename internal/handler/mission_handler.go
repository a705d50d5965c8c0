package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type acceptMissionPayload struct {
	Date string `json:"date"` // 2006-01-02，空则取用户本地今天
}

type updateProgressPayload struct {
	CurrentValue *float64 `json:"current_value"`
	Notes        string   `json:"notes"`
}

// AcceptMission 为当前用户在指定日期接取任务模板
// 重复接取返回 409，并按既有实例状态给出不同提示
func (a *API) AcceptMission(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	templateID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务模板ID")
		return
	}

	var payload acceptMissionPayload
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	}

	date, err := resolveUserDate(user, payload.Date)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务日期")
		return
	}

	instance, err := a.missions.Accept(user.ID, templateID, date)
	if err != nil {
		a.handleMissionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"mission": serializeInstance(*instance)})
}

// UpdateMissionProgress 手动更新任务进度，达成目标时自动结算积分
func (a *API) UpdateMissionProgress(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	instanceID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务实例ID")
		return
	}

	var payload updateProgressPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}
	if payload.CurrentValue == nil {
		respondError(c, http.StatusBadRequest, "请填写当前进度值")
		return
	}

	instance, err := a.missions.ManualUpdate(user.ID, instanceID, *payload.CurrentValue, payload.Notes)
	if err != nil {
		a.handleMissionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mission": serializeInstance(*instance)})
}

// AbandonMission 放弃进行中的任务
func (a *API) AbandonMission(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	instanceID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的任务实例ID")
		return
	}

	instance, err := a.missions.Abandon(user.ID, instanceID)
	if err != nil {
		a.handleMissionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mission": serializeInstance(*instance)})
}

// ListMyMissions 返回当前用户某日的任务列表（含模板字段）
func (a *API) ListMyMissions(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	date, err := resolveUserDate(user, c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的查询日期")
		return
	}

	instances, err := a.missions.ListByUserAndDate(user.ID, date)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取任务列表失败")
		return
	}

	items := make([]gin.H, 0, len(instances))
	for _, instance := range instances {
		items = append(items, serializeInstance(instance))
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date.Format(dateFormat),
		"missions": items,
	})
}

// GetMissionSummary 返回日期区间内的任务完成统计
func (a *API) GetMissionSummary(c *gin.Context) {
	user, err := a.currentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	start, err := resolveUserDate(user, c.Query("start"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的开始日期")
		return
	}
	end, err := resolveUserDate(user, c.Query("end"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的结束日期")
		return
	}

	stats, err := a.missions.StatsBetween(user.ID, start, end)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "计算统计信息失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"range": gin.H{
			"start": stats.RangeStart.Format(dateFormat),
			"end":   stats.RangeEnd.Format(dateFormat),
		},
		"accepted_count":  stats.AcceptedCount,
		"completed_count": stats.CompletedCount,
		"abandoned_count": stats.AbandonedCount,
		"points_earned":   stats.PointsEarned,
	})
}

func serializeInstance(instance db.UserMissionInstance) gin.H {
	item := gin.H{
		"id":               instance.ID,
		"template_id":      instance.MissionTemplateID,
		"date":             instance.InstanceDate.Format(dateFormat),
		"current_value":    instance.CurrentValue,
		"progress_percent": instance.ProgressPercent,
		"status":           instance.Status,
		"notes":            instance.Notes,
		"points_awarded":   instance.PointsAwarded,
		"updated_at":       instance.UpdatedAt.Format(time.RFC3339),
	}

	if instance.Template.ID != 0 {
		item["template"] = gin.H{
			"title":            instance.Template.Title,
			"description_html": renderDescription(instance.Template.Description),
			"category":         instance.Template.Category,
			"unit":             instance.Template.Unit,
			"target_value":     instance.Template.TargetValue,
			"points":           instance.Template.Points,
			"icon_url":         instance.Template.IconURL,
		}
	}

	return item
}

// handleMissionError 把服务层错误映射为 HTTP 状态。
// 重复接取按既有状态给出引导；目录配置缺陷不向用户暴露细节。
func (a *API) handleMissionError(c *gin.Context, err error) {
	var dup *service.DuplicateAcceptError
	switch {
	case errors.As(err, &dup):
		respondError(c, http.StatusConflict, duplicateAcceptMessage(dup.ExistingStatus))
	case errors.Is(err, service.ErrTemplateNotFound):
		respondError(c, http.StatusNotFound, "任务模板不存在")
	case errors.Is(err, service.ErrInstanceNotFound):
		respondError(c, http.StatusNotFound, "任务实例不存在")
	case errors.Is(err, service.ErrInvalidState):
		respondError(c, http.StatusConflict, "任务已结束，无法继续操作")
	case errors.Is(err, service.ErrNegativeValue):
		respondError(c, http.StatusBadRequest, "进度值不能为负数")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}

func duplicateAcceptMessage(status string) string {
	switch status {
	case db.MissionStatusCompleted:
		return "该任务当日已完成，请选择其他日期再次挑战"
	case db.MissionStatusAbandoned:
		return "该任务当日已放弃，请选择其他日期重新接取"
	default:
		return "该任务当日已接取，请直接更新进度"
	}
}
