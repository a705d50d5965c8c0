package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// renderDescription 把模板描述的 Markdown 渲染为净化后的 HTML
func renderDescription(markdown string) string {
	if markdown == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return sanitizer.Sanitize(buf.String())
}

type templatePayload struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	MetricKey   string  `json:"metric_key"`
	Unit        string  `json:"unit"`
	TargetValue float64 `json:"target_value"`
	Points      int     `json:"points"`
	IconURL     string  `json:"icon_url"`
	Status      string  `json:"status"`
}

// ListCatalog 返回用户可接取的任务目录（仅 active 模板）
func (a *API) ListCatalog(c *gin.Context) {
	templates, err := a.catalog.List(service.TemplateFilter{
		Category: c.Query("category"),
		Status:   "active",
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取任务目录失败")
		return
	}

	items := make([]gin.H, 0, len(templates))
	for _, template := range templates {
		items = append(items, templateToPayload(template))
	}

	c.JSON(http.StatusOK, gin.H{"templates": items})
}

// ListTemplates 返回后台模板列表（不过滤状态）
func (a *API) ListTemplates(c *gin.Context) {
	templates, err := a.catalog.List(service.TemplateFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取模板列表失败")
		return
	}

	items := make([]gin.H, 0, len(templates))
	for _, template := range templates {
		items = append(items, templateToPayload(template))
	}

	c.JSON(http.StatusOK, gin.H{"templates": items})
}

// GetTemplate 返回单个模板详情
func (a *API) GetTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	template, err := a.catalog.Get(id)
	if err != nil {
		a.handleTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": templateToPayload(*template)})
}

// CreateTemplate 创建任务模板
func (a *API) CreateTemplate(c *gin.Context) {
	var payload templatePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	template, err := a.catalog.Create(templateInputFromPayload(payload))
	if err != nil {
		a.handleTemplateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"template": templateToPayload(*template)})
}

// UpdateTemplate 更新任务模板
func (a *API) UpdateTemplate(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的模板ID")
		return
	}

	var payload templatePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	template, err := a.catalog.Update(id, templateInputFromPayload(payload))
	if err != nil {
		a.handleTemplateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": templateToPayload(*template)})
}

func templateInputFromPayload(payload templatePayload) service.TemplateInput {
	return service.TemplateInput{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    payload.Category,
		MetricKey:   payload.MetricKey,
		Unit:        payload.Unit,
		TargetValue: payload.TargetValue,
		Points:      payload.Points,
		IconURL:     payload.IconURL,
		Status:      payload.Status,
	}
}

func templateToPayload(template db.MissionTemplate) gin.H {
	return gin.H{
		"id":               template.ID,
		"title":            template.Title,
		"description":      template.Description,
		"description_html": renderDescription(template.Description),
		"category":         template.Category,
		"metric_key":       template.MetricKey,
		"unit":             template.Unit,
		"target_value":     template.TargetValue,
		"points":           template.Points,
		"icon_url":         template.IconURL,
		"status":           template.Status,
	}
}

func (a *API) handleTemplateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		respondError(c, http.StatusNotFound, "任务模板不存在")
	case errors.Is(err, service.ErrTemplateInvalid):
		respondError(c, http.StatusBadRequest, "模板配置无效")
	default:
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
