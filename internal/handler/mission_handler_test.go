package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

func seedWaterTemplate(t *testing.T, target float64, points int) *db.MissionTemplate {
	t.Helper()

	template, err := service.NewCatalogService(db.DB).Create(service.TemplateInput{
		Title:       "每日八杯水",
		Description: "喝满 **8 杯水**",
		Category:    db.CategoryHealthTracking,
		MetricKey:   string(service.MetricWaterML),
		Unit:        "杯",
		TargetValue: target,
		Points:      points,
	})
	if err != nil {
		t.Fatalf("failed to seed template: %v", err)
	}
	return template
}

func TestMissionEndpointsRequireLogin(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	w := doJSON(t, r, http.MethodGet, "/api/missions/my-missions", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestAcceptMission(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "xiaoming", db.RoleMember)
	template := seedWaterTemplate(t, 8, 20)
	cookies := loginAs(t, r, "xiaoming")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/accept", template.ID),
		map[string]string{"date": "2025-06-01"}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	mission, ok := body["mission"].(map[string]any)
	if !ok {
		t.Fatalf("expected mission payload, got %v", body)
	}
	if mission["status"] != "active" {
		t.Fatalf("expected active status, got %v", mission["status"])
	}
	if mission["date"] != "2025-06-01" {
		t.Fatalf("expected date 2025-06-01, got %v", mission["date"])
	}
}

func TestAcceptMissionConflictMessages(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	user := seedUser(t, "xiaoming", db.RoleMember)
	template := seedWaterTemplate(t, 8, 20)
	cookies := loginAs(t, r, "xiaoming")

	acceptPath := fmt.Sprintf("/api/missions/%d/accept", template.ID)
	datePayload := map[string]string{"date": "2025-06-01"}

	if w := doJSON(t, r, http.MethodPost, acceptPath, datePayload, cookies); w.Code != http.StatusCreated {
		t.Fatalf("first accept failed: %d", w.Code)
	}

	// active 冲突
	w := doJSON(t, r, http.MethodPost, acceptPath, datePayload, cookies)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
	if msg := decodeBody(t, w)["error"].(string); !strings.Contains(msg, "已接取") {
		t.Fatalf("expected active guidance, got %q", msg)
	}

	// abandoned 冲突提示不同文案
	svc := service.NewMissionService(db.DB)
	instances, err := svc.ListByUserAndDate(user.ID, mustDate(t, "2025-06-01"))
	if err != nil || len(instances) != 1 {
		t.Fatalf("failed to load instance: %v", err)
	}
	if _, err := svc.Abandon(user.ID, instances[0].ID); err != nil {
		t.Fatalf("Abandon returned error: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, acceptPath, datePayload, cookies)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 after abandon, got %d", w.Code)
	}
	if msg := decodeBody(t, w)["error"].(string); !strings.Contains(msg, "已放弃") {
		t.Fatalf("expected abandoned guidance, got %q", msg)
	}
}

func TestAcceptMissionUnknownTemplate(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "xiaoming", db.RoleMember)
	cookies := loginAs(t, r, "xiaoming")

	w := doJSON(t, r, http.MethodPost, "/api/missions/999/accept", map[string]string{"date": "2025-06-01"}, cookies)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestUpdateMissionProgress(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "xiaoming", db.RoleMember)
	template := seedWaterTemplate(t, 8, 20)
	cookies := loginAs(t, r, "xiaoming")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/accept", template.ID),
		map[string]string{"date": "2025-06-01"}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("accept failed: %d", w.Code)
	}
	mission := decodeBody(t, w)["mission"].(map[string]any)
	instanceID := int(mission["id"].(float64))

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/missions/progress/%d", instanceID),
		map[string]any{"current_value": 5, "notes": "下午补了两杯"}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	updated := decodeBody(t, w)["mission"].(map[string]any)
	if updated["progress_percent"].(float64) != 63 {
		t.Fatalf("expected 63%%, got %v", updated["progress_percent"])
	}
	if updated["notes"] != "下午补了两杯" {
		t.Fatalf("expected notes to persist, got %v", updated["notes"])
	}

	// 完成后再更新返回 409
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/missions/progress/%d", instanceID),
		map[string]any{"current_value": 8}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("completion update failed: %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/missions/progress/%d", instanceID),
		map[string]any{"current_value": 9}, cookies)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409 after completion, got %d", w.Code)
	}

	// 不存在的实例返回 404
	w = doJSON(t, r, http.MethodPut, "/api/missions/progress/999",
		map[string]any{"current_value": 1}, cookies)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", w.Code)
	}
}

func TestListMyMissionsJoinsTemplate(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "xiaoming", db.RoleMember)
	template := seedWaterTemplate(t, 8, 20)
	cookies := loginAs(t, r, "xiaoming")

	if w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/accept", template.ID),
		map[string]string{"date": "2025-06-01"}, cookies); w.Code != http.StatusCreated {
		t.Fatalf("accept failed: %d", w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/missions/my-missions?date=2025-06-01", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	missions := body["missions"].([]any)
	if len(missions) != 1 {
		t.Fatalf("expected 1 mission, got %d", len(missions))
	}

	joined := missions[0].(map[string]any)["template"].(map[string]any)
	if joined["title"] != "每日八杯水" {
		t.Fatalf("expected joined title, got %v", joined["title"])
	}
	if joined["target_value"].(float64) != 8 {
		t.Fatalf("expected joined target, got %v", joined["target_value"])
	}
	if html := joined["description_html"].(string); !strings.Contains(html, "<strong>") {
		t.Fatalf("expected rendered markdown description, got %q", html)
	}

	// 其他日期为空列表
	w = doJSON(t, r, http.MethodGet, "/api/missions/my-missions?date=2025-06-02", nil, cookies)
	if len(decodeBody(t, w)["missions"].([]any)) != 0 {
		t.Fatal("expected empty list for other date")
	}
}

func TestAbandonMissionEndpoint(t *testing.T) {
	_, r, cleanup := setupTestAPI(t)
	defer cleanup()

	seedUser(t, "xiaoming", db.RoleMember)
	template := seedWaterTemplate(t, 8, 20)
	cookies := loginAs(t, r, "xiaoming")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/accept", template.ID),
		map[string]string{"date": "2025-06-01"}, cookies)
	mission := decodeBody(t, w)["mission"].(map[string]any)
	instanceID := int(mission["id"].(float64))

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/abandon", instanceID), nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if status := decodeBody(t, w)["mission"].(map[string]any)["status"]; status != "abandoned" {
		t.Fatalf("expected abandoned status, got %v", status)
	}

	// 重复放弃返回 409
	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/abandon", instanceID), nil, cookies)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
}

func TestMissionSummaryEndpoint(t *testing.T) {
	api, r, cleanup := setupTestAPI(t)
	defer cleanup()

	user := seedUser(t, "xiaoming", db.RoleMember)
	template := seedWaterTemplate(t, 2000, 30)
	cookies := loginAs(t, r, "xiaoming")

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/api/missions/%d/accept", template.ID),
		map[string]string{"date": "2025-06-01"}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("accept failed: %d", w.Code)
	}

	// 打点写入经钩子联动完成任务
	date := mustDate(t, "2025-06-01")
	if _, err := api.Tracking().RecordWater(user.ID, date, 2100); err != nil {
		t.Fatalf("RecordWater returned error: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/api/missions/summary?start=2025-06-01&end=2025-06-07", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["completed_count"].(float64) != 1 {
		t.Fatalf("expected 1 completed mission, got %v", body["completed_count"])
	}
	if body["points_earned"].(float64) != 30 {
		t.Fatalf("expected 30 points, got %v", body["points_earned"])
	}
}
