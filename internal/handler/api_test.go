package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "pass1234"

// setupTestAPI 构造内存数据库与带会话中间件的测试引擎
func setupTestAPI(t *testing.T) (*API, *gin.Engine, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(
		&db.User{},
		&db.MissionTemplate{},
		&db.UserMissionInstance{},
		&db.WaterLog{},
		&db.FitnessLog{},
		&db.MealLog{},
		&db.SleepLog{},
		&db.MoodLog{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	api := NewAPI(gdb, t.TempDir(), "/static/uploads")

	r := gin.New()
	r.Use(sessions.Sessions("vitalog_test_session", cookie.NewStore([]byte("secret"))))
	r.POST("/api/auth/login", api.Login)
	r.POST("/api/auth/logout", api.Logout)

	auth := r.Group("/api")
	auth.Use(AuthRequired())
	{
		auth.GET("/missions/catalog", api.ListCatalog)
		auth.GET("/missions/my-missions", api.ListMyMissions)
		auth.GET("/missions/summary", api.GetMissionSummary)
		auth.POST("/missions/:id/accept", api.AcceptMission)
		auth.POST("/missions/:id/abandon", api.AbandonMission)
		auth.PUT("/missions/progress/:id", api.UpdateMissionProgress)

		admin := auth.Group("/admin")
		admin.Use(api.AdminRequired())
		{
			admin.POST("/templates", api.CreateTemplate)
			admin.PUT("/templates/:id", api.UpdateTemplate)
			admin.GET("/templates", api.ListTemplates)
			admin.GET("/templates/:id", api.GetTemplate)
		}
	}

	cleanup := func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return api, r, cleanup
}

func seedUser(t *testing.T, username, role string) *db.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := db.User{Username: username, Password: string(hashed), Role: role, Timezone: "Asia/Shanghai"}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return &user
}

// loginAs 执行登录请求并返回会话 Cookie
func loginAs(t *testing.T, r *gin.Engine, username string) []*http.Cookie {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"username": username, "password": testPassword})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", w.Code, w.Body.String())
	}

	return w.Result().Cookies()
}

// doJSON 构造带会话 Cookie 的 JSON 请求并返回响应
func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// mustDate 以用户时区解析测试日期，保持与接口边界一致
func mustDate(t *testing.T, value string) time.Time {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	parsed, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		t.Fatalf("failed to parse date %q: %v", value, err)
	}
	return parsed
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return decoded
}
