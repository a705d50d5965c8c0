package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg config.AppConfig) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("vitalog_session", store))

	// 任务图标等静态资源
	r.Static(cfg.UploadURLPath, cfg.UploadDir)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	r.POST("/api/auth/login", api.Login)
	r.POST("/api/auth/logout", api.Logout)

	// 需要登录的用户路由
	auth := r.Group("/api")
	auth.Use(handler.AuthRequired())
	{
		auth.GET("/missions/catalog", api.ListCatalog)
		auth.GET("/missions/my-missions", api.ListMyMissions)
		auth.GET("/missions/summary", api.GetMissionSummary)
		auth.POST("/missions/:id/accept", api.AcceptMission)
		auth.POST("/missions/:id/abandon", api.AbandonMission)
		auth.PUT("/missions/progress/:id", api.UpdateMissionProgress)

		// 目录管理路由，仅管理员可用
		admin := auth.Group("/admin")
		admin.Use(api.AdminRequired())
		{
			admin.GET("/templates", api.ListTemplates)
			admin.GET("/templates/:id", api.GetTemplate)
			admin.POST("/templates", api.CreateTemplate)
			admin.PUT("/templates/:id", api.UpdateTemplate)
			admin.POST("/uploads/icon", api.UploadIcon)
		}
	}

	return r
}
