package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/handler"
	"github.com/vitalog/internal/router"
)

func main() {
	// 本地开发时允许从 .env 读取配置，文件不存在则忽略
	_ = godotenv.Load()

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 首次部署时按环境变量引导管理员账号
	if err := db.EnsureUser(cfg.BootstrapUserName, cfg.BootstrapPassword, cfg.DefaultTimezone); err != nil {
		log.Fatalf("failed to ensure bootstrap user: %v", err)
	}

	// 设置并运行 Gin 服务器
	api := handler.NewAPI(db.DB, cfg.UploadDir, cfg.UploadURLPath)
	r := router.SetupRouter(api, cfg)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
