package handler

import (
	"log"
	"time"

	"github.com/vitalog/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db        *gorm.DB
	catalog   *service.CatalogService
	missions  *service.MissionService
	tracking  *service.TrackingService
	uploadDir string
	uploadURL string
}

// NewAPI constructs a handler set with shared services.
// 打点服务的钩子在这里接到任务引擎：每次打点写入后同步触发 AutoUpdate，
// 失败只记日志，打点链路不受影响。
func NewAPI(db *gorm.DB, uploadDir, uploadURL string) *API {
	missions := service.NewMissionService(db)
	tracking := service.NewTrackingService(db)

	tracking.SetHook(func(userID uint, date time.Time, metricKey service.MetricKey) {
		if err := missions.AutoUpdate(userID, date, metricKey); err != nil {
			log.Printf("auto update failed for user %d metric %s: %v", userID, metricKey, err)
		}
	})

	return &API{
		db:        db,
		catalog:   service.NewCatalogService(db),
		missions:  missions,
		tracking:  tracking,
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Tracking 暴露打点写入通道，供外部录入 API 与脚本复用同一条钩子链路
func (a *API) Tracking() *service.TrackingService {
	return a.tracking
}
