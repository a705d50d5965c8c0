package main

import (
	"fmt"
	"log"
	"time"

	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
	"golang.org/x/crypto/bcrypt"
)

// 测试数据生成器：创建演示用户并回填最近一周的打点与任务数据
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	user := ensureDemoUser()
	templates := loadTemplates()
	if len(templates) == 0 {
		log.Fatal("任务目录为空，请先运行 scripts/seed_catalog")
	}

	missions := service.NewMissionService(db.DB)
	tracking := service.NewTrackingService(db.DB)
	tracking.SetHook(func(userID uint, date time.Time, metricKey service.MetricKey) {
		if err := missions.AutoUpdate(userID, date, metricKey); err != nil {
			log.Printf("自动更新失败: %v", err)
		}
	})

	now := time.Now()
	for offset := 6; offset >= 0; offset-- {
		date := now.AddDate(0, 0, -offset)

		for _, template := range templates {
			if _, err := missions.Accept(user.ID, template.ID, date); err != nil {
				// 重复执行脚本时实例已存在，忽略冲突
				continue
			}
		}

		// 饮水：每天 3~5 次
		for i := 0; i < 3+offset%3; i++ {
			if _, err := tracking.RecordWater(user.ID, date, 400+float64(i)*100); err != nil {
				log.Fatal("生成饮水数据失败:", err)
			}
		}

		if _, err := tracking.RecordFitness(user.ID, date, "walking", float64(6000+offset*800), 35, 220); err != nil {
			log.Fatal("生成运动数据失败:", err)
		}
		if _, err := tracking.RecordSleep(user.ID, date, float64(360+offset*15)); err != nil {
			log.Fatal("生成睡眠数据失败:", err)
		}
		if _, err := tracking.RecordMood(user.ID, date, float64(5+offset%4), "测试心情"); err != nil {
			log.Fatal("生成心情数据失败:", err)
		}
		if _, err := tracking.RecordMeal(user.ID, date, "lunch", 650); err != nil {
			log.Fatal("生成饮食数据失败:", err)
		}
	}

	fmt.Printf("测试数据生成完成，演示账号: demo / demo123\n")
}

func ensureDemoUser() *db.User {
	var user db.User
	if err := db.DB.Where("username = ?", "demo").First(&user).Error; err == nil {
		return &user
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}

	user = db.User{Username: "demo", Password: string(hashed), Nickname: "演示用户", Timezone: "Asia/Shanghai"}
	if err := db.DB.Create(&user).Error; err != nil {
		log.Fatal("创建演示用户失败:", err)
	}
	return &user
}

func loadTemplates() []db.MissionTemplate {
	var templates []db.MissionTemplate
	if err := db.DB.Where("status = ?", "active").Find(&templates).Error; err != nil {
		log.Fatal("加载任务目录失败:", err)
	}
	return templates
}
