package main

import (
	"fmt"
	"log"

	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

// 默认任务目录初始化脚本：按标题幂等，已存在则跳过
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	catalog := service.NewCatalogService(db.DB)

	defaults := []service.TemplateInput{
		{
			Title:       "每日 2L 饮水",
			Description: "一天喝满 **2000ml** 水，保持身体水分充足",
			Category:    db.CategoryHealthTracking,
			MetricKey:   string(service.MetricWaterML),
			Unit:        "ml",
			TargetValue: 2000,
			Points:      20,
		},
		{
			Title:       "日行万步",
			Description: "今天走满 **一万步**",
			Category:    db.CategoryFitness,
			MetricKey:   string(service.MetricSteps),
			Unit:        "步",
			TargetValue: 10000,
			Points:      50,
		},
		{
			Title:       "运动半小时",
			Description: "累计运动 30 分钟，任何运动类型都算",
			Category:    db.CategoryFitness,
			MetricKey:   string(service.MetricExerciseMinutes),
			Unit:        "分钟",
			TargetValue: 30,
			Points:      30,
		},
		{
			Title:       "睡足七小时",
			Description: "单次睡眠达到 **420 分钟**",
			Category:    db.CategoryHealthTracking,
			MetricKey:   string(service.MetricSleepMinutes),
			Unit:        "分钟",
			TargetValue: 420,
			Points:      30,
		},
		{
			Title:       "记录今日心情",
			Description: "完成一次心情打分，关注自己的情绪状态",
			Category:    db.CategoryMentalHealth,
			MetricKey:   string(service.MetricMoodScore),
			Unit:        "分",
			TargetValue: 1,
			Points:      10,
		},
		{
			Title:       "记录三餐",
			Description: "记录今日饮食，摄入不少于 1200 千卡",
			Category:    db.CategoryNutrition,
			MetricKey:   string(service.MetricMealCalories),
			Unit:        "千卡",
			TargetValue: 1200,
			Points:      20,
		},
	}

	created := 0
	for _, input := range defaults {
		var count int64
		if err := db.DB.Model(&db.MissionTemplate{}).Where("title = ?", input.Title).Count(&count).Error; err != nil {
			log.Fatal("查询模板失败:", err)
		}
		if count > 0 {
			continue
		}

		if _, err := catalog.Create(input); err != nil {
			log.Fatal("创建模板失败:", err)
		}
		created++
	}

	fmt.Printf("目录初始化完成，新增 %d 个任务模板\n", created)
}
