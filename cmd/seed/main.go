package main

import (
	"fmt"

	"github.com/festipick/festipick/internal/config"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加套餐
	bundles := []models.Bundle{
		{
			Slug:        "festival-snack-box",
			Name:        "节日小食礼盒",
			Description: "主题限定小食拼盘，含 6 款现场同款点心。",
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(85000)),
			Currency:    "IDR",
			IsActive:    true,
			SortOrder:   300,
		},
		{
			Slug:        "collector-merch-pack",
			Name:        "收藏周边套装",
			Description: "限量徽章、海报与亚克力立牌组合装。",
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(150000)),
			Currency:    "IDR",
			IsActive:    true,
			SortOrder:   260,
		},
		{
			Slug:        "family-combo",
			Name:        "家庭分享套餐",
			Description: "四人份餐食与饮品组合，适合结伴观演。",
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(320000)),
			Currency:    "IDR",
			IsActive:    true,
			SortOrder:   220,
		},
		{
			Slug:        "vip-backstage-bundle",
			Name:        "VIP 后台体验包",
			Description: "后台导览与签名场刊，数量有限。",
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(500000)),
			Currency:    "IDR",
			IsActive:    true,
			SortOrder:   180,
		},
		{
			Slug:        "retired-spring-pack",
			Name:        "往期春季套装",
			Description: "上一主题季的套装，仅作历史展示。",
			Price:       models.NewMoneyFromDecimal(decimal.NewFromInt(120000)),
			Currency:    "IDR",
			IsActive:    false,
			SortOrder:   100,
		},
	}

	for _, bundle := range bundles {
		var existing models.Bundle
		if err := models.DB.Where("slug = ?", bundle.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&bundle).Error; err != nil {
				stdLog.Printf("Failed to create bundle %s: %v", bundle.Slug, err)
			} else {
				stdLog.Printf("Created bundle: %s", bundle.Slug)
			}
		} else {
			existing.Name = bundle.Name
			existing.Description = bundle.Description
			existing.Price = bundle.Price
			existing.Currency = bundle.Currency
			existing.IsActive = bundle.IsActive
			existing.SortOrder = bundle.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update bundle %s: %v", bundle.Slug, err)
			} else {
				stdLog.Printf("Updated bundle: %s", bundle.Slug)
			}
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 5 Bundles (4 active + 1 retired)")
}
