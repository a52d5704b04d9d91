//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.OrderItem{},
		&models.Payment{},
		&models.Order{},
		&models.Bundle{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Bundle{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresBundleSearchCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)

	bundleRepo := NewBundleRepository(db)
	bundle := &models.Bundle{
		Slug:      "pg-snack-box",
		Name:      "节日小食礼盒 Snack Box",
		Price:     models.NewMoneyFromDecimal(decimal.NewFromInt(85000)),
		Currency:  constants.SiteCurrencyDefault,
		IsActive:  true,
		SortOrder: 100,
	}
	if err := bundleRepo.Create(bundle); err != nil {
		t.Fatalf("create bundle failed: %v", err)
	}

	// postgres 下使用 ILIKE，大小写不敏感
	rows, total, err := bundleRepo.List(BundleListFilter{Page: 1, Search: "SNACK"})
	if err != nil {
		t.Fatalf("bundle search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("bundle search want 1 got total=%d len=%d", total, len(rows))
	}

	rows, total, err = bundleRepo.List(BundleListFilter{Page: 1, Search: "pg-snack"})
	if err != nil {
		t.Fatalf("bundle slug search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("bundle slug search want 1 got total=%d len=%d", total, len(rows))
	}
}

func TestPostgresOrderAndPaymentQueries(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	user := &models.User{
		Email:       "pg-tester@example.com",
		DisplayName: "PG Tester",
		Status:      constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	order := &models.Order{
		OrderNo:      "FP2026031012000201",
		UserID:       user.ID,
		Status:       constants.OrderStatusPending,
		Currency:     constants.SiteCurrencyDefault,
		TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(150000)),
		PickupStatus: constants.PickupStatusNotPickedUp,
		CreatedAt:    now,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	payment := &models.Payment{
		OrderID:   order.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(150000)),
		Currency:  constants.SiteCurrencyDefault,
		Status:    constants.PaymentStatusPending,
		CreatedAt: now,
	}
	if err := db.Create(payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}

	orderRepo := NewOrderRepository(db)
	orders, total, err := orderRepo.ListAdmin(OrderListFilter{Page: 1, UserID: user.ID})
	if err != nil {
		t.Fatalf("order list failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("order list want 1 got total=%d len=%d", total, len(orders))
	}

	paymentRepo := NewPaymentRepository(db)
	payments, total, err := paymentRepo.ListAdmin(PaymentListFilter{Page: 1, UserID: user.ID})
	if err != nil {
		t.Fatalf("payment list failed: %v", err)
	}
	if total != 1 || len(payments) != 1 {
		t.Fatalf("payment list want 1 got total=%d len=%d", total, len(payments))
	}
	if payments[0].OrderID != order.ID {
		t.Fatalf("payment order id want %d got %d", order.ID, payments[0].OrderID)
	}
}
