package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPaymentRepoTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:payment_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func seedPaymentForUser(t *testing.T, db *gorm.DB, userID uint, orderNo, status string) models.Payment {
	t.Helper()
	order := models.Order{
		OrderNo:      orderNo,
		UserID:       userID,
		Status:       constants.OrderStatusPending,
		Currency:     constants.SiteCurrencyDefault,
		TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(85000)),
		PickupStatus: constants.PickupStatusNotPickedUp,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := models.Payment{
		OrderID:  order.ID,
		Status:   status,
		Currency: constants.SiteCurrencyDefault,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(85000)),
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}

func TestPaymentListAdminFiltersByUser(t *testing.T) {
	db := setupPaymentRepoTest(t)
	repo := NewPaymentRepository(db)

	mine := seedPaymentForUser(t, db, 1, "FP2026031012000101", constants.PaymentStatusPending)
	seedPaymentForUser(t, db, 2, "FP2026031012000102", constants.PaymentStatusPending)

	payments, total, err := repo.ListAdmin(PaymentListFilter{Page: 1, PageSize: 20, UserID: 1})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 1 || len(payments) != 1 {
		t.Fatalf("want 1 payment got total=%d len=%d", total, len(payments))
	}
	if payments[0].ID != mine.ID {
		t.Fatalf("payment id want %d got %d", mine.ID, payments[0].ID)
	}
}

func TestPaymentListAdminFiltersByStatus(t *testing.T) {
	db := setupPaymentRepoTest(t)
	repo := NewPaymentRepository(db)

	seedPaymentForUser(t, db, 1, "FP2026031012000103", constants.PaymentStatusPending)
	paid := seedPaymentForUser(t, db, 1, "FP2026031012000104", constants.PaymentStatusPaid)

	payments, total, err := repo.ListAdmin(PaymentListFilter{Page: 1, PageSize: 20, Status: constants.PaymentStatusPaid})
	if err != nil {
		t.Fatalf("list admin failed: %v", err)
	}
	if total != 1 || len(payments) != 1 || payments[0].ID != paid.ID {
		t.Fatalf("unexpected paid filter result: total=%d payments=%+v", total, payments)
	}
}

func TestPaymentUpdateStatusIfGuardsCurrentStatus(t *testing.T) {
	db := setupPaymentRepoTest(t)
	repo := NewPaymentRepository(db)

	payment := seedPaymentForUser(t, db, 1, "FP2026031012000105", constants.PaymentStatusPending)

	affected, err := repo.UpdateStatusIf(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusPaid, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	// 已经不是 pending，再次按旧状态更新不应命中
	affected, err = repo.UpdateStatusIf(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected want 0 got %d", affected)
	}

	got, err := repo.GetByID(payment.ID)
	if err != nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if got.Status != constants.PaymentStatusPaid {
		t.Fatalf("status want paid got %s", got.Status)
	}
}
