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

func setupOrderRepoTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Order{}, &models.OrderItem{}, &models.Payment{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func seedOrderWithPayment(t *testing.T, db *gorm.DB, orderNo, orderStatus, paymentStatus string, expiresAt *time.Time) models.Order {
	t.Helper()
	order := models.Order{
		OrderNo:      orderNo,
		UserID:       1,
		Status:       orderStatus,
		Currency:     constants.SiteCurrencyDefault,
		TotalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(150000)),
		PickupStatus: constants.PickupStatusNotPickedUp,
		ExpiresAt:    expiresAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	payment := models.Payment{
		OrderID:  order.ID,
		Status:   paymentStatus,
		Currency: constants.SiteCurrencyDefault,
		Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(150000)),
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return order
}

func TestUpdateStatusIfGuardsCurrentStatus(t *testing.T) {
	db := setupOrderRepoTest(t)
	repo := NewOrderRepository(db)
	order := seedOrderWithPayment(t, db, "FP2026031012000001", constants.OrderStatusPending, constants.PaymentStatusPending, nil)

	affected, err := repo.UpdateStatusIf(order.ID, constants.OrderStatusPending, constants.OrderStatusConfirmed, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	// 状态已变化，再次按旧状态更新应当不命中
	affected, err = repo.UpdateStatusIf(order.ID, constants.OrderStatusPending, constants.OrderStatusCanceled, nil)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected want 0 got %d", affected)
	}

	got, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusConfirmed {
		t.Fatalf("status want confirmed got %s", got.Status)
	}
}

func TestRedeemPickupTokenSingleUse(t *testing.T) {
	db := setupOrderRepoTest(t)
	repo := NewOrderRepository(db)
	order := seedOrderWithPayment(t, db, "FP2026031012000002", constants.OrderStatusReady, constants.PaymentStatusPaid, nil)

	token := "u7hKcQ2mXfBd91ZsWvA3yTnL5rPeJg0q"
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("pickup_token", token).Error; err != nil {
		t.Fatalf("set token failed: %v", err)
	}

	now := time.Now()
	affected, err := repo.RedeemPickupToken(token, now)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected want 1 got %d", affected)
	}

	affected, err = repo.RedeemPickupToken(token, now)
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("second redeem affected want 0 got %d", affected)
	}

	got, err := repo.GetByPickupToken(token)
	if err != nil {
		t.Fatalf("get by token failed: %v", err)
	}
	if got.Status != constants.OrderStatusCompleted || got.PickupStatus != constants.PickupStatusPickedUp {
		t.Fatalf("unexpected order state: %s / %s", got.Status, got.PickupStatus)
	}
}

func TestListAwaitingPaymentExpired(t *testing.T) {
	db := setupOrderRepoTest(t)
	repo := NewOrderRepository(db)

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := seedOrderWithPayment(t, db, "FP2026031012000003", constants.OrderStatusPending, constants.PaymentStatusPending, &past)
	seedOrderWithPayment(t, db, "FP2026031012000004", constants.OrderStatusPending, constants.PaymentStatusPending, &future)
	seedOrderWithPayment(t, db, "FP2026031012000005", constants.OrderStatusPending, constants.PaymentStatusPaid, &past)

	orders, err := repo.ListAwaitingPaymentExpired(now)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expired count want 1 got %d", len(orders))
	}
	if orders[0].ID != expired.ID {
		t.Fatalf("expired order want %d got %d", expired.ID, orders[0].ID)
	}
}

func TestListAwaitingPaymentExpiringBetween(t *testing.T) {
	db := setupOrderRepoTest(t)
	repo := NewOrderRepository(db)

	now := time.Now()
	soon := now.Add(90 * time.Minute)
	far := now.Add(6 * time.Hour)

	warn := seedOrderWithPayment(t, db, "FP2026031012000006", constants.OrderStatusPending, constants.PaymentStatusPending, &soon)
	seedOrderWithPayment(t, db, "FP2026031012000007", constants.OrderStatusPending, constants.PaymentStatusPending, &far)

	orders, err := repo.ListAwaitingPaymentExpiringBetween(now, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list expiring failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != warn.ID {
		t.Fatalf("unexpected expiring result: %+v", orders)
	}
}

func TestListReadyWithPickupBetween(t *testing.T) {
	db := setupOrderRepoTest(t)
	repo := NewOrderRepository(db)

	today := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	ready := seedOrderWithPayment(t, db, "FP2026031012000008", constants.OrderStatusReady, constants.PaymentStatusPaid, nil)
	if err := db.Model(&models.Order{}).Where("id = ?", ready.ID).Update("pickup_date", today).Error; err != nil {
		t.Fatalf("set pickup date failed: %v", err)
	}
	other := seedOrderWithPayment(t, db, "FP2026031012000009", constants.OrderStatusReady, constants.PaymentStatusPaid, nil)
	if err := db.Model(&models.Order{}).Where("id = ?", other.ID).Update("pickup_date", tomorrow).Error; err != nil {
		t.Fatalf("set pickup date failed: %v", err)
	}

	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	orders, err := repo.ListReadyWithPickupBetween(dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list ready failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != ready.ID {
		t.Fatalf("unexpected ready result: %+v", orders)
	}
}
