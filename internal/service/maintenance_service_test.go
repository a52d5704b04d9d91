package service

import (
	"context"
	"testing"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/queue"
	"github.com/festipick/festipick/internal/repository"

	"gorm.io/gorm"
)

func newMaintenanceServiceForTest(t *testing.T, db *gorm.DB) (*MaintenanceService, *OrderService) {
	t.Helper()
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationLogRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	notificationSvc := NewNotificationService(orderRepo, notificationRepo, NewEmailService(nil), queueClient)
	orderSvc := newOrderServiceForTest(t, db)
	maintenanceSvc := NewMaintenanceService(
		orderRepo,
		notificationRepo,
		notificationSvc,
		orderSvc,
		time.UTC,
		60,
		2,
	)
	return maintenanceSvc, orderSvc
}

func setOrderTimes(t *testing.T, db *gorm.DB, orderID uint, createdAt time.Time, expiresAt time.Time) {
	t.Helper()
	if err := db.Model(&models.Order{}).Where("id = ?", orderID).Updates(map[string]interface{}{
		"created_at": createdAt,
		"expires_at": expiresAt,
	}).Error; err != nil {
		t.Fatalf("set order times failed: %v", err)
	}
}

func countNotifications(t *testing.T, db *gorm.DB, orderID uint, category string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.NotificationLog{}).
		Where("order_id = ? AND category = ?", orderID, category).
		Count(&count).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	return count
}

func TestMaintenanceSendsPaymentReminderOnce(t *testing.T) {
	db := setupServiceTest(t)
	maintenanceSvc, orderSvc := newMaintenanceServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	now := time.Now().UTC()
	// 下单已超过提醒阈值但远未到截止时间
	setOrderTimes(t, db, order.ID, now.Add(-2*time.Hour), now.Add(20*time.Hour))

	summary := maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if summary.RemindersSent != 1 {
		t.Fatalf("reminders want 1 got %d", summary.RemindersSent)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", summary.Errors)
	}
	if got := countNotifications(t, db, order.ID, constants.NotificationPaymentReminder); got != 1 {
		t.Fatalf("reminder log count want 1 got %d", got)
	}

	// 重复执行不应再次提醒
	summary = maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if summary.RemindersSent != 0 {
		t.Fatalf("second pass reminders want 0 got %d", summary.RemindersSent)
	}
	if got := countNotifications(t, db, order.ID, constants.NotificationPaymentReminder); got != 1 {
		t.Fatalf("reminder log count want 1 got %d", got)
	}
}

func TestMaintenanceSendsDeadlineWarning(t *testing.T) {
	db := setupServiceTest(t)
	maintenanceSvc, orderSvc := newMaintenanceServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	now := time.Now().UTC()
	// 截止时间落在预警窗口内
	setOrderTimes(t, db, order.ID, now.Add(-30*time.Minute), now.Add(90*time.Minute))

	summary := maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if got := countNotifications(t, db, order.ID, constants.NotificationDeadlineWarning); got != 1 {
		t.Fatalf("warning log count want 1 got %d", got)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", summary.Errors)
	}

	maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if got := countNotifications(t, db, order.ID, constants.NotificationDeadlineWarning); got != 1 {
		t.Fatalf("warning log count want 1 got %d", got)
	}
}

func TestMaintenanceExpiresOverdueOrders(t *testing.T) {
	db := setupServiceTest(t)
	maintenanceSvc, orderSvc := newMaintenanceServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	now := time.Now().UTC()
	setOrderTimes(t, db, order.ID, now.Add(-30*time.Hour), now.Add(-6*time.Hour))

	summary := maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if summary.Expired != 1 {
		t.Fatalf("expired want 1 got %d", summary.Expired)
	}

	got, err := orderSvc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusCanceled {
		t.Fatalf("status want canceled got %s", got.Status)
	}
	if got.Payment.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment status want failed got %s", got.Payment.Status)
	}

	// 立即重复执行应当零处理、零错误
	summary = maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if summary.Expired != 0 {
		t.Fatalf("second pass expired want 0 got %d", summary.Expired)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", summary.Errors)
	}
	if got := countNotifications(t, db, order.ID, constants.NotificationPaymentExpired); got != 1 {
		t.Fatalf("expired log count want 1 got %d", got)
	}
}

func TestMaintenancePickupRemindersPerDayCategory(t *testing.T) {
	db := setupServiceTest(t)
	maintenanceSvc, orderSvc := newMaintenanceServiceForTest(t, db)

	today := makeReadyOrder(t, db, orderSvc)
	tomorrow := makeReadyOrder(t, db, orderSvc)

	now := time.Now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := db.Model(&models.Order{}).Where("id = ?", today.ID).
		Update("pickup_date", startOfToday.Add(18*time.Hour)).Error; err != nil {
		t.Fatalf("set pickup date failed: %v", err)
	}
	if err := db.Model(&models.Order{}).Where("id = ?", tomorrow.ID).
		Update("pickup_date", startOfToday.Add(32*time.Hour)).Error; err != nil {
		t.Fatalf("set pickup date failed: %v", err)
	}

	maintenanceSvc.RunMaintenancePass(context.Background(), now)

	if got := countNotifications(t, db, today.ID, constants.NotificationPickupToday); got != 1 {
		t.Fatalf("pickup_today count want 1 got %d", got)
	}
	if got := countNotifications(t, db, tomorrow.ID, constants.NotificationPickupH1); got != 1 {
		t.Fatalf("pickup_h1 count want 1 got %d", got)
	}
	if got := countNotifications(t, db, today.ID, constants.NotificationPickupH1); got != 0 {
		t.Fatalf("pickup_h1 for today order want 0 got %d", got)
	}

	// 当天重复执行不得再次提醒
	maintenanceSvc.RunMaintenancePass(context.Background(), now)
	if got := countNotifications(t, db, today.ID, constants.NotificationPickupToday); got != 1 {
		t.Fatalf("pickup_today count want 1 got %d", got)
	}
	if got := countNotifications(t, db, tomorrow.ID, constants.NotificationPickupH1); got != 1 {
		t.Fatalf("pickup_h1 count want 1 got %d", got)
	}
}
