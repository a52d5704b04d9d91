package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/queue"
	"github.com/festipick/festipick/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupServiceTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Bundle{}, &models.Order{}, &models.OrderItem{},
		&models.Payment{}, &models.OrderEvent{}, &models.NotificationLog{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return db
}

func newOrderServiceForTest(t *testing.T, db *gorm.DB) *OrderService {
	t.Helper()
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationLogRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	notificationSvc := NewNotificationService(orderRepo, notificationRepo, NewEmailService(nil), queueClient)
	return NewOrderService(
		orderRepo,
		repository.NewPaymentRepository(db),
		repository.NewBundleRepository(db),
		repository.NewUserRepository(db),
		repository.NewOrderEventRepository(db),
		notificationRepo,
		notificationSvc,
		time.UTC,
		24,
	)
}

func seedBundle(t *testing.T, db *gorm.DB, slug string, price int64) models.Bundle {
	t.Helper()
	bundle := models.Bundle{
		Slug:     slug,
		Name:     "测试套餐 " + slug,
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
		Currency: constants.SiteCurrencyDefault,
		IsActive: true,
	}
	if err := db.Create(&bundle).Error; err != nil {
		t.Fatalf("create bundle failed: %v", err)
	}
	return bundle
}

func createTestOrder(t *testing.T, db *gorm.DB, svc *OrderService) *models.Order {
	t.Helper()
	bundle := seedBundle(t, db, fmt.Sprintf("bundle-%d", time.Now().UnixNano()), 50000)
	order, err := svc.CreateOrder(CreateOrderInput{
		Email:       "buyer@example.com",
		DisplayName: "测试买家",
		Items:       []CreateOrderItem{{BundleID: bundle.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func setPaymentStatus(t *testing.T, db *gorm.DB, paymentID uint, status string) {
	t.Helper()
	if err := db.Model(&models.Payment{}).Where("id = ?", paymentID).Update("status", status).Error; err != nil {
		t.Fatalf("set payment status failed: %v", err)
	}
}

func TestCreateOrderCreatesPendingPayment(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)

	order := createTestOrder(t, db, svc)

	if !strings.HasPrefix(order.OrderNo, constants.OrderNoPrefix) {
		t.Fatalf("order no want prefix %s got %s", constants.OrderNoPrefix, order.OrderNo)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("status want pending got %s", order.Status)
	}
	if order.Payment == nil || order.Payment.Status != constants.PaymentStatusPending {
		t.Fatalf("payment want pending got %+v", order.Payment)
	}
	if order.TotalAmount.String() != "100000.00" {
		t.Fatalf("total want 100000.00 got %s", order.TotalAmount.String())
	}
	if order.ExpiresAt == nil {
		t.Fatal("expires_at not set")
	}
	if order.BatchID != constants.BatchMorning && order.BatchID != constants.BatchEvening {
		t.Fatalf("unexpected batch id %d", order.BatchID)
	}

	var eventCount int64
	if err := db.Model(&models.OrderEvent{}).Where("order_id = ?", order.ID).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("event count want 1 got %d", eventCount)
	}
}

func TestCreateOrderRejectsInvalidItems(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)

	if _, err := svc.CreateOrder(CreateOrderInput{Email: "buyer@example.com"}); err != ErrInvalidOrderItem {
		t.Fatalf("want ErrInvalidOrderItem got %v", err)
	}
	if _, err := svc.CreateOrder(CreateOrderInput{
		Email: "buyer@example.com",
		Items: []CreateOrderItem{{BundleID: 1, Quantity: 0}},
	}); err != ErrInvalidOrderItem {
		t.Fatalf("want ErrInvalidOrderItem got %v", err)
	}
	if _, err := svc.CreateOrder(CreateOrderInput{
		Email: "not-an-email",
		Items: []CreateOrderItem{{BundleID: 1, Quantity: 1}},
	}); err != ErrInvalidEmail {
		t.Fatalf("want ErrInvalidEmail got %v", err)
	}
}

func TestConfirmOrderRequiresPaidPayment(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)

	if _, err := svc.ConfirmOrder(order.ID, 1); err != ErrOrderNotPayable {
		t.Fatalf("want ErrOrderNotPayable got %v", err)
	}

	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)

	confirmed, err := svc.ConfirmOrder(order.ID, 1)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != constants.OrderStatusConfirmed {
		t.Fatalf("status want confirmed got %s", confirmed.Status)
	}
	if confirmed.ConfirmedAt == nil {
		t.Fatal("confirmed_at not set")
	}

	// 重复确认应幂等返回
	again, err := svc.ConfirmOrder(order.ID, 1)
	if err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if again.Status != constants.OrderStatusConfirmed {
		t.Fatalf("repeat status want confirmed got %s", again.Status)
	}

	var notificationCount int64
	if err := db.Model(&models.NotificationLog{}).
		Where("order_id = ? AND category = ?", order.ID, constants.NotificationOrderConfirmed).
		Count(&notificationCount).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if notificationCount != 1 {
		t.Fatalf("notification count want 1 got %d", notificationCount)
	}
}

func TestMarkDelayedRequiresReason(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)

	if _, err := svc.StartPreparation(order.ID, 1, nil); err != nil {
		t.Fatalf("start preparation failed: %v", err)
	}

	if _, err := svc.MarkDelayed(order.ID, 1, "  "); err != ErrReasonRequired {
		t.Fatalf("want ErrReasonRequired got %v", err)
	}

	delayed, err := svc.MarkDelayed(order.ID, 1, "供应商延迟发货")
	if err != nil {
		t.Fatalf("mark delayed failed: %v", err)
	}
	if delayed.Status != constants.OrderStatusProcessing {
		t.Fatalf("status want processing got %s", delayed.Status)
	}
}

func TestStartPreparationRecordsEstimatedReadyTime(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)

	estimated := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	processing, err := svc.StartPreparation(order.ID, 1, &estimated)
	if err != nil {
		t.Fatalf("start preparation failed: %v", err)
	}
	if processing.Status != constants.OrderStatusProcessing {
		t.Fatalf("status want processing got %s", processing.Status)
	}

	var event models.OrderEvent
	if err := db.Where("order_id = ? AND action = ?", order.ID, constants.OrderEventPreparationStarted).
		First(&event).Error; err != nil {
		t.Fatalf("load preparation event failed: %v", err)
	}
	if !strings.Contains(event.Note, "预计完成时间") {
		t.Fatalf("event note should carry estimated ready time, got %q", event.Note)
	}
	if !strings.Contains(event.Note, "2026-03-10 15:30") {
		t.Fatalf("event note should format estimated ready time, got %q", event.Note)
	}
}

func TestMarkDelayedRejectsConcurrentlyCanceledOrder(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)
	if _, err := svc.StartPreparation(order.ID, 1, nil); err != nil {
		t.Fatalf("start preparation failed: %v", err)
	}

	// 第二个库模拟读到备货中之后、事务执行之前订单已被并发取消
	staleDB := setupServiceTest(t)
	t.Cleanup(func() { models.DB = db })
	canceled := models.Order{
		OrderNo:      order.OrderNo,
		UserID:       order.UserID,
		Status:       constants.OrderStatusCanceled,
		Currency:     order.Currency,
		TotalAmount:  order.TotalAmount,
		PickupStatus: order.PickupStatus,
	}
	canceled.ID = order.ID
	if err := staleDB.Create(&canceled).Error; err != nil {
		t.Fatalf("seed canceled order failed: %v", err)
	}

	if _, err := svc.MarkDelayed(order.ID, 1, "供应商延迟发货"); err != ErrOrderStatusStale {
		t.Fatalf("want ErrOrderStatusStale got %v", err)
	}

	var eventCount int64
	if err := staleDB.Model(&models.OrderEvent{}).
		Where("order_id = ? AND action = ?", order.ID, constants.OrderEventDelayed).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count delayed events failed: %v", err)
	}
	if eventCount != 0 {
		t.Fatalf("stale delay should not record event, got %d", eventCount)
	}
}

func TestTransitionRetryRechecksPaymentGuard(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusRefunded)

	// 携带过期状态触发条件更新失败，重读后支付已退款，守卫必须再次拦截
	stale, err := svc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	stale.Status = constants.OrderStatusProcessing

	_, err = svc.transitionWithRetry(stale, constants.OrderStatusConfirmed, transitionSpec{
		Actor:    constants.ActorAdmin,
		ActorID:  1,
		Action:   constants.OrderEventConfirmed,
		Category: constants.NotificationOrderConfirmed,
		Guard:    orderPaymentPaidGuard,
	})
	if err != ErrOrderNotPayable {
		t.Fatalf("want ErrOrderNotPayable got %v", err)
	}

	current, err := svc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if current.Status != constants.OrderStatusPending {
		t.Fatalf("order should stay pending, got %s", current.Status)
	}
}

func TestStartPreparationRequiresPaidPayment(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)

	if _, err := svc.StartPreparation(order.ID, 1, nil); err != ErrOrderNotPayable {
		t.Fatalf("want ErrOrderNotPayable got %v", err)
	}
}

func TestMarkReadyIssuesTokenAndPickupWindow(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)

	if _, err := svc.MarkReady(order.ID, 1, "A馆入口", ""); err != ErrOrderStatusInvalid {
		t.Fatalf("want ErrOrderStatusInvalid got %v", err)
	}

	if _, err := svc.StartPreparation(order.ID, 1, nil); err != nil {
		t.Fatalf("start preparation failed: %v", err)
	}

	ready, err := svc.MarkReady(order.ID, 1, "A馆入口", "")
	if err != nil {
		t.Fatalf("mark ready failed: %v", err)
	}
	if ready.Status != constants.OrderStatusReady {
		t.Fatalf("status want ready got %s", ready.Status)
	}
	if ready.PickupToken == nil || *ready.PickupToken == "" {
		t.Fatal("pickup token not issued")
	}
	if ready.PickupDate == nil {
		t.Fatal("pickup date not assigned")
	}
	if ready.PickupLocation != "A馆入口" {
		t.Fatalf("pickup location want A馆入口 got %s", ready.PickupLocation)
	}
	if ready.PickupHours == "" {
		t.Fatal("pickup hours not assigned")
	}
	if ready.ReadyAt == nil {
		t.Fatal("ready_at not set")
	}
}

func TestCancelPaidOrderRejected(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)

	if _, err := svc.CancelOrder(order.ID, constants.ActorAdmin, 1, "不想要了"); err != ErrOrderNotCancelable {
		t.Fatalf("want ErrOrderNotCancelable got %v", err)
	}
}

func TestCancelPendingOrderFailsPayment(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)

	canceled, err := svc.CancelOrder(order.ID, constants.ActorCustomer, order.UserID, "不想要了")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if canceled.Status != constants.OrderStatusCanceled {
		t.Fatalf("status want canceled got %s", canceled.Status)
	}
	if canceled.Payment.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment status want failed got %s", canceled.Payment.Status)
	}
	if canceled.CanceledAt == nil {
		t.Fatal("canceled_at not set")
	}
}

func TestCancelProcessingOrderRejected(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)
	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)
	if _, err := svc.StartPreparation(order.ID, 1, nil); err != nil {
		t.Fatalf("start preparation failed: %v", err)
	}

	if _, err := svc.CancelOrder(order.ID, constants.ActorAdmin, 1, ""); err != ErrOrderStatusInvalid {
		t.Fatalf("want ErrOrderStatusInvalid got %v", err)
	}
}

func TestExpireUnpaidOrderIdempotent(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)

	past := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Update("expires_at", past).Error; err != nil {
		t.Fatalf("set expires_at failed: %v", err)
	}

	now := time.Now()
	expired, err := svc.ExpireUnpaidOrder(order.ID, now)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if expired.Status != constants.OrderStatusCanceled {
		t.Fatalf("status want canceled got %s", expired.Status)
	}
	if expired.Payment.Status != constants.PaymentStatusFailed {
		t.Fatalf("payment status want failed got %s", expired.Payment.Status)
	}

	// 再次处理同一订单应因状态不匹配而拒绝，状态保持不变
	if _, err := svc.ExpireUnpaidOrder(order.ID, now); err != ErrOrderStatusInvalid {
		t.Fatalf("second expire want ErrOrderStatusInvalid got %v", err)
	}

	var notificationCount int64
	if err := db.Model(&models.NotificationLog{}).
		Where("order_id = ? AND category = ?", order.ID, constants.NotificationPaymentExpired).
		Count(&notificationCount).Error; err != nil {
		t.Fatalf("count notifications failed: %v", err)
	}
	if notificationCount != 1 {
		t.Fatalf("notification count want 1 got %d", notificationCount)
	}
}

func TestExpireUnpaidOrderBeforeDeadlineRejected(t *testing.T) {
	db := setupServiceTest(t)
	svc := newOrderServiceForTest(t, db)
	order := createTestOrder(t, db, svc)

	if _, err := svc.ExpireUnpaidOrder(order.ID, time.Now()); err != ErrOrderStatusInvalid {
		t.Fatalf("want ErrOrderStatusInvalid got %v", err)
	}
}
