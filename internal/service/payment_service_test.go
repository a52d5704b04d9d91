package service

import (
	"testing"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/queue"
	"github.com/festipick/festipick/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newPaymentServiceForTest(t *testing.T, db *gorm.DB) (*PaymentService, *OrderService) {
	t.Helper()
	orderRepo := repository.NewOrderRepository(db)
	notificationRepo := repository.NewNotificationLogRepository(db)
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	notificationSvc := NewNotificationService(orderRepo, notificationRepo, NewEmailService(nil), queueClient)
	orderSvc := newOrderServiceForTest(t, db)
	paymentSvc := NewPaymentService(
		orderRepo,
		repository.NewPaymentRepository(db),
		repository.NewOrderEventRepository(db),
		notificationRepo,
		notificationSvc,
		orderSvc,
	)
	return paymentSvc, orderSvc
}

func TestSubmitProofRecordsURL(t *testing.T) {
	db := setupServiceTest(t)
	paymentSvc, orderSvc := newPaymentServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	if _, err := paymentSvc.SubmitProof(order.OrderNo, ""); err != ErrPaymentProofRequired {
		t.Fatalf("want ErrPaymentProofRequired got %v", err)
	}

	payment, err := paymentSvc.SubmitProof(order.OrderNo, "https://files.example.com/proof/abc.jpg")
	if err != nil {
		t.Fatalf("submit proof failed: %v", err)
	}
	if payment.ProofURL != "https://files.example.com/proof/abc.jpg" {
		t.Fatalf("proof url not recorded: %s", payment.ProofURL)
	}
	if payment.Status != constants.PaymentStatusPending {
		t.Fatalf("status want pending got %s", payment.Status)
	}
}

func TestMarkPaidRequiresProof(t *testing.T) {
	db := setupServiceTest(t)
	paymentSvc, orderSvc := newPaymentServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	if _, err := paymentSvc.MarkPaid(order.Payment.ID, 1, "bank_transfer"); err != ErrPaymentProofRequired {
		t.Fatalf("want ErrPaymentProofRequired got %v", err)
	}

	if _, err := paymentSvc.SubmitProof(order.OrderNo, "https://files.example.com/proof/abc.jpg"); err != nil {
		t.Fatalf("submit proof failed: %v", err)
	}

	paid, err := paymentSvc.MarkPaid(order.Payment.ID, 1, "bank_transfer")
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if paid.Status != constants.PaymentStatusPaid {
		t.Fatalf("status want paid got %s", paid.Status)
	}
	if paid.PaidAt == nil {
		t.Fatal("paid_at not set")
	}
	if paid.Method != "bank_transfer" {
		t.Fatalf("method want bank_transfer got %s", paid.Method)
	}

	// 重复确认收款应幂等返回
	again, err := paymentSvc.MarkPaid(order.Payment.ID, 1, "")
	if err != nil {
		t.Fatalf("repeat mark paid failed: %v", err)
	}
	if again.Status != constants.PaymentStatusPaid {
		t.Fatalf("repeat status want paid got %s", again.Status)
	}
}

func TestMarkFailedCancelsPendingOrder(t *testing.T) {
	db := setupServiceTest(t)
	paymentSvc, orderSvc := newPaymentServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	if _, err := paymentSvc.MarkFailed(order.Payment.ID, 1, ""); err != ErrReasonRequired {
		t.Fatalf("want ErrReasonRequired got %v", err)
	}

	failed, err := paymentSvc.MarkFailed(order.Payment.ID, 1, "转账金额不符")
	if err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}
	if failed.Status != constants.PaymentStatusFailed {
		t.Fatalf("status want failed got %s", failed.Status)
	}
	if failed.FailReason != "转账金额不符" {
		t.Fatalf("fail reason not recorded: %s", failed.FailReason)
	}

	got, err := orderSvc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusCanceled {
		t.Fatalf("order status want canceled got %s", got.Status)
	}
}

func TestMarkFailedIsTerminal(t *testing.T) {
	db := setupServiceTest(t)
	paymentSvc, orderSvc := newPaymentServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	if _, err := paymentSvc.MarkFailed(order.Payment.ID, 1, "转账金额不符"); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	// 失败为终态，不允许再标记已支付
	if _, err := paymentSvc.SubmitProof(order.OrderNo, "https://files.example.com/proof/late.jpg"); err != ErrPaymentStatusInvalid {
		t.Fatalf("want ErrPaymentStatusInvalid got %v", err)
	}
	if _, err := paymentSvc.MarkPaid(order.Payment.ID, 1, ""); err != ErrPaymentStatusInvalid {
		t.Fatalf("want ErrPaymentStatusInvalid got %v", err)
	}
}

func TestRefundOnlyPaidPayments(t *testing.T) {
	db := setupServiceTest(t)
	paymentSvc, orderSvc := newPaymentServiceForTest(t, db)
	order := createTestOrder(t, db, orderSvc)

	amount := decimal.NewFromInt(100000)
	if _, err := paymentSvc.Refund(order.Payment.ID, 1, amount, "活动取消", ""); err != ErrRefundNotAllowed {
		t.Fatalf("want ErrRefundNotAllowed got %v", err)
	}

	setPaymentStatus(t, db, order.Payment.ID, constants.PaymentStatusPaid)

	if _, err := paymentSvc.Refund(order.Payment.ID, 1, decimal.Zero, "活动取消", ""); err != ErrRefundAmountInvalid {
		t.Fatalf("want ErrRefundAmountInvalid got %v", err)
	}
	if _, err := paymentSvc.Refund(order.Payment.ID, 1, decimal.NewFromInt(999999), "活动取消", ""); err != ErrRefundAmountInvalid {
		t.Fatalf("want ErrRefundAmountInvalid got %v", err)
	}

	refunded, err := paymentSvc.Refund(order.Payment.ID, 1, amount, "活动取消", "RF20260310001")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != constants.PaymentStatusRefunded {
		t.Fatalf("status want refunded got %s", refunded.Status)
	}
	if refunded.RefundedAt == nil {
		t.Fatal("refunded_at not set")
	}
	if refunded.RefundAmount.String() != "100000.00" {
		t.Fatalf("refund amount want 100000.00 got %s", refunded.RefundAmount.String())
	}

	// 退款后订单记录保留，状态不回退
	got, err := orderSvc.GetOrder(order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if got.Status != constants.OrderStatusPending {
		t.Fatalf("order status want pending got %s", got.Status)
	}

	var events []models.OrderEvent
	if err := db.Where("order_id = ? AND action = ?", order.ID, constants.OrderEventPaymentRefunded).Find(&events).Error; err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("refund event count want 1 got %d", len(events))
	}
}
