package service

import (
	"strings"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService 支付服务
type PaymentService struct {
	orderRepo        repository.OrderRepository
	paymentRepo      repository.PaymentRepository
	eventRepo        repository.OrderEventRepository
	notificationRepo repository.NotificationLogRepository
	notificationSvc  *NotificationService
	orderService     *OrderService
}

// NewPaymentService 创建支付服务
func NewPaymentService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	eventRepo repository.OrderEventRepository,
	notificationRepo repository.NotificationLogRepository,
	notificationSvc *NotificationService,
	orderService *OrderService,
) *PaymentService {
	return &PaymentService{
		orderRepo:        orderRepo,
		paymentRepo:      paymentRepo,
		eventRepo:        eventRepo,
		notificationRepo: notificationRepo,
		notificationSvc:  notificationSvc,
		orderService:     orderService,
	}
}

// GetPayment 获取支付记录
func (s *PaymentService) GetPayment(id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(id)
	if err != nil {
		return nil, ErrPaymentFetchFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetPaymentByOrderID 获取订单支付记录
func (s *PaymentService) GetPaymentByOrderID(orderID uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByOrderID(orderID)
	if err != nil {
		return nil, ErrPaymentFetchFailed
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments 管理端支付列表
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	payments, total, err := s.paymentRepo.ListAdmin(filter)
	if err != nil {
		return nil, 0, ErrPaymentFetchFailed
	}
	return payments, total, nil
}

// SubmitProof 顾客提交支付凭证，不改变支付状态
func (s *PaymentService) SubmitProof(orderNo, proofURL string) (*models.Payment, error) {
	proofURL = strings.TrimSpace(proofURL)
	if proofURL == "" {
		return nil, ErrPaymentProofRequired
	}
	order, err := s.orderService.GetOrderByNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, ErrPaymentNotFound
	}
	if order.Payment.Status != constants.PaymentStatusPending {
		return nil, ErrPaymentStatusInvalid
	}

	payment := order.Payment
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		payment.ProofURL = proofURL
		if err := s.paymentRepo.WithTx(tx).Update(payment); err != nil {
			return err
		}
		event := &models.OrderEvent{
			OrderID: order.ID,
			Actor:   constants.ActorCustomer,
			ActorID: order.UserID,
			Action:  constants.OrderEventProofSubmitted,
			Note:    proofURL,
		}
		return s.eventRepo.WithTx(tx).Create(event)
	})
	if err != nil {
		logger.Errorw("payment_submit_proof_failed", "order_id", order.ID, "error", err)
		return nil, ErrPaymentUpdateFailed
	}
	return payment, nil
}

// MarkPaid 管理员确认收款，要求已有支付凭证
func (s *PaymentService) MarkPaid(paymentID uint, actorID uint, method string) (*models.Payment, error) {
	payment, err := s.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == constants.PaymentStatusPaid {
		return payment, nil
	}
	if !isPaymentTransitionAllowed(payment.Status, constants.PaymentStatusPaid) {
		return nil, ErrPaymentStatusInvalid
	}
	if strings.TrimSpace(payment.ProofURL) == "" {
		return nil, ErrPaymentProofRequired
	}

	order, err := s.orderService.GetOrder(payment.OrderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{"paid_at": now}
	if method = strings.TrimSpace(method); method != "" {
		updates["method"] = method
	}

	var log *models.NotificationLog
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(payment.ID, payment.Status, constants.PaymentStatusPaid, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}
		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      constants.ActorAdmin,
			ActorID:    actorID,
			Action:     constants.OrderEventPaymentPaid,
			FromStatus: payment.Status,
			ToStatus:   constants.PaymentStatusPaid,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		log, err = s.recordNotification(tx, order, constants.NotificationPaymentPaid, "")
		return err
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("payment_mark_paid_failed", "payment_id", payment.ID, "error", err)
		return nil, ErrPaymentUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return s.GetPayment(payment.ID)
}

// MarkFailed 标记支付失败，必须填写原因；归属订单仍待处理时联动取消
func (s *PaymentService) MarkFailed(paymentID uint, actorID uint, reason string) (*models.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	payment, err := s.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == constants.PaymentStatusFailed {
		return payment, nil
	}
	if !isPaymentTransitionAllowed(payment.Status, constants.PaymentStatusFailed) {
		return nil, ErrPaymentStatusInvalid
	}

	order, err := s.orderService.GetOrder(payment.OrderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var log *models.NotificationLog
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, map[string]interface{}{
			"fail_reason": reason,
			"failed_at":   now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}

		if order.Status == constants.OrderStatusPending {
			affected, err := s.orderRepo.WithTx(tx).UpdateStatusIf(order.ID, constants.OrderStatusPending, constants.OrderStatusCanceled, map[string]interface{}{
				"canceled_at": now,
			})
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrOrderStatusStale
			}
			cancelEvent := &models.OrderEvent{
				OrderID:    order.ID,
				Actor:      constants.ActorAdmin,
				ActorID:    actorID,
				Action:     constants.OrderEventCanceled,
				FromStatus: constants.OrderStatusPending,
				ToStatus:   constants.OrderStatusCanceled,
				Note:       reason,
			}
			if err := s.eventRepo.WithTx(tx).Create(cancelEvent); err != nil {
				return err
			}
		}

		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      constants.ActorAdmin,
			ActorID:    actorID,
			Action:     constants.OrderEventPaymentFailed,
			FromStatus: constants.PaymentStatusPending,
			ToStatus:   constants.PaymentStatusFailed,
			Note:       reason,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		log, err = s.recordNotification(tx, order, constants.NotificationPaymentFailed, reason)
		return err
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("payment_mark_failed_failed", "payment_id", payment.ID, "error", err)
		return nil, ErrPaymentUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return s.GetPayment(payment.ID)
}

// Refund 退款，仅限已支付记录，订单记录保留
func (s *PaymentService) Refund(paymentID uint, actorID uint, amount decimal.Decimal, reason, reference string) (*models.Payment, error) {
	payment, err := s.GetPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status == constants.PaymentStatusRefunded {
		return payment, nil
	}
	if payment.Status != constants.PaymentStatusPaid {
		return nil, ErrRefundNotAllowed
	}
	if amount.LessThanOrEqual(decimal.Zero) || amount.GreaterThan(payment.Amount.Decimal) {
		return nil, ErrRefundAmountInvalid
	}

	order, err := s.orderService.GetOrder(payment.OrderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reason = strings.TrimSpace(reason)
	updates := map[string]interface{}{
		"refund_amount": models.NewMoneyFromDecimal(amount),
		"refund_reason": reason,
		"refunded_at":   now,
	}
	if reference = strings.TrimSpace(reference); reference != "" {
		updates["refund_reference"] = reference
	}

	var log *models.NotificationLog
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(payment.ID, constants.PaymentStatusPaid, constants.PaymentStatusRefunded, updates)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}
		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      constants.ActorAdmin,
			ActorID:    actorID,
			Action:     constants.OrderEventPaymentRefunded,
			FromStatus: constants.PaymentStatusPaid,
			ToStatus:   constants.PaymentStatusRefunded,
			Note:       reason,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		log, err = s.recordNotification(tx, order, constants.NotificationPaymentRefunded, reason)
		return err
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("payment_refund_failed", "payment_id", payment.ID, "error", err)
		return nil, ErrPaymentUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return s.GetPayment(payment.ID)
}

func (s *PaymentService) recordNotification(tx *gorm.DB, order *models.Order, category, note string) (*models.NotificationLog, error) {
	log := &models.NotificationLog{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Category: category,
		Channel:  "email",
	}
	if note = strings.TrimSpace(note); note != "" {
		log.Payload = models.JSON{"note": note}
	}
	if err := s.notificationRepo.WithTx(tx).Create(log); err != nil {
		return nil, err
	}
	return log, nil
}
