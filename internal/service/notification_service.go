package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/queue"
	"github.com/festipick/festipick/internal/repository"

	"github.com/hibiken/asynq"
)

// NotificationService 订单通知服务
type NotificationService struct {
	orderRepo        repository.OrderRepository
	notificationRepo repository.NotificationLogRepository
	emailService     *EmailService
	queueClient      *queue.Client
}

// NewNotificationService 创建通知服务
func NewNotificationService(
	orderRepo repository.OrderRepository,
	notificationRepo repository.NotificationLogRepository,
	emailService *EmailService,
	queueClient *queue.Client,
) *NotificationService {
	return &NotificationService{
		orderRepo:        orderRepo,
		notificationRepo: notificationRepo,
		emailService:     emailService,
		queueClient:      queueClient,
	}
}

// Enqueue 入队通知投递任务（尽力而为，失败只记录日志）
func (s *NotificationService) Enqueue(log *models.NotificationLog) {
	if s == nil || log == nil || log.ID == 0 {
		return
	}
	if !s.queueClient.Enabled() {
		return
	}
	payload := queue.NotificationDispatchPayload{
		NotificationID: log.ID,
		OrderID:        log.OrderID,
		Category:       log.Category,
	}
	if err := s.queueClient.EnqueueNotificationDispatch(payload, asynq.MaxRetry(5)); err != nil {
		logger.Warnw("notification_enqueue_failed",
			"notification_id", log.ID,
			"order_id", log.OrderID,
			"category", log.Category,
			"error", err,
		)
	}
}

// Dispatch 处理通知投递任务
func (s *NotificationService) Dispatch(ctx context.Context, payload queue.NotificationDispatchPayload) error {
	if s == nil {
		return nil
	}

	log, err := s.notificationRepo.GetByID(payload.NotificationID)
	if err != nil {
		return err
	}
	if log == nil {
		logger.Debugw("notification_dispatch_skipped_missing", "notification_id", payload.NotificationID)
		return nil
	}
	if log.SentAt != nil {
		return nil
	}

	order, err := s.orderRepo.GetByID(log.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Debugw("notification_dispatch_skipped_order_missing", "order_id", log.OrderID)
		return nil
	}

	email, err := s.orderRepo.ResolveReceiverEmailByOrderID(order.ID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" {
		logger.Debugw("notification_dispatch_skipped_no_email", "order_id", order.ID)
		return nil
	}

	input := OrderNotificationInput{
		OrderNo:        order.OrderNo,
		Category:       log.Category,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		ExpiresAt:      order.ExpiresAt,
		PickupDate:     order.PickupDate,
		PickupLocation: order.PickupLocation,
		PickupHours:    order.PickupHours,
		Note:           notificationNote(log.Payload),
	}
	if err := s.emailService.SendOrderNotificationEmail(email, input); err != nil {
		switch {
		case errors.Is(err, ErrEmailServiceDisabled),
			errors.Is(err, ErrEmailServiceNotConfigured),
			errors.Is(err, ErrInvalidEmail),
			errors.Is(err, ErrEmailRecipientRejected):
			logger.Debugw("notification_dispatch_skipped",
				"notification_id", log.ID,
				"order_id", order.ID,
				"category", log.Category,
				"reason", err.Error(),
			)
			return nil
		default:
			logger.Warnw("notification_dispatch_failed",
				"notification_id", log.ID,
				"order_id", order.ID,
				"category", log.Category,
				"error", err,
			)
			return err
		}
	}

	if err := s.notificationRepo.MarkSent(log.ID, time.Now()); err != nil {
		logger.Warnw("notification_mark_sent_failed", "notification_id", log.ID, "error", err)
	}
	return nil
}

func notificationNote(payload models.JSON) string {
	if payload == nil {
		return ""
	}
	if note, ok := payload["note"].(string); ok {
		return note
	}
	return ""
}
