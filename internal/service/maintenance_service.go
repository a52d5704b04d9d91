package service

import (
	"context"
	"fmt"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/repository"
)

// MaintenanceService 定时维护服务，由 cron 端点触发
type MaintenanceService struct {
	orderRepo            repository.OrderRepository
	notificationRepo     repository.NotificationLogRepository
	notificationSvc      *NotificationService
	orderService         *OrderService
	loc                  *time.Location
	reminderAfterMinutes int
	deadlineWarningHours int
}

// NewMaintenanceService 创建维护服务
func NewMaintenanceService(
	orderRepo repository.OrderRepository,
	notificationRepo repository.NotificationLogRepository,
	notificationSvc *NotificationService,
	orderService *OrderService,
	loc *time.Location,
	reminderAfterMinutes int,
	deadlineWarningHours int,
) *MaintenanceService {
	if loc == nil {
		loc = time.UTC
	}
	if reminderAfterMinutes <= 0 {
		reminderAfterMinutes = 60
	}
	if deadlineWarningHours <= 0 {
		deadlineWarningHours = 2
	}
	return &MaintenanceService{
		orderRepo:            orderRepo,
		notificationRepo:     notificationRepo,
		notificationSvc:      notificationSvc,
		orderService:         orderService,
		loc:                  loc,
		reminderAfterMinutes: reminderAfterMinutes,
		deadlineWarningHours: deadlineWarningHours,
	}
}

// MaintenanceSummary 单次维护执行结果
type MaintenanceSummary struct {
	Processed     int      `json:"processed"`
	RemindersSent int      `json:"reminders_sent"`
	Expired       int      `json:"expired"`
	Errors        []string `json:"errors,omitempty"`
}

// RunMaintenancePass 按序执行四个维护扫描
//
// 每个扫描独立容错，单条记录失败不会中断本次执行。
// 重复触发是安全的：提醒类按通知流水去重，过期处理按状态条件更新去重。
func (s *MaintenanceService) RunMaintenancePass(ctx context.Context, now time.Time) MaintenanceSummary {
	summary := MaintenanceSummary{}
	now = now.In(s.loc)

	s.runPaymentReminderPass(ctx, now, &summary)
	s.runDeadlineWarningPass(ctx, now, &summary)
	s.runExpiryPass(ctx, now, &summary)
	s.runPickupReminderPass(ctx, now, &summary)

	logger.Infow("maintenance_pass_done",
		"processed", summary.Processed,
		"reminders_sent", summary.RemindersSent,
		"expired", summary.Expired,
		"errors", len(summary.Errors),
	)
	return summary
}

// runPaymentReminderPass 提醒超过阈值仍未支付的订单
func (s *MaintenanceService) runPaymentReminderPass(ctx context.Context, now time.Time, summary *MaintenanceSummary) {
	if ctx.Err() != nil {
		return
	}
	cutoff := now.Add(-time.Duration(s.reminderAfterMinutes) * time.Minute)
	orders, err := s.orderRepo.ListAwaitingPaymentCreatedBefore(cutoff, now)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("payment_reminder: %v", err))
		return
	}
	for _, order := range orders {
		summary.Processed++
		sent, err := s.sendReminder(&order, constants.NotificationPaymentReminder, time.Time{})
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("payment_reminder order=%d: %v", order.ID, err))
			continue
		}
		if sent {
			summary.RemindersSent++
		}
	}
}

// runDeadlineWarningPass 提醒支付截止时间临近的订单
func (s *MaintenanceService) runDeadlineWarningPass(ctx context.Context, now time.Time, summary *MaintenanceSummary) {
	if ctx.Err() != nil {
		return
	}
	deadline := now.Add(time.Duration(s.deadlineWarningHours) * time.Hour)
	orders, err := s.orderRepo.ListAwaitingPaymentExpiringBetween(now, deadline)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("deadline_warning: %v", err))
		return
	}
	for _, order := range orders {
		summary.Processed++
		sent, err := s.sendReminder(&order, constants.NotificationDeadlineWarning, time.Time{})
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("deadline_warning order=%d: %v", order.ID, err))
			continue
		}
		if sent {
			summary.RemindersSent++
		}
	}
}

// runExpiryPass 处理支付超时的订单
func (s *MaintenanceService) runExpiryPass(ctx context.Context, now time.Time, summary *MaintenanceSummary) {
	if ctx.Err() != nil {
		return
	}
	orders, err := s.orderRepo.ListAwaitingPaymentExpired(now)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("expiry: %v", err))
		return
	}
	for _, order := range orders {
		summary.Processed++
		if _, err := s.orderService.ExpireUnpaidOrder(order.ID, now); err != nil {
			// 状态已被其他操作推进时视为已处理
			if err == ErrOrderStatusStale || err == ErrOrderStatusInvalid || err == ErrPaymentStatusInvalid {
				continue
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("expiry order=%d: %v", order.ID, err))
			continue
		}
		summary.Expired++
	}
}

// runPickupReminderPass 提醒今天与明天可取货的订单
func (s *MaintenanceService) runPickupReminderPass(ctx context.Context, now time.Time, summary *MaintenanceSummary) {
	if ctx.Err() != nil {
		return
	}
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)
	startOfDayAfter := startOfToday.AddDate(0, 0, 2)

	passes := []struct {
		category string
		from     time.Time
		to       time.Time
	}{
		{constants.NotificationPickupToday, startOfToday, startOfTomorrow},
		{constants.NotificationPickupH1, startOfTomorrow, startOfDayAfter},
	}
	for _, pass := range passes {
		orders, err := s.orderRepo.ListReadyWithPickupBetween(pass.from, pass.to)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", pass.category, err))
			continue
		}
		for _, order := range orders {
			summary.Processed++
			// 每单每天每类别最多提醒一次
			sent, err := s.sendReminder(&order, pass.category, startOfToday)
			if err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s order=%d: %v", pass.category, order.ID, err))
				continue
			}
			if sent {
				summary.RemindersSent++
			}
		}
	}
}

// sendReminder 写入通知流水并入队投递，since 为零值时表示全生命周期仅提醒一次
func (s *MaintenanceService) sendReminder(order *models.Order, category string, since time.Time) (bool, error) {
	exists, err := s.notificationRepo.ExistsSince(order.ID, category, since)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	log := &models.NotificationLog{
		OrderID:  order.ID,
		UserID:   order.UserID,
		Category: category,
		Channel:  "email",
	}
	if err := s.notificationRepo.Create(log); err != nil {
		return false, err
	}
	s.notificationSvc.Enqueue(log)
	return true, nil
}
