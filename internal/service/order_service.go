package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/festipick/festipick/internal/batch"
	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/logger"
	"github.com/festipick/festipick/internal/models"
	"github.com/festipick/festipick/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo          repository.OrderRepository
	paymentRepo        repository.PaymentRepository
	bundleRepo         repository.BundleRepository
	userRepo           repository.UserRepository
	eventRepo          repository.OrderEventRepository
	notificationRepo   repository.NotificationLogRepository
	notificationSvc    *NotificationService
	loc                *time.Location
	paymentExpireHours int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	bundleRepo repository.BundleRepository,
	userRepo repository.UserRepository,
	eventRepo repository.OrderEventRepository,
	notificationRepo repository.NotificationLogRepository,
	notificationSvc *NotificationService,
	loc *time.Location,
	paymentExpireHours int,
) *OrderService {
	if loc == nil {
		loc = time.UTC
	}
	if paymentExpireHours <= 0 {
		paymentExpireHours = 24
	}
	return &OrderService{
		orderRepo:          orderRepo,
		paymentRepo:        paymentRepo,
		bundleRepo:         bundleRepo,
		userRepo:           userRepo,
		eventRepo:          eventRepo,
		notificationRepo:   notificationRepo,
		notificationSvc:    notificationSvc,
		loc:                loc,
		paymentExpireHours: paymentExpireHours,
	}
}

// CreateOrderItem 下单项
type CreateOrderItem struct {
	BundleID uint `json:"bundle_id"`
	Quantity int  `json:"quantity"`
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	Email       string
	DisplayName string
	Phone       string
	Note        string
	Items       []CreateOrderItem
}

// OrderDetail 订单详情，含事件与通知流水
type OrderDetail struct {
	Order         *models.Order            `json:"order"`
	Events        []models.OrderEvent      `json:"events"`
	Notifications []models.NotificationLog `json:"notifications"`
}

// CreateOrder 创建订单与待支付记录
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrInvalidOrderItem
	}
	for _, item := range input.Items {
		if item.BundleID == 0 || item.Quantity <= 0 {
			return nil, ErrInvalidOrderItem
		}
	}

	user, err := s.resolveUser(input)
	if err != nil {
		return nil, err
	}

	items, total, currency, err := s.buildOrderItems(input.Items)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)
	window := batch.NextPickupWindow(now, s.loc)
	expiresAt := now.Add(time.Duration(s.paymentExpireHours) * time.Hour)
	pickupDate := window.PickupStart

	order := &models.Order{
		OrderNo:      generateOrderNo(),
		UserID:       user.ID,
		Status:       constants.OrderStatusPending,
		Currency:     currency,
		TotalAmount:  models.NewMoneyFromDecimal(total),
		Note:         strings.TrimSpace(input.Note),
		BatchID:      window.BatchID,
		BatchDate:    &window.Date,
		PickupStatus: constants.PickupStatusNotPickedUp,
		PickupDate:   &pickupDate,
		ExpiresAt:    &expiresAt,
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return err
		}
		payment := &models.Payment{
			OrderID:  order.ID,
			Status:   constants.PaymentStatusPending,
			Currency: currency,
			Amount:   models.NewMoneyFromDecimal(total),
		}
		if err := s.paymentRepo.WithTx(tx).Create(payment); err != nil {
			return err
		}
		event := &models.OrderEvent{
			OrderID:  order.ID,
			Actor:    constants.ActorCustomer,
			ActorID:  user.ID,
			Action:   constants.OrderEventCreated,
			ToStatus: constants.OrderStatusPending,
		}
		return s.eventRepo.WithTx(tx).Create(event)
	})
	if err != nil {
		logger.Errorw("order_create_failed", "error", err)
		return nil, ErrOrderCreateFailed
	}

	return s.GetOrder(order.ID)
}

// GetOrder 获取订单
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderByNo 按订单号获取订单
func (s *OrderService) GetOrderByNo(orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNo(strings.TrimSpace(orderNo))
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderDetail 获取订单详情
func (s *OrderService) GetOrderDetail(id uint) (*OrderDetail, error) {
	order, err := s.GetOrder(id)
	if err != nil {
		return nil, err
	}
	events, err := s.eventRepo.ListByOrder(order.ID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	notifications, err := s.notificationRepo.ListByOrder(order.ID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	return &OrderDetail{Order: order, Events: events, Notifications: notifications}, nil
}

// ListOrders 管理端订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	orders, total, err := s.orderRepo.ListAdmin(filter)
	if err != nil {
		return nil, 0, ErrOrderFetchFailed
	}
	return orders, total, nil
}

// ConfirmOrder 确认订单，要求已支付
func (s *OrderService) ConfirmOrder(orderID uint, actorID uint) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == constants.OrderStatusConfirmed {
		return order, nil
	}
	if !isOrderTransitionAllowed(order.Status, constants.OrderStatusConfirmed) {
		return nil, ErrOrderStatusInvalid
	}
	if err := orderPaymentPaidGuard(order); err != nil {
		return nil, err
	}

	return s.transitionWithRetry(order, constants.OrderStatusConfirmed, transitionSpec{
		Actor:    constants.ActorAdmin,
		ActorID:  actorID,
		Action:   constants.OrderEventConfirmed,
		Category: constants.NotificationOrderConfirmed,
		Updates:  map[string]interface{}{"confirmed_at": time.Now()},
		Guard:    orderPaymentPaidGuard,
	})
}

// StartPreparation 开始备货，要求已支付，可附带预计完成时间
func (s *OrderService) StartPreparation(orderID uint, actorID uint, estimatedReadyAt *time.Time) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == constants.OrderStatusProcessing {
		return order, nil
	}
	if !isOrderTransitionAllowed(order.Status, constants.OrderStatusProcessing) {
		return nil, ErrOrderStatusInvalid
	}
	if err := orderPaymentPaidGuard(order); err != nil {
		return nil, err
	}

	note := ""
	if estimatedReadyAt != nil {
		note = fmt.Sprintf("预计完成时间：%s", estimatedReadyAt.In(s.loc).Format("2006-01-02 15:04"))
	}

	return s.transitionWithRetry(order, constants.OrderStatusProcessing, transitionSpec{
		Actor:   constants.ActorAdmin,
		ActorID: actorID,
		Action:  constants.OrderEventPreparationStarted,
		Note:    note,
		Guard:   orderPaymentPaidGuard,
	})
}

// MarkDelayed 标记备货延迟，状态保持备货中，必须填写原因
func (s *OrderService) MarkDelayed(orderID uint, actorID uint, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != constants.OrderStatusProcessing {
		return nil, ErrOrderStatusInvalid
	}

	var log *models.NotificationLog
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		// 状态不变，但事件与通知仍以条件更新锚定备货中状态，避免与并发取消竞争
		affected, err := s.orderRepo.WithTx(tx).UpdateStatusIf(order.ID, constants.OrderStatusProcessing, constants.OrderStatusProcessing, nil)
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
			Action:     constants.OrderEventDelayed,
			FromStatus: constants.OrderStatusProcessing,
			ToStatus:   constants.OrderStatusProcessing,
			Note:       reason,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		log, err = s.recordNotification(tx, order, constants.NotificationOrderDelayed, reason)
		return err
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("order_mark_delayed_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return order, nil
}

// MarkReady 备货完成，签发取货码并分配取货窗口
func (s *OrderService) MarkReady(orderID uint, actorID uint, pickupLocation, pickupHours string) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == constants.OrderStatusReady {
		return order, nil
	}
	if !isOrderTransitionAllowed(order.Status, constants.OrderStatusReady) {
		return nil, ErrOrderStatusInvalid
	}

	now := time.Now().In(s.loc)
	updates := map[string]interface{}{"ready_at": now}

	if order.PickupToken == nil || *order.PickupToken == "" {
		token, err := generatePickupToken()
		if err != nil {
			logger.Errorw("pickup_token_generate_failed", "order_id", order.ID, "error", err)
			return nil, ErrOrderUpdateFailed
		}
		updates["pickup_token"] = token
	}

	// 取货窗口按备货完成时刻重新计算，而不是沿用下单时的预估
	window := batch.NextPickupWindow(now, s.loc)
	updates["pickup_date"] = window.PickupStart
	updates["batch_id"] = window.BatchID
	updates["batch_date"] = window.Date

	pickupHours = strings.TrimSpace(pickupHours)
	if pickupHours == "" {
		pickupHours = formatPickupHours(window)
	}
	if location := strings.TrimSpace(pickupLocation); location != "" {
		updates["pickup_location"] = location
	}
	if pickupHours != "" {
		updates["pickup_hours"] = pickupHours
	}

	return s.transitionWithRetry(order, constants.OrderStatusReady, transitionSpec{
		Actor:    constants.ActorAdmin,
		ActorID:  actorID,
		Action:   constants.OrderEventReady,
		Category: constants.NotificationOrderReady,
		Updates:  updates,
	})
}

// CancelOrder 取消订单，仅限未支付且未进入备货的订单
func (s *OrderService) CancelOrder(orderID uint, actor string, actorID uint, reason string) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == constants.OrderStatusCanceled {
		return order, nil
	}
	if order.Status != constants.OrderStatusPending && order.Status != constants.OrderStatusConfirmed {
		return nil, ErrOrderStatusInvalid
	}
	if order.Payment != nil && order.Payment.Status == constants.PaymentStatusPaid {
		return nil, ErrOrderNotCancelable
	}

	now := time.Now()
	reason = strings.TrimSpace(reason)

	var log *models.NotificationLog
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.orderRepo.WithTx(tx).UpdateStatusIf(order.ID, order.Status, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}

		if order.Payment != nil && order.Payment.Status == constants.PaymentStatusPending {
			failReason := reason
			if failReason == "" {
				failReason = "订单已取消"
			}
			affected, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(order.Payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, map[string]interface{}{
				"fail_reason": failReason,
				"failed_at":   now,
			})
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrOrderStatusStale
			}
		}

		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      actor,
			ActorID:    actorID,
			Action:     constants.OrderEventCanceled,
			FromStatus: order.Status,
			ToStatus:   constants.OrderStatusCanceled,
			Note:       reason,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		log, err = s.recordNotification(tx, order, constants.NotificationOrderCanceled, reason)
		return err
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("order_cancel_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return s.GetOrder(order.ID)
}

// ExpireUnpaidOrder 将超时未支付订单置为取消并关闭支付记录
func (s *OrderService) ExpireUnpaidOrder(orderID uint, now time.Time) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderStatusInvalid
	}
	if order.Payment == nil || order.Payment.Status != constants.PaymentStatusPending {
		return nil, ErrPaymentStatusInvalid
	}
	if order.ExpiresAt == nil || order.ExpiresAt.After(now) {
		return nil, ErrOrderStatusInvalid
	}

	var log *models.NotificationLog
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.paymentRepo.WithTx(tx).UpdateStatusIf(order.Payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, map[string]interface{}{
			"fail_reason": "支付超时",
			"failed_at":   now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}

		affected, err = s.orderRepo.WithTx(tx).UpdateStatusIf(order.ID, constants.OrderStatusPending, constants.OrderStatusCanceled, map[string]interface{}{
			"canceled_at": now,
		})
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}

		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      constants.ActorScheduler,
			Action:     constants.OrderEventPaymentExpired,
			FromStatus: constants.OrderStatusPending,
			ToStatus:   constants.OrderStatusCanceled,
			Note:       "支付超时自动取消",
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		log, err = s.recordNotification(tx, order, constants.NotificationPaymentExpired, "")
		return err
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("order_expire_failed", "order_id", order.ID, "error", err)
		return nil, ErrOrderUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return s.GetOrder(order.ID)
}

// transitionSpec 单次状态流转说明
type transitionSpec struct {
	Actor    string
	ActorID  uint
	Action   string
	Note     string
	Category string
	Updates  map[string]interface{}
	Guard    func(order *models.Order) error
}

// orderPaymentPaidGuard 订单推进到备货前必须已支付
func orderPaymentPaidGuard(order *models.Order) error {
	if order.Payment == nil || order.Payment.Status != constants.PaymentStatusPaid {
		return ErrOrderNotPayable
	}
	return nil
}

// transitionWithRetry 执行条件更新，状态被并发修改时重读一次后重试。
// 重试前除状态流转合法性外，调用方的业务前置条件也要基于重读结果再校验一遍。
func (s *OrderService) transitionWithRetry(order *models.Order, target string, spec transitionSpec) (*models.Order, error) {
	updated, err := s.applyTransition(order, target, spec)
	if err != ErrOrderStatusStale {
		return updated, err
	}

	order, err = s.GetOrder(order.ID)
	if err != nil {
		return nil, err
	}
	if order.Status == target {
		return order, nil
	}
	if !isOrderTransitionAllowed(order.Status, target) {
		return nil, ErrOrderStatusInvalid
	}
	if spec.Guard != nil {
		if err := spec.Guard(order); err != nil {
			return nil, err
		}
	}
	return s.applyTransition(order, target, spec)
}

func (s *OrderService) applyTransition(order *models.Order, target string, spec transitionSpec) (*models.Order, error) {
	var log *models.NotificationLog
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		affected, err := s.orderRepo.WithTx(tx).UpdateStatusIf(order.ID, order.Status, target, cloneUpdates(spec.Updates))
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrOrderStatusStale
		}

		event := &models.OrderEvent{
			OrderID:    order.ID,
			Actor:      spec.Actor,
			ActorID:    spec.ActorID,
			Action:     spec.Action,
			FromStatus: order.Status,
			ToStatus:   target,
			Note:       spec.Note,
		}
		if err := s.eventRepo.WithTx(tx).Create(event); err != nil {
			return err
		}
		if spec.Category != "" {
			log, err = s.recordNotification(tx, order, spec.Category, spec.Note)
			return err
		}
		return nil
	})
	if err != nil {
		if err == ErrOrderStatusStale {
			return nil, ErrOrderStatusStale
		}
		logger.Errorw("order_transition_failed",
			"order_id", order.ID,
			"from", order.Status,
			"to", target,
			"error", err,
		)
		return nil, ErrOrderUpdateFailed
	}
	s.notificationSvc.Enqueue(log)
	return s.GetOrder(order.ID)
}

func (s *OrderService) recordNotification(tx *gorm.DB, order *models.Order, category, note string) (*models.NotificationLog, error) {
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

func (s *OrderService) resolveUser(input CreateOrderInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, ErrOrderCreateFailed
	}
	if user != nil {
		if user.Status == constants.UserStatusDisabled {
			return nil, ErrUserDisabled
		}
		return user, nil
	}
	user = &models.User{
		Email:       email,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Phone:       strings.TrimSpace(input.Phone),
		Status:      constants.UserStatusActive,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, ErrOrderCreateFailed
	}
	return user, nil
}

func (s *OrderService) buildOrderItems(items []CreateOrderItem) ([]models.OrderItem, decimal.Decimal, string, error) {
	merged := make(map[uint]int, len(items))
	bundleIDs := make([]uint, 0, len(items))
	for _, item := range items {
		if _, ok := merged[item.BundleID]; !ok {
			bundleIDs = append(bundleIDs, item.BundleID)
		}
		merged[item.BundleID] += item.Quantity
	}

	total := decimal.Zero
	currency := constants.SiteCurrencyDefault
	result := make([]models.OrderItem, 0, len(merged))
	for _, bundleID := range bundleIDs {
		bundle, err := s.bundleRepo.GetByID(bundleID)
		if err != nil {
			return nil, decimal.Zero, "", ErrOrderCreateFailed
		}
		if bundle == nil || !bundle.IsActive {
			return nil, decimal.Zero, "", ErrBundleNotAvailable
		}
		quantity := merged[bundleID]
		subtotal := bundle.Price.Decimal.Mul(decimal.NewFromInt(int64(quantity)))
		total = total.Add(subtotal)
		if bundle.Currency != "" {
			currency = bundle.Currency
		}
		result = append(result, models.OrderItem{
			BundleID:   bundle.ID,
			BundleName: bundle.Name,
			UnitPrice:  bundle.Price,
			Quantity:   quantity,
			TotalPrice: models.NewMoneyFromDecimal(subtotal),
		})
	}
	return result, total, currency, nil
}

func cloneUpdates(updates map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(updates))
	for key, value := range updates {
		result[key] = value
	}
	return result
}

func formatPickupHours(w batch.Window) string {
	return fmt.Sprintf("%s-%s", w.PickupStart.Format("15:04"), w.PickupEnd.Format("15:04"))
}

// generateOrderNo 生成订单号：前缀 + 时间戳 + 6位随机数
func generateOrderNo() string {
	return constants.OrderNoPrefix + time.Now().Format("20060102150405") + randNumeric(6)
}

func randNumeric(n int) string {
	digits := make([]byte, n)
	for i := range digits {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			digits[i] = '0'
			continue
		}
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits)
}
