package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order, items []models.OrderItem) error
	GetByID(id uint) (*models.Order, error)
	GetByOrderNo(orderNo string) (*models.Order, error)
	GetByPickupToken(token string) (*models.Order, error)
	ResolveReceiverEmailByOrderID(orderID uint) (string, error)
	ListAdmin(filter OrderListFilter) ([]models.Order, int64, error)
	ListByUser(filter OrderListFilter) ([]models.Order, int64, error)
	ListAwaitingPaymentCreatedBefore(cutoff, asOf time.Time) ([]models.Order, error)
	ListAwaitingPaymentExpiringBetween(from, to time.Time) ([]models.Order, error)
	ListAwaitingPaymentExpired(asOf time.Time) ([]models.Order, error)
	ListReadyWithPickupBetween(from, to time.Time) ([]models.Order, error)
	UpdateStatus(id uint, status string, updates map[string]interface{}) error
	UpdateStatusIf(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error)
	RedeemPickupToken(token string, now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) withDetail(query *gorm.DB) *gorm.DB {
	return query.Preload("Items").Preload("Payment").Preload("User")
}

// Create 创建订单与订单项
func (r *GormOrderRepository) Create(order *models.Order, items []models.OrderItem) error {
	if err := r.db.Create(order).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].OrderID = order.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByOrderNo 根据订单号获取订单
func (r *GormOrderRepository) GetByOrderNo(orderNo string) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByPickupToken 根据取货码获取订单
func (r *GormOrderRepository) GetByPickupToken(token string) (*models.Order, error) {
	var order models.Order
	if err := r.withDetail(r.db).Where("pickup_token = ?", token).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// ResolveReceiverEmailByOrderID 根据订单 ID 解析通知收件邮箱。
func (r *GormOrderRepository) ResolveReceiverEmailByOrderID(orderID uint) (string, error) {
	if orderID == 0 {
		return "", nil
	}

	var orderRow struct {
		UserID uint
	}
	if err := r.db.Model(&models.Order{}).
		Select("user_id").
		Where("id = ?", orderID).
		Take(&orderRow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	if orderRow.UserID == 0 {
		return "", nil
	}

	var userRow struct {
		Email string
	}
	if err := r.db.Model(&models.User{}).
		Select("email").
		Where("id = ?", orderRow.UserID).
		Take(&userRow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(userRow.Email), nil
}

// ListAdmin 管理端订单列表
func (r *GormOrderRepository) ListAdmin(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PickupStatus != "" {
		query = query.Where("pickup_status = ?", filter.PickupStatus)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no = ?", filter.OrderNo)
	}
	if filter.BatchID != 0 {
		query = query.Where("batch_id = ?", filter.BatchID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := r.withDetail(query).Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListByUser 获取用户订单列表
func (r *GormOrderRepository) ListByUser(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{}).Where("user_id = ?", filter.UserID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNo != "" {
		query = query.Where("order_no LIKE ?", "%"+filter.OrderNo+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Preload("Items").Preload("Payment").Order("id desc").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListAwaitingPaymentCreatedBefore 获取创建时间早于 cutoff 且截止时间未到的待支付订单
func (r *GormOrderRepository) ListAwaitingPaymentCreatedBefore(cutoff, asOf time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.awaitingPaymentQuery().
		Where("orders.created_at <= ?", cutoff).
		Where("orders.expires_at IS NULL OR orders.expires_at > ?", asOf).
		Preload("Payment").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAwaitingPaymentExpiringBetween 获取支付截止时间落在 (from, to] 区间的待支付订单
func (r *GormOrderRepository) ListAwaitingPaymentExpiringBetween(from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.awaitingPaymentQuery().
		Where("orders.expires_at > ? AND orders.expires_at <= ?", from, to).
		Preload("Payment").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ListAwaitingPaymentExpired 获取支付截止时间已过的待支付订单
func (r *GormOrderRepository) ListAwaitingPaymentExpired(asOf time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.awaitingPaymentQuery().
		Where("orders.expires_at IS NOT NULL AND orders.expires_at <= ?", asOf).
		Preload("Payment").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormOrderRepository) awaitingPaymentQuery() *gorm.DB {
	return r.db.Model(&models.Order{}).
		Select("orders.*").
		Joins("JOIN payments ON payments.order_id = orders.id").
		Where("orders.status = ?", constants.OrderStatusPending).
		Where("payments.status = ?", constants.PaymentStatusPending).
		Where("payments.deleted_at IS NULL")
}

// ListReadyWithPickupBetween 获取取货窗口落在区间内的待取货订单
func (r *GormOrderRepository) ListReadyWithPickupBetween(from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.Model(&models.Order{}).
		Where("status = ?", constants.OrderStatusReady).
		Where("pickup_status = ?", constants.PickupStatusNotPickedUp).
		Where("pickup_date >= ? AND pickup_date < ?", from, to).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateStatus 更新订单状态
func (r *GormOrderRepository) UpdateStatus(id uint, status string, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = status
	return r.db.Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusIf 仅当当前状态匹配时更新订单状态，返回受影响行数
func (r *GormOrderRepository) UpdateStatusIf(id uint, fromStatus, toStatus string, updates map[string]interface{}) (int64, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

// RedeemPickupToken 原子核销取货码，返回受影响行数
func (r *GormOrderRepository) RedeemPickupToken(token string, now time.Time) (int64, error) {
	result := r.db.Model(&models.Order{}).
		Where("pickup_token = ? AND status = ? AND pickup_status = ?",
			token, constants.OrderStatusReady, constants.PickupStatusNotPickedUp).
		Updates(map[string]interface{}{
			"status":        constants.OrderStatusCompleted,
			"pickup_status": constants.PickupStatusPickedUp,
			"completed_at":  now,
		})
	return result.RowsAffected, result.Error
}
