package repository

import (
	"github.com/festipick/festipick/internal/models"

	"gorm.io/gorm"
)

// OrderEventRepository 订单事件数据访问接口
type OrderEventRepository interface {
	Create(event *models.OrderEvent) error
	ListByOrder(orderID uint) ([]models.OrderEvent, error)
	List(filter OrderEventListFilter) ([]models.OrderEvent, int64, error)
	WithTx(tx *gorm.DB) *GormOrderEventRepository
}

// GormOrderEventRepository GORM 实现
type GormOrderEventRepository struct {
	db *gorm.DB
}

// NewOrderEventRepository 创建订单事件仓库
func NewOrderEventRepository(db *gorm.DB) *GormOrderEventRepository {
	return &GormOrderEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderEventRepository) WithTx(tx *gorm.DB) *GormOrderEventRepository {
	if tx == nil {
		return r
	}
	return &GormOrderEventRepository{db: tx}
}

// Create 创建订单事件
func (r *GormOrderEventRepository) Create(event *models.OrderEvent) error {
	return r.db.Create(event).Error
}

// ListByOrder 获取订单事件列表
func (r *GormOrderEventRepository) ListByOrder(orderID uint) ([]models.OrderEvent, error) {
	var events []models.OrderEvent
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// List 按条件查询订单事件
func (r *GormOrderEventRepository) List(filter OrderEventListFilter) ([]models.OrderEvent, int64, error) {
	query := r.db.Model(&models.OrderEvent{})

	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var events []models.OrderEvent
	if err := query.Order("id desc").Find(&events).Error; err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
