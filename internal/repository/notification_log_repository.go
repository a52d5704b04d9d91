package repository

import (
	"errors"
	"time"

	"github.com/festipick/festipick/internal/models"

	"gorm.io/gorm"
)

// NotificationLogRepository 通知记录数据访问接口
type NotificationLogRepository interface {
	Create(log *models.NotificationLog) error
	GetByID(id uint) (*models.NotificationLog, error)
	ExistsSince(orderID uint, category string, since time.Time) (bool, error)
	ListByOrder(orderID uint) ([]models.NotificationLog, error)
	MarkSent(id uint, sentAt time.Time) error
	WithTx(tx *gorm.DB) *GormNotificationLogRepository
}

// GormNotificationLogRepository GORM 实现
type GormNotificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository 创建通知记录仓库
func NewNotificationLogRepository(db *gorm.DB) *GormNotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormNotificationLogRepository) WithTx(tx *gorm.DB) *GormNotificationLogRepository {
	if tx == nil {
		return r
	}
	return &GormNotificationLogRepository{db: tx}
}

// Create 创建通知记录
func (r *GormNotificationLogRepository) Create(log *models.NotificationLog) error {
	return r.db.Create(log).Error
}

// GetByID 根据 ID 获取通知记录
func (r *GormNotificationLogRepository) GetByID(id uint) (*models.NotificationLog, error) {
	var log models.NotificationLog
	if err := r.db.First(&log, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

// ExistsSince 判断订单在 since 之后是否已有同类别通知
func (r *GormNotificationLogRepository) ExistsSince(orderID uint, category string, since time.Time) (bool, error) {
	var count int64
	query := r.db.Model(&models.NotificationLog{}).
		Where("order_id = ? AND category = ?", orderID, category)
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByOrder 获取订单通知记录
func (r *GormNotificationLogRepository) ListByOrder(orderID uint) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	if err := r.db.Where("order_id = ?", orderID).Order("id asc").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// MarkSent 标记通知投递成功
func (r *GormNotificationLogRepository) MarkSent(id uint, sentAt time.Time) error {
	return r.db.Model(&models.NotificationLog{}).
		Where("id = ?", id).
		Update("sent_at", sentAt).Error
}
