package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                        // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"`                        // 订单编号
	UserID         uint           `gorm:"index;not null" json:"user_id"`                               // 用户ID
	Status         string         `gorm:"index;not null" json:"status"`                                // 订单状态
	Currency       string         `gorm:"not null" json:"currency"`                                    // 币种
	TotalAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`   // 订单金额
	Note           string         `gorm:"type:varchar(500)" json:"note,omitempty"`                     // 顾客备注
	BatchID        int            `gorm:"index" json:"batch_id"`                                       // 场次编号
	BatchDate      *time.Time     `gorm:"index" json:"batch_date"`                                     // 场次日期
	PickupToken    *string        `gorm:"uniqueIndex" json:"-"`                                        // 取货码（不返回列表接口）
	PickupStatus   string         `gorm:"index;not null;default:'not_picked_up'" json:"pickup_status"` // 取货状态
	PickupLocation string         `json:"pickup_location,omitempty"`                                   // 取货地点
	PickupHours    string         `json:"pickup_hours,omitempty"`                                      // 取货时段
	PickupDate     *time.Time     `gorm:"index" json:"pickup_date"`                                    // 取货窗口开始时间
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`                                     // 支付截止时间
	ConfirmedAt    *time.Time     `json:"confirmed_at"`                                                // 确认时间
	ReadyAt        *time.Time     `json:"ready_at"`                                                    // 备货完成时间
	CompletedAt    *time.Time     `json:"completed_at"`                                                // 取货完成时间
	CanceledAt     *time.Time     `gorm:"index" json:"canceled_at"`                                    // 取消时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	// 关联
	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`   // 订单项
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"` // 支付记录
	User    *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`     // 下单用户
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
