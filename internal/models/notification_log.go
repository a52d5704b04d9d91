package models

import "time"

// NotificationLog 通知记录表
type NotificationLog struct {
	ID        uint       `gorm:"primarykey" json:"id"`                                           // 主键
	OrderID   uint       `gorm:"index:idx_notification_order_category" json:"order_id"`          // 订单ID
	UserID    uint       `gorm:"index" json:"user_id"`                                           // 用户ID
	Category  string     `gorm:"index:idx_notification_order_category;not null" json:"category"` // 通知类别
	Channel   string     `gorm:"not null;default:'email'" json:"channel"`                        // 通知渠道
	Payload   JSON       `gorm:"type:json" json:"payload"`                                       // 通知内容
	SentAt    *time.Time `json:"sent_at"`                                                        // 投递成功时间
	CreatedAt time.Time  `gorm:"index" json:"created_at"`                                        // 创建时间
}

// TableName 指定表名
func (NotificationLog) TableName() string {
	return "notification_logs"
}
