package models

import "time"

// OrderEvent 订单事件流水表
type OrderEvent struct {
	ID         uint      `gorm:"primarykey" json:"id"`                    // 主键
	OrderID    uint      `gorm:"index;not null" json:"order_id"`          // 订单ID
	Actor      string    `gorm:"not null" json:"actor"`                   // 操作者类型
	ActorID    uint      `gorm:"not null;default:0" json:"actor_id"`      // 操作者ID（定时任务为 0）
	Action     string    `gorm:"index;not null" json:"action"`            // 事件动作
	FromStatus string    `json:"from_status,omitempty"`                   // 变更前状态
	ToStatus   string    `json:"to_status,omitempty"`                     // 变更后状态
	Note       string    `gorm:"type:varchar(500)" json:"note,omitempty"` // 备注（延迟原因、退款凭证等）
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                 // 创建时间
}

// TableName 指定表名
func (OrderEvent) TableName() string {
	return "order_events"
}
