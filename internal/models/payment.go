package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                       // 主键
	OrderID         uint           `gorm:"uniqueIndex;not null" json:"order_id"`                       // 订单ID（一单一付）
	Status          string         `gorm:"index;not null" json:"status"`                               // 支付状态
	Currency        string         `gorm:"not null" json:"currency"`                                   // 币种
	Amount          Money          `gorm:"type:decimal(20,2);not null" json:"amount"`                  // 应付金额
	Method          string         `gorm:"type:varchar(50)" json:"method,omitempty"`                   // 支付方式（线下转账等）
	ProofURL        string         `gorm:"type:varchar(500)" json:"proof_url,omitempty"`               // 支付凭证地址
	FailReason      string         `gorm:"type:varchar(500)" json:"fail_reason,omitempty"`             // 失败原因
	RefundAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"refund_amount"` // 退款金额
	RefundReason    string         `gorm:"type:varchar(500)" json:"refund_reason,omitempty"`           // 退款原因
	RefundReference string         `gorm:"type:varchar(200)" json:"refund_reference,omitempty"`        // 退款凭证号
	PaidAt          *time.Time     `gorm:"index" json:"paid_at"`                                       // 支付时间
	FailedAt        *time.Time     `json:"failed_at"`                                                  // 失败时间
	RefundedAt      *time.Time     `json:"refunded_at"`                                                // 退款时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
