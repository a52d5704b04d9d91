package models

import (
	"time"

	"gorm.io/gorm"
)

// Bundle 预售套餐表
type Bundle struct {
	ID          uint           `gorm:"primarykey" json:"id"`                               // 主键
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`                   // 套餐标识
	Name        string         `gorm:"not null" json:"name"`                               // 套餐名称
	Description string         `gorm:"type:varchar(1000)" json:"description"`              // 套餐说明
	Price       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 售价
	Currency    string         `gorm:"not null" json:"currency"`                           // 币种
	IsActive    bool           `gorm:"not null;default:true;index" json:"is_active"`       // 是否上架
	SortOrder   int            `gorm:"not null;default:0" json:"sort_order"`               // 排序
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                            // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                            // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Bundle) TableName() string {
	return "bundles"
}
