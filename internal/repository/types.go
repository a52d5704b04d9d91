package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page         int
	PageSize     int
	UserID       uint
	Status       string
	PickupStatus string
	OrderNo      string
	BatchID      int
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// PaymentListFilter 查询支付列表的过滤条件
type PaymentListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// BundleListFilter 查询套餐列表的过滤条件
type BundleListFilter struct {
	Page       int
	PageSize   int
	Search     string
	OnlyActive bool
}

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter 查询权限审计日志列表的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// OrderEventListFilter 查询订单事件列表的过滤条件
type OrderEventListFilter struct {
	Page     int
	PageSize int
	OrderID  uint
	Action   string
}
