package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusReady      = "ready"
	OrderStatusCompleted  = "completed"
	OrderStatusCanceled   = "canceled"
)

// 支付状态常量
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// 取货状态常量
const (
	PickupStatusNotPickedUp = "not_picked_up"
	PickupStatusPickedUp    = "picked_up"
)

// 通知类别常量
const (
	NotificationPaymentReminder = "payment_reminder"
	NotificationDeadlineWarning = "deadline_warning"
	NotificationPaymentExpired  = "payment_expired"
	NotificationPickupH1        = "pickup_h1"
	NotificationPickupToday     = "pickup_today"
	NotificationOrderConfirmed  = "order_confirmed"
	NotificationOrderDelayed    = "order_delayed"
	NotificationOrderReady      = "order_ready"
	NotificationOrderCompleted  = "order_completed"
	NotificationOrderCanceled   = "order_canceled"
	NotificationPaymentPaid     = "payment_paid"
	NotificationPaymentFailed   = "payment_failed"
	NotificationPaymentRefunded = "payment_refunded"
)

// 订单事件动作常量
const (
	OrderEventCreated            = "created"
	OrderEventConfirmed          = "confirmed"
	OrderEventPreparationStarted = "preparation_started"
	OrderEventDelayed            = "delayed"
	OrderEventReady              = "ready"
	OrderEventCompleted          = "completed"
	OrderEventCanceled           = "canceled"
	OrderEventPaymentPaid        = "payment_paid"
	OrderEventPaymentFailed      = "payment_failed"
	OrderEventPaymentExpired     = "payment_expired"
	OrderEventPaymentRefunded    = "payment_refunded"
	OrderEventProofSubmitted     = "proof_submitted"
)

// 操作者类型常量
const (
	ActorCustomer   = "customer"
	ActorAdmin      = "admin"
	ActorScheduler  = "scheduler"
	ActorPickupDesk = "pickup_desk"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 场次常量
const (
	BatchMorning = 1
	BatchEvening = 2
)

// 队列常量
const (
	QueueDefault             = "default"
	TaskNotificationDispatch = "notification:dispatch"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "fp"
)

// 订单号前缀常量
const (
	OrderNoPrefix = "FP"
)

// 币种常量
const (
	SiteCurrencyDefault = "IDR"
)
