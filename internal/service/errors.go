package service

import "errors"

// 订单相关错误
var (
	ErrOrderNotFound      = errors.New("订单不存在")
	ErrOrderFetchFailed   = errors.New("订单查询失败")
	ErrOrderCreateFailed  = errors.New("订单创建失败")
	ErrOrderUpdateFailed  = errors.New("订单更新失败")
	ErrOrderStatusInvalid = errors.New("订单状态不允许该操作")
	ErrOrderStatusStale   = errors.New("订单状态已被并发修改")
	ErrOrderNotPayable    = errors.New("订单未支付，无法进入备货")
	ErrOrderNotCancelable = errors.New("已支付订单不可取消，请走退款流程")
	ErrInvalidOrderItem   = errors.New("订单项不合法")
	ErrBundleNotAvailable = errors.New("套餐不存在或已下架")
	ErrBundleInvalid      = errors.New("套餐参数不合法")
	ErrBundleSlugTaken    = errors.New("套餐标识已被占用")
	ErrReasonRequired     = errors.New("必须填写原因")
)

// 支付相关错误
var (
	ErrPaymentNotFound      = errors.New("支付记录不存在")
	ErrPaymentFetchFailed   = errors.New("支付记录查询失败")
	ErrPaymentUpdateFailed  = errors.New("支付记录更新失败")
	ErrPaymentStatusInvalid = errors.New("支付状态不允许该操作")
	ErrPaymentProofRequired = errors.New("必须提供支付凭证")
	ErrRefundNotAllowed     = errors.New("仅已支付的订单可退款")
	ErrRefundAmountInvalid  = errors.New("退款金额不合法")
)

// 取货码相关错误
var (
	ErrTokenNotFound   = errors.New("取货码不存在")
	ErrTokenInvalid    = errors.New("取货码格式不合法")
	ErrOrderNotReady   = errors.New("订单未处于待取货状态")
	ErrAlreadyRedeemed = errors.New("取货码已被使用")
)

// 用户与认证相关错误
var (
	ErrUserNotFound       = errors.New("用户不存在")
	ErrUserDisabled       = errors.New("用户已被禁用")
	ErrInvalidEmail       = errors.New("邮箱格式不合法")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrNotFound           = errors.New("记录不存在")
)

// 邮件相关错误
var (
	ErrEmailServiceDisabled      = errors.New("邮件服务未启用")
	ErrEmailServiceNotConfigured = errors.New("邮件服务未配置")
	ErrEmailSendFailed           = errors.New("邮件发送失败")
	ErrEmailRecipientRejected    = errors.New("收件人地址被拒绝")
)

// 队列相关错误
var (
	ErrQueueUnavailable = errors.New("队列服务不可用")
)
