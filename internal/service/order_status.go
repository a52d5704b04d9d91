package service

import (
	"strings"

	"github.com/festipick/festipick/internal/constants"
)

// allowedOrderTransitions 订单状态机
var allowedOrderTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed:  true,
		constants.OrderStatusProcessing: true,
		constants.OrderStatusCanceled:   true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusProcessing: true,
		constants.OrderStatusCanceled:   true,
	},
	constants.OrderStatusProcessing: {
		constants.OrderStatusReady: true,
	},
	constants.OrderStatusReady: {
		constants.OrderStatusCompleted: true,
	},
	constants.OrderStatusCompleted: {},
	constants.OrderStatusCanceled:  {},
}

// allowedPaymentTransitions 支付状态机
var allowedPaymentTransitions = map[string]map[string]bool{
	constants.PaymentStatusPending: {
		constants.PaymentStatusPaid:   true,
		constants.PaymentStatusFailed: true,
	},
	constants.PaymentStatusPaid: {
		constants.PaymentStatusRefunded: true,
	},
	constants.PaymentStatusFailed:   {},
	constants.PaymentStatusRefunded: {},
}

// isOrderTransitionAllowed 判断订单状态流转是否合法
func isOrderTransitionAllowed(current, target string) bool {
	current = strings.ToLower(strings.TrimSpace(current))
	target = strings.ToLower(strings.TrimSpace(target))
	if current == target {
		return true
	}
	targets, ok := allowedOrderTransitions[current]
	if !ok {
		return false
	}
	return targets[target]
}

// isPaymentTransitionAllowed 判断支付状态流转是否合法
func isPaymentTransitionAllowed(current, target string) bool {
	current = strings.ToLower(strings.TrimSpace(current))
	target = strings.ToLower(strings.TrimSpace(target))
	if current == target {
		return true
	}
	targets, ok := allowedPaymentTransitions[current]
	if !ok {
		return false
	}
	return targets[target]
}

// isOrderTerminal 判断订单是否处于终态
func isOrderTerminal(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	return status == constants.OrderStatusCompleted || status == constants.OrderStatusCanceled
}
