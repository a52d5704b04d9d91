package service

import (
	"testing"

	"github.com/festipick/festipick/internal/constants"
)

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{constants.OrderStatusPending, constants.OrderStatusConfirmed, true},
		{constants.OrderStatusPending, constants.OrderStatusProcessing, true},
		{constants.OrderStatusPending, constants.OrderStatusCanceled, true},
		{constants.OrderStatusConfirmed, constants.OrderStatusProcessing, true},
		{constants.OrderStatusConfirmed, constants.OrderStatusCanceled, true},
		{constants.OrderStatusProcessing, constants.OrderStatusReady, true},
		{constants.OrderStatusReady, constants.OrderStatusCompleted, true},
		{constants.OrderStatusPending, constants.OrderStatusReady, false},
		{constants.OrderStatusProcessing, constants.OrderStatusCanceled, false},
		{constants.OrderStatusReady, constants.OrderStatusCanceled, false},
		{constants.OrderStatusCompleted, constants.OrderStatusReady, false},
		{constants.OrderStatusCanceled, constants.OrderStatusPending, false},
		{constants.OrderStatusConfirmed, constants.OrderStatusConfirmed, true},
	}
	for _, tc := range cases {
		if got := isOrderTransitionAllowed(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: want %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestPaymentTransitions(t *testing.T) {
	cases := []struct {
		from string
		to   string
		want bool
	}{
		{constants.PaymentStatusPending, constants.PaymentStatusPaid, true},
		{constants.PaymentStatusPending, constants.PaymentStatusFailed, true},
		{constants.PaymentStatusPaid, constants.PaymentStatusRefunded, true},
		{constants.PaymentStatusPending, constants.PaymentStatusRefunded, false},
		{constants.PaymentStatusFailed, constants.PaymentStatusPaid, false},
		{constants.PaymentStatusRefunded, constants.PaymentStatusPaid, false},
	}
	for _, tc := range cases {
		if got := isPaymentTransitionAllowed(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: want %v got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestIsOrderTerminal(t *testing.T) {
	if !isOrderTerminal(constants.OrderStatusCompleted) || !isOrderTerminal(constants.OrderStatusCanceled) {
		t.Fatalf("completed/canceled should be terminal")
	}
	if isOrderTerminal(constants.OrderStatusReady) {
		t.Fatalf("ready should not be terminal")
	}
}
