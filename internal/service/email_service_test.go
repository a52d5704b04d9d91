package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/festipick/festipick/internal/constants"
	"github.com/festipick/festipick/internal/models"

	"github.com/shopspring/decimal"
)

func TestBuildOrderNotificationContent(t *testing.T) {
	pickupDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	expiresAt := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		input       OrderNotificationInput
		wantSubject string
		wantInBody  []string
	}{
		{
			name: "payment reminder includes deadline",
			input: OrderNotificationInput{
				OrderNo:   "FP2026030912000001",
				Category:  constants.NotificationPaymentReminder,
				Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(85000)),
				Currency:  "IDR",
				ExpiresAt: &expiresAt,
			},
			wantSubject: "订单待支付提醒",
			wantInBody:  []string{"FP2026030912000001", "85000", "2026-03-09 18:00"},
		},
		{
			name: "ready includes pickup info",
			input: OrderNotificationInput{
				OrderNo:        "FP2026030912000002",
				Category:       constants.NotificationOrderReady,
				Amount:         models.NewMoneyFromDecimal(decimal.NewFromInt(150000)),
				Currency:       "IDR",
				PickupDate:     &pickupDate,
				PickupLocation: "东门服务台",
				PickupHours:    "18:00-21:00",
			},
			wantSubject: "订单待取货",
			wantInBody:  []string{"2026-03-10", "东门服务台", "18:00-21:00"},
		},
		{
			name: "delayed includes reason",
			input: OrderNotificationInput{
				OrderNo:  "FP2026030912000003",
				Category: constants.NotificationOrderDelayed,
				Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(320000)),
				Currency: "IDR",
				Note:     "备货原料短缺",
			},
			wantSubject: "订单备货延迟",
			wantInBody:  []string{"备货原料短缺"},
		},
		{
			name: "unknown category falls back",
			input: OrderNotificationInput{
				OrderNo:  "FP2026030912000004",
				Category: "something_else",
				Amount:   models.NewMoneyFromDecimal(decimal.NewFromInt(1)),
				Currency: "IDR",
			},
			wantSubject: "订单状态更新",
			wantInBody:  []string{"FP2026030912000004"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := buildOrderNotificationContent(tt.input)
			if subject != tt.wantSubject {
				t.Fatalf("subject want %s got %s", tt.wantSubject, subject)
			}
			for _, fragment := range tt.wantInBody {
				if !strings.Contains(body, fragment) {
					t.Fatalf("body should contain %s, got:\n%s", fragment, body)
				}
			}
		})
	}
}

func TestBuildFromAddress(t *testing.T) {
	if got := buildFromAddress("noreply@festipick.local", ""); got != "noreply@festipick.local" {
		t.Fatalf("bare address mismatch: %s", got)
	}
	got := buildFromAddress("noreply@festipick.local", "FestiPick")
	if !strings.Contains(got, "noreply@festipick.local") || !strings.Contains(got, "FestiPick") {
		t.Fatalf("named address mismatch: %s", got)
	}
}

func TestIsEmailRecipientRejected(t *testing.T) {
	if !isEmailRecipientRejected(errors.New("550 5.1.1 recipient address rejected")) {
		t.Fatalf("550 recipient rejection should match")
	}
	if !isEmailRecipientRejected(errors.New("smtp: user unknown")) {
		t.Fatalf("user unknown should match")
	}
	if isEmailRecipientRejected(errors.New("connection refused")) {
		t.Fatalf("connection error should not match")
	}
	if isEmailRecipientRejected(nil) {
		t.Fatalf("nil error should not match")
	}
}

func TestSendTextEmailValidation(t *testing.T) {
	svc := NewEmailService(nil)
	if err := svc.sendTextEmail("a@b.c", "s", "b"); !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("nil config want disabled error got %v", err)
	}
}
