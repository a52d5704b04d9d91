package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/festipick/festipick/internal/config"
	"github.com/festipick/festipick/internal/provider"
	"github.com/festipick/festipick/internal/queue"

	"github.com/hibiken/asynq"
)

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	if _, err := NewService(nil, consumer); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: false}, consumer); err == nil {
		t.Fatal("expected error for disabled queue")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatal("expected error for nil consumer")
	}
}

func TestHandleNotificationDispatchBadPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	task := asynq.NewTask(queue.TaskNotificationDispatch, []byte("{not-json"))
	if err := consumer.handleNotificationDispatch(context.Background(), task); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestHandleNotificationDispatchSkipsInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	body, err := json.Marshal(queue.NotificationDispatchPayload{NotificationID: 0})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskNotificationDispatch, body)
	if err := consumer.handleNotificationDispatch(context.Background(), task); err != nil {
		t.Fatalf("expected nil for invalid payload, got %v", err)
	}
}

func TestHandleNotificationDispatchSkipsNilService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})
	body, err := json.Marshal(queue.NotificationDispatchPayload{NotificationID: 1, OrderID: 1})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskNotificationDispatch, body)
	if err := consumer.handleNotificationDispatch(context.Background(), task); err != nil {
		t.Fatalf("expected nil when service missing, got %v", err)
	}
}
