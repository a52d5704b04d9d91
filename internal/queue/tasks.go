package queue

import (
	"encoding/json"

	"github.com/festipick/festipick/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskNotificationDispatch 通知投递任务
	TaskNotificationDispatch = constants.TaskNotificationDispatch
)

// NotificationDispatchPayload 通知投递任务载荷
type NotificationDispatchPayload struct {
	NotificationID uint   `json:"notification_id"`
	OrderID        uint   `json:"order_id"`
	Category       string `json:"category"`
}

// NewNotificationDispatchTask 创建通知投递任务
func NewNotificationDispatchTask(payload NotificationDispatchPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationDispatch, body), nil
}
