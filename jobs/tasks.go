package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/ayesh156/eco-system-sub002/internal/reminders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReminderScan is the scheduled task that walks the overdue book.
	TaskReminderScan = "reminder:scan"
)

// NewReminderScanTask constructs the cron-scheduled scan task.
func NewReminderScanTask() *asynq.Task {
	return asynq.NewTask(TaskReminderScan, nil)
}

// ReminderScanHandler runs one overdue pass and queues per-customer sends.
func ReminderScanHandler(svc *reminders.Service) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		_, err := svc.Scan(ctx)
		return err
	}
}

// ReminderSendHandler delivers one queued reminder through the gateway.
func ReminderSendHandler(svc *reminders.Service) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload reminders.SendPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		return svc.Deliver(ctx, payload.ReminderID)
	}
}
