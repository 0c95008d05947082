package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ayesh156/eco-system-sub002/internal/customers"
)

// TaskSend is the queue task type for delivering one reminder.
const TaskSend = "reminder:send"

// SendPayload is the task payload for TaskSend.
type SendPayload struct {
	ReminderID int64 `json:"reminder_id"`
}

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload []byte) error
}

// Directory is the slice of the customer module the scan needs.
type Directory interface {
	Get(ctx context.Context, id int64) (*customers.Customer, error)
	ListOverdue(ctx context.Context) ([]customers.Customer, error)
	GetCreditSummary(ctx context.Context, id int64) (*customers.CreditSummary, error)
}

type Service struct {
	logger    *slog.Logger
	repo      Repository
	directory Directory
	cache     *redis.Client
	queue     Enqueuer
	sender    Sender
	cooldown  time.Duration
}

func NewService(logger *slog.Logger, repo Repository, directory Directory, cache *redis.Client, queue Enqueuer, sender Sender, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	return &Service{
		logger:    logger,
		repo:      repo,
		directory: directory,
		cache:     cache,
		queue:     queue,
		sender:    sender,
		cooldown:  cooldown,
	}
}

// ScanResult reports one pass over the overdue book.
type ScanResult struct {
	Overdue int `json:"overdue"`
	Queued  int `json:"queued"`
	Skipped int `json:"skipped"`
	NoPhone int `json:"no_phone"`
}

// Scan walks overdue customers and queues one reminder per customer per
// cooldown window. The redis SETNX key is the dedupe guard, so repeated
// scans inside the window are no-ops.
func (s *Service) Scan(ctx context.Context) (*ScanResult, error) {
	overdue, err := s.directory.ListOverdue(ctx)
	if err != nil {
		return nil, fmt.Errorf("list overdue customers: %w", err)
	}

	result := &ScanResult{Overdue: len(overdue)}
	for _, customer := range overdue {
		if customer.WhatsAppPhone == nil || *customer.WhatsAppPhone == "" {
			result.NoPhone++
			continue
		}

		ok, err := s.claimWindow(ctx, customer.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			result.Skipped++
			continue
		}

		if _, err := s.queueReminder(ctx, &customer); err != nil {
			return nil, err
		}
		result.Queued++
	}
	return result, nil
}

// Remind queues a reminder for one customer on demand, bypassing the
// cooldown window. The customer must have a whatsapp number on file.
func (s *Service) Remind(ctx context.Context, customerID int64) (*Reminder, error) {
	customer, err := s.directory.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer.WhatsAppPhone == nil || *customer.WhatsAppPhone == "" {
		return nil, ErrNoPhone
	}
	return s.queueReminder(ctx, customer)
}

func (s *Service) queueReminder(ctx context.Context, customer *customers.Customer) (*Reminder, error) {
	summary, err := s.directory.GetCreditSummary(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("credit summary for reminder: %w", err)
	}

	reminder := Reminder{
		CustomerID: customer.ID,
		Phone:      *customer.WhatsAppPhone,
		Message:    composeMessage(customer.Name, summary),
		Status:     StatusQueued,
	}
	id, err := s.repo.Insert(ctx, reminder)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	reminder.ID = id

	payload, _ := json.Marshal(SendPayload{ReminderID: id})
	if err := s.queue.Enqueue(ctx, TaskSend, payload); err != nil {
		_ = s.repo.MarkFailed(ctx, id, "enqueue: "+err.Error())
		return nil, fmt.Errorf("enqueue reminder: %w", err)
	}
	return &reminder, nil
}

// Deliver is the queue side: load the row, call the gateway, record the
// outcome. A gateway failure marks the row failed and returns the error
// so the queue retries.
func (s *Service) Deliver(ctx context.Context, reminderID int64) error {
	reminder, err := s.repo.Get(ctx, reminderID)
	if err != nil {
		return err
	}
	if reminder.Status == StatusSent {
		return nil
	}

	if err := s.sender.Send(ctx, reminder.Phone, reminder.Message); err != nil {
		_ = s.repo.MarkFailed(ctx, reminderID, err.Error())
		return err
	}
	return s.repo.MarkSent(ctx, reminderID, time.Now())
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]Reminder, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *Service) claimWindow(ctx context.Context, customerID int64) (bool, error) {
	if s.cache == nil {
		return true, nil
	}
	key := fmt.Sprintf("reminders:window:%d", customerID)
	ok, err := s.cache.SetNX(ctx, key, time.Now().Unix(), s.cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("reminder window claim: %w", err)
	}
	return ok, nil
}

func composeMessage(name string, summary *customers.CreditSummary) string {
	msg := fmt.Sprintf("Dear %s, your outstanding balance is Rs. %s.", name, summary.CreditBalance.Display())
	if summary.OldestDueDate != nil {
		msg += fmt.Sprintf(" Your oldest invoice was due on %s.", summary.OldestDueDate.Format("2006-01-02"))
	}
	msg += " Please settle at your earliest convenience. Thank you."
	return msg
}
