// Package reminders sends WhatsApp payment reminders to customers with
// overdue credit.
package reminders

import (
	"fmt"
	"time"

	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
)

type Status string

const (
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

type Reminder struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	Phone      string     `json:"phone"`
	Message    string     `json:"message"`
	Status     Status     `json:"status"`
	Error      *string    `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

var (
	ErrNotFound = fmt.Errorf("reminder %w", httpx.ErrNotFound)
	ErrNoPhone  = fmt.Errorf("customer has no whatsapp number: %w", httpx.ErrValidation)
)
