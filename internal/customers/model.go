// Package customers manages the customer master and its credit accounts.
package customers

import (
	"time"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/settlement"
)

type Customer struct {
	ID            int64                   `json:"id"`
	Code          string                  `json:"code"`
	Name          string                  `json:"name"`
	Phone         *string                 `json:"phone,omitempty"`
	WhatsAppPhone *string                 `json:"whatsapp_phone,omitempty"`
	Email         *string                 `json:"email,omitempty"`
	Address       *string                 `json:"address,omitempty"`
	CreditLimit   money.Cents             `json:"credit_limit"`
	CreditBalance money.Cents             `json:"credit_balance"`
	CreditStatus  settlement.CreditStatus `json:"credit_status"`
	IsActive      bool                    `json:"is_active"`
	Notes         *string                 `json:"notes,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// CreditSummary is the aggregate credit view used by the dashboard and
// by the reminder scan.
type CreditSummary struct {
	CustomerID       int64                   `json:"customer_id"`
	CreditBalance    money.Cents             `json:"credit_balance"`
	CreditStatus     settlement.CreditStatus `json:"credit_status"`
	CreditLimit      money.Cents             `json:"credit_limit"`
	OutstandingCount int                     `json:"outstanding_count"`
	OldestDueDate    *time.Time              `json:"oldest_due_date,omitempty"`
}

// OverLimit reports whether the balance exceeds a configured limit.
// A zero limit means no limit.
func (s CreditSummary) OverLimit() bool {
	return s.CreditLimit > 0 && s.CreditBalance > s.CreditLimit
}
