// Package invoices is the invoice ledger: it owns invoice and payment
// records and is the integration layer between HTTP callers and the
// settlement engine.
package invoices

import (
	"fmt"
	"time"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
	"github.com/ayesh156/eco-system-sub002/internal/settlement"
)

// PaymentMethod enumerates accepted customer payment methods.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodBank   PaymentMethod = "bank"
	MethodCard   PaymentMethod = "card"
	MethodCheque PaymentMethod = "cheque"
)

// Valid reports whether the method is one of the four accepted values.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCard, MethodCheque:
		return true
	}
	return false
}

// PaymentSource records how a payment was initiated.
type PaymentSource string

const (
	// SourceInvoice marks a payment recorded directly against one invoice.
	SourceInvoice PaymentSource = "invoice"
	// SourceCustomer marks an aggregate credit settlement distributed
	// across a customer's outstanding invoices.
	SourceCustomer PaymentSource = "customer"
)

// Invoice model. Status is derived from paid vs total, never set
// independently; fullpaid is terminal.
type Invoice struct {
	ID            int64                    `json:"id"`
	Number        string                   `json:"number"`
	CustomerID    int64                    `json:"customer_id"`
	Total         money.Cents              `json:"total"`
	Paid          money.Cents              `json:"paid_amount"`
	DueDate       time.Time                `json:"due_date"`
	Status        settlement.InvoiceStatus `json:"status"`
	LastPaymentAt *time.Time               `json:"last_payment_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Outstanding returns the unpaid remainder.
func (i Invoice) Outstanding() money.Cents {
	return i.Total - i.Paid
}

// Snapshot converts the invoice into the engine's snapshot form.
func (i Invoice) Snapshot() settlement.Invoice {
	return settlement.Invoice{ID: i.ID, Total: i.Total, Paid: i.Paid, DueDate: i.DueDate}
}

// Payment is an append-only record. InvoiceID is nil for customer-source
// settlements that span several invoices.
type Payment struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	CustomerID int64         `json:"customer_id"`
	InvoiceID  *int64        `json:"invoice_id,omitempty"`
	Amount     money.Cents   `json:"amount"`
	Method     PaymentMethod `json:"method"`
	Source     PaymentSource `json:"source"`
	Notes      string        `json:"notes,omitempty"`
	PaidAt     time.Time     `json:"paid_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// PaymentAllocation links a payment to one invoice it settled.
type PaymentAllocation struct {
	ID        int64       `json:"id"`
	PaymentID int64       `json:"payment_id"`
	InvoiceID int64       `json:"invoice_id"`
	Amount    money.Cents `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
}

// Domain errors wrap the httpx sentinels so handlers map them to status
// codes without per-error switches.
var (
	ErrNotFound         = fmt.Errorf("invoice %w", httpx.ErrNotFound)
	ErrInvalidMethod    = fmt.Errorf("invalid payment method: %w", httpx.ErrValidation)
	ErrCustomerRequired = fmt.Errorf("customer ID required: %w", httpx.ErrValidation)
	ErrInvalidTotal     = fmt.Errorf("total must be positive: %w", httpx.ErrValidation)
)
