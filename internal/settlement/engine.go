// Package settlement distributes customer payments across outstanding
// invoices and recomputes credit balances. The engine is a pure function
// over snapshots: it owns no state and writes nothing; callers persist the
// returned plan atomically.
package settlement

import (
	"errors"
	"sort"
	"time"

	"github.com/ayesh156/eco-system-sub002/internal/money"
)

var (
	// ErrInvalidAmount occurs when a non-positive amount is allocated.
	ErrInvalidAmount = errors.New("settlement: amount must be positive")
	// ErrOverpayment occurs on the single-invoice path when the amount
	// exceeds that invoice's outstanding balance.
	ErrOverpayment = errors.New("settlement: amount exceeds invoice outstanding balance")
	// ErrInvoiceNotFound occurs when a plan references an invoice missing
	// from the snapshot given to Apply.
	ErrInvoiceNotFound = errors.New("settlement: plan references invoice missing from snapshot")
)

// InvoiceStatus is derived from paid vs total, never set independently.
type InvoiceStatus string

const (
	StatusUnpaid   InvoiceStatus = "unpaid"
	StatusPartial  InvoiceStatus = "partial"
	StatusFullPaid InvoiceStatus = "fullpaid"
)

// StatusFor derives the three-way invoice status.
func StatusFor(total, paid money.Cents) InvoiceStatus {
	switch {
	case paid <= 0:
		return StatusUnpaid
	case paid < total:
		return StatusPartial
	default:
		return StatusFullPaid
	}
}

// CreditStatus classifies a customer credit account.
type CreditStatus string

const (
	CreditClear   CreditStatus = "clear"
	CreditActive  CreditStatus = "active"
	CreditOverdue CreditStatus = "overdue"
)

// Invoice is a snapshot of an outstanding invoice at allocation time.
type Invoice struct {
	ID      int64
	Total   money.Cents
	Paid    money.Cents
	DueDate time.Time
}

// Outstanding returns the unpaid remainder of the invoice.
func (i Invoice) Outstanding() money.Cents {
	return i.Total - i.Paid
}

// Allocation records how much of a payment one invoice receives.
type Allocation struct {
	InvoiceID int64       `json:"invoice_id"`
	Applied   money.Cents `json:"applied"`
}

// Plan is the result of distributing a payment. The applied entries plus the
// remainder always sum to the original amount.
type Plan struct {
	Amount    money.Cents  `json:"amount"`
	Entries   []Allocation `json:"entries"`
	Remainder money.Cents  `json:"unallocated_remainder"`
}

// Allocate distributes amount across the invoices oldest-first. Invoices are
// re-sorted ascending by due date (ties broken by ID) so callers cannot
// silently change the policy by passing unsorted input. A positive remainder
// means the amount exceeded the total outstanding; that is a normal outcome,
// not an error.
func Allocate(amount money.Cents, invoices []Invoice) (Plan, error) {
	if amount <= 0 {
		return Plan{}, ErrInvalidAmount
	}

	ordered := make([]Invoice, len(invoices))
	copy(ordered, invoices)
	sort.SliceStable(ordered, func(a, b int) bool {
		if ordered[a].DueDate.Equal(ordered[b].DueDate) {
			return ordered[a].ID < ordered[b].ID
		}
		return ordered[a].DueDate.Before(ordered[b].DueDate)
	})

	plan := Plan{Amount: amount}
	remaining := amount
	for _, inv := range ordered {
		if remaining == 0 {
			break
		}
		outstanding := inv.Outstanding()
		if outstanding <= 0 {
			continue
		}
		applied := outstanding
		if remaining < applied {
			applied = remaining
		}
		plan.Entries = append(plan.Entries, Allocation{InvoiceID: inv.ID, Applied: applied})
		remaining -= applied
	}
	plan.Remainder = remaining
	return plan, nil
}

// AllocateSingle handles a payment recorded directly against one invoice.
// Unlike the bulk path, which clamps per invoice and reports a remainder, a
// targeted payment that overshoots its invoice is a user input error.
func AllocateSingle(amount money.Cents, invoice Invoice) (Plan, error) {
	if amount <= 0 {
		return Plan{}, ErrInvalidAmount
	}
	if amount > invoice.Outstanding() {
		return Plan{}, ErrOverpayment
	}
	return Plan{
		Amount:  amount,
		Entries: []Allocation{{InvoiceID: invoice.ID, Applied: amount}},
	}, nil
}

// Account is a snapshot of a customer credit account.
type Account struct {
	CreditBalance money.Cents
	Status        CreditStatus
}

// SettledInvoice is an invoice after a plan entry has been applied to it.
type SettledInvoice struct {
	ID            int64
	Total         money.Cents
	Paid          money.Cents
	DueDate       time.Time
	Status        InvoiceStatus
	Applied       money.Cents
	LastPaymentAt time.Time
}

// Result carries the post-settlement invoice and account states.
type Result struct {
	Invoices []SettledInvoice
	Account  Account
}

// Apply folds a plan into the invoice and account snapshots. If any plan
// entry references an invoice absent from the snapshot it fails before
// applying anything, so a stale snapshot never yields a partial settlement.
func Apply(plan Plan, invoices []Invoice, account Account, paidAt time.Time) (Result, error) {
	byID := make(map[int64]Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}
	for _, entry := range plan.Entries {
		if _, ok := byID[entry.InvoiceID]; !ok {
			return Result{}, ErrInvoiceNotFound
		}
	}

	result := Result{Invoices: make([]SettledInvoice, 0, len(plan.Entries))}
	var applied money.Cents
	for _, entry := range plan.Entries {
		inv := byID[entry.InvoiceID]
		paid := inv.Paid + entry.Applied
		result.Invoices = append(result.Invoices, SettledInvoice{
			ID:            inv.ID,
			Total:         inv.Total,
			Paid:          paid,
			DueDate:       inv.DueDate,
			Status:        StatusFor(inv.Total, paid),
			Applied:       entry.Applied,
			LastPaymentAt: paidAt,
		})
		applied += entry.Applied
	}

	balance := account.CreditBalance - applied
	if balance < 0 {
		balance = 0
	}
	status := account.Status
	if balance == 0 {
		status = CreditClear
	}
	result.Account = Account{CreditBalance: balance, Status: status}
	return result, nil
}
