// Package grn handles goods received notes: supplier deliveries, their
// discount math and the payments made against them.
package grn

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
)

type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
)

// PaymentMethod for supplier payments. Unlike customer payments, a
// delivery can be taken on supplier credit.
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodBank   PaymentMethod = "bank"
	MethodCard   PaymentMethod = "card"
	MethodCheque PaymentMethod = "cheque"
	MethodCredit PaymentMethod = "credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCard, MethodCheque, MethodCredit:
		return true
	}
	return false
}

type GRN struct {
	ID          int64       `json:"id"`
	Number      string      `json:"number"`
	SupplierID  int64       `json:"supplier_id"`
	Status      Status      `json:"status"`
	Subtotal    money.Cents `json:"subtotal"`
	DiscountPct string      `json:"discount_pct"`
	Total       money.Cents `json:"total"`
	Paid        money.Cents `json:"paid_amount"`
	ReceivedAt  time.Time   `json:"received_at"`
	PostedAt    *time.Time  `json:"posted_at,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Lines       []Line      `json:"lines,omitempty"`
}

// Outstanding returns the unpaid remainder.
func (g GRN) Outstanding() money.Cents {
	return g.Total - g.Paid
}

type Line struct {
	ID          int64       `json:"id"`
	GRNID       int64       `json:"grn_id"`
	ProductID   int64       `json:"product_id"`
	Qty         int64       `json:"qty"`
	UnitCost    money.Cents `json:"unit_cost"`
	DiscountPct string      `json:"discount_pct"`
	LineTotal   money.Cents `json:"line_total"`
}

type SupplierPayment struct {
	ID        int64         `json:"id"`
	GRNID     int64         `json:"grn_id"`
	Amount    money.Cents   `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Notes     string        `json:"notes,omitempty"`
	PaidAt    time.Time     `json:"paid_at"`
	CreatedAt time.Time     `json:"created_at"`
}

var (
	ErrNotFound       = fmt.Errorf("goods received note %w", httpx.ErrNotFound)
	ErrNotDraft       = fmt.Errorf("note already posted: %w", httpx.ErrValidation)
	ErrNotPosted      = fmt.Errorf("note must be posted before payment: %w", httpx.ErrValidation)
	ErrNoLines        = fmt.Errorf("note needs at least one line: %w", httpx.ErrValidation)
	ErrInvalidMethod  = fmt.Errorf("invalid payment method: %w", httpx.ErrValidation)
	ErrInvalidPct     = fmt.Errorf("discount percent out of range: %w", httpx.ErrValidation)
	ErrOverpayment    = fmt.Errorf("payment exceeds outstanding balance: %w", httpx.ErrValidation)
	ErrInvalidPayment = fmt.Errorf("payment amount must be positive: %w", httpx.ErrValidation)
)

// lineTotal applies the line discount to qty*unitCost and rounds half
// away from zero at the cent.
func lineTotal(qty int64, unitCost money.Cents, discountPct decimal.Decimal) money.Cents {
	gross := decimal.NewFromInt(qty).Mul(unitCost.Decimal())
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(decimal.NewFromInt(100)))
	return money.Round(gross.Mul(factor))
}

// noteTotal applies a note level discount on the line subtotal.
func noteTotal(subtotal money.Cents, discountPct decimal.Decimal) money.Cents {
	factor := decimal.NewFromInt(1).Sub(discountPct.Div(decimal.NewFromInt(100)))
	return money.Round(subtotal.Decimal().Mul(factor))
}

func parsePct(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidPct
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Decimal{}, ErrInvalidPct
	}
	return d, nil
}
