package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/settlement"
	"github.com/ayesh156/eco-system-sub002/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates ledger operations around the settlement engine.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService builds a Service instance.
func NewService(repo Repository, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// CreateInvoiceInput describes a new ledger entry from the sale flow.
type CreateInvoiceInput struct {
	CustomerID int64       `json:"customer_id" validate:"required,gt=0"`
	Number     string      `json:"number" validate:"omitempty,max=50"`
	Total      money.Cents `json:"total" validate:"required,gt=0"`
	DueDate    time.Time   `json:"due_date" validate:"required"`
}

// CreateInvoice records a new unpaid invoice and grows the customer's
// credit balance by its total.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	if input.CustomerID == 0 {
		return nil, ErrCustomerRequired
	}
	if input.Total <= 0 {
		return nil, ErrInvalidTotal
	}
	if input.Number == "" {
		input.Number = generateNumber("INV")
	}
	inv := Invoice{
		Number:     input.Number,
		CustomerID: input.CustomerID,
		Total:      input.Total,
		Paid:       0,
		DueDate:    input.DueDate,
		Status:     settlement.StatusUnpaid,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id
		account, err := repo.GetCustomerCredit(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		balance := account.CreditBalance + input.Total
		status := account.Status
		if status == settlement.CreditClear || status == "" {
			status = settlement.CreditActive
		}
		return repo.UpdateCustomerCredit(ctx, input.CustomerID, balance, status)
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "INVOICE_CREATE", inv.ID, map[string]any{"number": inv.Number, "total": inv.Total})
	return &inv, nil
}

// GetInvoice returns one invoice with its payment allocations.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, []PaymentAllocation, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := s.repo.ListInvoiceAllocations(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return inv, allocations, nil
}

// ListInvoices returns invoices with pagination metadata.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.ListInvoices(ctx, req)
}

// GetOutstandingInvoices returns a customer's unpaid invoices ascending by
// due date, the snapshot the settlement engine expects.
func (s *Service) GetOutstandingInvoices(ctx context.Context, customerID int64) ([]Invoice, error) {
	return s.repo.ListOutstanding(ctx, customerID)
}

// ListPayments returns a customer's payment history.
func (s *Service) ListPayments(ctx context.Context, customerID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, customerID)
}

// RecordPaymentInput describes a payment against one specific invoice.
type RecordPaymentInput struct {
	InvoiceID      int64         `json:"invoice_id" validate:"required,gt=0"`
	Amount         money.Cents   `json:"amount" validate:"required,gt=0"`
	Method         PaymentMethod `json:"method" validate:"required,oneof=cash bank card cheque"`
	Notes          string        `json:"notes" validate:"omitempty,max=500"`
	IdempotencyKey string        `json:"-"`
}

// SettleInput describes an aggregate credit settlement for one customer.
type SettleInput struct {
	CustomerID     int64         `json:"customer_id" validate:"required,gt=0"`
	Amount         money.Cents   `json:"amount" validate:"required,gt=0"`
	Method         PaymentMethod `json:"method" validate:"required,oneof=cash bank card cheque"`
	Notes          string        `json:"notes" validate:"omitempty,max=500"`
	IdempotencyKey string        `json:"-"`
}

// SettlementResponse reports what a payment did. A positive remainder is not
// an error; the caller decides how to present it.
type SettlementResponse struct {
	Payment       Payment                 `json:"payment"`
	Plan          settlement.Plan         `json:"plan"`
	Invoices      []Invoice               `json:"invoices"`
	CreditBalance money.Cents             `json:"credit_balance"`
	CreditStatus  settlement.CreditStatus `json:"credit_status"`
}

// RecordInvoicePayment is the single-invoice path. Overpayment is rejected,
// not clamped: a targeted payment that overshoots its one invoice is a user
// input error.
func (s *Service) RecordInvoicePayment(ctx context.Context, input RecordPaymentInput) (*SettlementResponse, error) {
	if !input.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	idemKey, err := s.claimIdempotency(ctx, input.IdempotencyKey, "payments.invoice")
	if err != nil {
		return nil, err
	}

	var resp *SettlementResponse
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.GetInvoice(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		plan, err := settlement.AllocateSingle(input.Amount, inv.Snapshot())
		if err != nil {
			return err
		}
		resp, err = s.persistSettlement(ctx, repo, plan, []Invoice{*inv}, inv.CustomerID, Payment{
			Number:     generateNumber("PAY"),
			CustomerID: inv.CustomerID,
			InvoiceID:  &inv.ID,
			Amount:     input.Amount,
			Method:     input.Method,
			Source:     SourceInvoice,
			Notes:      input.Notes,
			PaidAt:     time.Now(),
		})
		return err
	})
	if err != nil {
		s.releaseIdempotency(ctx, idemKey)
		return nil, err
	}
	s.recordAudit(ctx, "PAYMENT_RECORD", resp.Payment.ID, map[string]any{
		"invoice_id": input.InvoiceID,
		"amount":     input.Amount,
		"method":     input.Method,
	})
	return resp, nil
}

// SettleCustomerPayment distributes a payment across the customer's
// outstanding invoices oldest-first and recomputes the credit account. The
// snapshot, the allocation and every write share one repeatable-read
// transaction, so concurrent settlements for one customer serialize.
func (s *Service) SettleCustomerPayment(ctx context.Context, input SettleInput) (*SettlementResponse, error) {
	if !input.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	idemKey, err := s.claimIdempotency(ctx, input.IdempotencyKey, "payments.customer")
	if err != nil {
		return nil, err
	}

	var resp *SettlementResponse
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		outstanding, err := repo.ListOutstanding(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		snapshots := make([]settlement.Invoice, len(outstanding))
		for i, inv := range outstanding {
			snapshots[i] = inv.Snapshot()
		}
		plan, err := settlement.Allocate(input.Amount, snapshots)
		if err != nil {
			return err
		}
		resp, err = s.persistSettlement(ctx, repo, plan, outstanding, input.CustomerID, Payment{
			Number:     generateNumber("PAY"),
			CustomerID: input.CustomerID,
			Amount:     input.Amount,
			Method:     input.Method,
			Source:     SourceCustomer,
			Notes:      input.Notes,
			PaidAt:     time.Now(),
		})
		return err
	})
	if err != nil {
		s.releaseIdempotency(ctx, idemKey)
		return nil, err
	}
	s.recordAudit(ctx, "SETTLEMENT_APPLY", resp.Payment.ID, map[string]any{
		"customer_id": input.CustomerID,
		"amount":      input.Amount,
		"remainder":   resp.Plan.Remainder,
	})
	return resp, nil
}

// persistSettlement applies a plan inside the caller's transaction: payment
// row, per-invoice allocations, invoice updates, then the credit account.
func (s *Service) persistSettlement(ctx context.Context, repo Repository, plan settlement.Plan, snapshot []Invoice, customerID int64, payment Payment) (*SettlementResponse, error) {
	snapshots := make([]settlement.Invoice, len(snapshot))
	byID := make(map[int64]Invoice, len(snapshot))
	for i, inv := range snapshot {
		snapshots[i] = inv.Snapshot()
		byID[inv.ID] = inv
	}

	account, err := repo.GetCustomerCredit(ctx, customerID)
	if err != nil {
		return nil, err
	}
	result, err := settlement.Apply(plan, snapshots, account, payment.PaidAt)
	if err != nil {
		return nil, err
	}

	paymentID, err := repo.InsertPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = paymentID

	updated := make([]Invoice, 0, len(result.Invoices))
	for _, settled := range result.Invoices {
		if err := repo.InsertAllocation(ctx, paymentID, settled.ID, settled.Applied); err != nil {
			return nil, err
		}
		if err := repo.ApplyInvoiceSettlement(ctx, settled); err != nil {
			return nil, err
		}
		inv := byID[settled.ID]
		inv.Paid = settled.Paid
		inv.Status = settled.Status
		at := settled.LastPaymentAt
		inv.LastPaymentAt = &at
		updated = append(updated, inv)
	}

	// Overdue classification is the ledger's call, not the engine's: it
	// depends on the due dates of every invoice still outstanding after this
	// settlement, not just the ones this payment touched. Re-read the full
	// outstanding set inside the same transaction, post-update.
	status := result.Account.Status
	if result.Account.CreditBalance > 0 {
		remaining, err := repo.ListOutstanding(ctx, customerID)
		if err != nil {
			return nil, err
		}
		status = classifyCredit(remaining, payment.PaidAt)
	}
	if err := repo.UpdateCustomerCredit(ctx, customerID, result.Account.CreditBalance, status); err != nil {
		return nil, err
	}

	return &SettlementResponse{
		Payment:       payment,
		Plan:          plan,
		Invoices:      updated,
		CreditBalance: result.Account.CreditBalance,
		CreditStatus:  status,
	}, nil
}

// classifyCredit inspects the invoices still outstanding after settlement.
// A caller with a positive balance is never clear: overdue when any remaining
// invoice is past due at asOf, active otherwise.
func classifyCredit(outstanding []Invoice, asOf time.Time) settlement.CreditStatus {
	for _, inv := range outstanding {
		if inv.DueDate.Before(asOf) {
			return settlement.CreditOverdue
		}
	}
	return settlement.CreditActive
}

func (s *Service) claimIdempotency(ctx context.Context, key, module string) (string, error) {
	if s.idempotency == nil || key == "" {
		return "", nil
	}
	if err := s.idempotency.CheckAndInsert(ctx, key, module); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) releaseIdempotency(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	_ = s.idempotency.Delete(ctx, key)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "invoices", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}
