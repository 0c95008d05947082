package grn

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/shared"
)

type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

func NewService(repo Repository, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

type CreateLineInput struct {
	ProductID   int64       `json:"product_id" validate:"required,gt=0"`
	Qty         int64       `json:"qty" validate:"required,gt=0"`
	UnitCost    money.Cents `json:"unit_cost" validate:"gte=0"`
	DiscountPct string      `json:"discount_pct" validate:"omitempty,max=10"`
}

type CreateGRNInput struct {
	SupplierID  int64             `json:"supplier_id" validate:"required,gt=0"`
	Number      string            `json:"number" validate:"omitempty,max=50"`
	DiscountPct string            `json:"discount_pct" validate:"omitempty,max=10"`
	ReceivedAt  time.Time         `json:"received_at"`
	Notes       *string           `json:"notes" validate:"omitempty,max=500"`
	Lines       []CreateLineInput `json:"lines" validate:"required,min=1,dive"`
}

// Create stores a draft note with its discount math already settled. Stock
// does not move until the note is posted.
func (s *Service) Create(ctx context.Context, input CreateGRNInput) (*GRN, error) {
	if len(input.Lines) == 0 {
		return nil, ErrNoLines
	}
	notePct, err := parsePct(input.DiscountPct)
	if err != nil {
		return nil, err
	}

	note := GRN{
		Number:      input.Number,
		SupplierID:  input.SupplierID,
		Status:      StatusDraft,
		DiscountPct: notePct.String(),
		ReceivedAt:  input.ReceivedAt,
		Notes:       input.Notes,
	}
	if note.Number == "" {
		note.Number = fmt.Sprintf("GRN-%s", uuid.NewString()[:8])
	}
	if note.ReceivedAt.IsZero() {
		note.ReceivedAt = time.Now()
	}

	var subtotal money.Cents
	for _, in := range input.Lines {
		linePct, err := parsePct(in.DiscountPct)
		if err != nil {
			return nil, err
		}
		total := lineTotal(in.Qty, in.UnitCost, linePct)
		subtotal += total
		note.Lines = append(note.Lines, Line{
			ProductID:   in.ProductID,
			Qty:         in.Qty,
			UnitCost:    in.UnitCost,
			DiscountPct: linePct.String(),
			LineTotal:   total,
		})
	}
	note.Subtotal = subtotal
	note.Total = noteTotal(subtotal, notePct)

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, note)
		if err != nil {
			return err
		}
		note.ID = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create goods received note: %w", err)
	}
	s.recordAudit(ctx, "GRN_CREATE", note.ID, map[string]any{"number": note.Number, "total": note.Total})
	return &note, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*GRN, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListGRNsRequest) ([]GRN, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) ListPayments(ctx context.Context, grnID int64) ([]SupplierPayment, error) {
	return s.repo.ListPayments(ctx, grnID)
}

// Post moves the note's quantities into stock and locks it against edits.
func (s *Service) Post(ctx context.Context, id int64) (*GRN, error) {
	var note *GRN
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		note, err = repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if note.Status != StatusDraft {
			return ErrNotDraft
		}
		now := time.Now()
		if err := repo.MarkPosted(ctx, id, now); err != nil {
			return err
		}
		for _, line := range note.Lines {
			if err := repo.AdjustProductStock(ctx, line.ProductID, line.Qty); err != nil {
				return err
			}
		}
		note.Status = StatusPosted
		note.PostedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "GRN_POST", id, map[string]any{"number": note.Number})
	return note, nil
}

type PayGRNInput struct {
	GRNID          int64         `json:"-"`
	Amount         money.Cents   `json:"amount" validate:"required,gt=0"`
	Method         PaymentMethod `json:"method" validate:"required,oneof=cash bank card cheque credit"`
	Notes          string        `json:"notes" validate:"omitempty,max=500"`
	IdempotencyKey string        `json:"-"`
}

// Pay records a supplier payment against a posted note. Overshooting the
// outstanding balance is rejected, matching the single-invoice rule on
// the customer side.
func (s *Service) Pay(ctx context.Context, input PayGRNInput) (*SupplierPayment, error) {
	if !input.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	if input.Amount <= 0 {
		return nil, ErrInvalidPayment
	}
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "grn.payments"); err != nil {
			return nil, err
		}
	}

	payment := SupplierPayment{
		GRNID:  input.GRNID,
		Amount: input.Amount,
		Method: input.Method,
		Notes:  input.Notes,
		PaidAt: time.Now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		note, err := repo.Get(ctx, input.GRNID)
		if err != nil {
			return err
		}
		if note.Status != StatusPosted {
			return ErrNotPosted
		}
		if input.Amount > note.Outstanding() {
			return ErrOverpayment
		}
		id, err := repo.InsertPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = id
		return repo.ApplyPayment(ctx, note.ID, note.Paid+input.Amount)
	})
	if err != nil {
		if s.idempotency != nil && input.IdempotencyKey != "" {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return nil, err
	}
	s.recordAudit(ctx, "GRN_PAYMENT", payment.ID, map[string]any{
		"grn_id": input.GRNID,
		"amount": input.Amount,
		"method": input.Method,
	})
	return &payment, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "grn", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
