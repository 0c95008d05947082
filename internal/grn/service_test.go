package grn

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ayesh156/eco-system-sub002/internal/money"
)

type memoryRepo struct {
	nextGRNID     int64
	nextPaymentID int64
	notes         map[int64]*GRN
	stock         map[int64]int64
	payments      []SupplierPayment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextGRNID:     1,
		nextPaymentID: 1,
		notes:         map[int64]*GRN{},
		stock:         map[int64]int64{},
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Create(_ context.Context, note GRN) (int64, error) {
	id := m.nextGRNID
	m.nextGRNID++
	note.ID = id
	for i := range note.Lines {
		note.Lines[i].GRNID = id
	}
	m.notes[id] = &note
	return id, nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*GRN, error) {
	note, ok := m.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *note
	return &cp, nil
}

func (m *memoryRepo) List(_ context.Context, _ ListGRNsRequest) ([]GRN, int, error) {
	var out []GRN
	for _, n := range m.notes {
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *memoryRepo) MarkPosted(_ context.Context, id int64, at time.Time) error {
	note, ok := m.notes[id]
	if !ok || note.Status != StatusDraft {
		return ErrNotDraft
	}
	note.Status = StatusPosted
	note.PostedAt = &at
	return nil
}

func (m *memoryRepo) AdjustProductStock(_ context.Context, productID, delta int64) error {
	m.stock[productID] += delta
	return nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, p SupplierPayment) (int64, error) {
	id := m.nextPaymentID
	m.nextPaymentID++
	p.ID = id
	m.payments = append(m.payments, p)
	return id, nil
}

func (m *memoryRepo) ApplyPayment(_ context.Context, id int64, paid money.Cents) error {
	note, ok := m.notes[id]
	if !ok || paid > note.Total {
		return ErrNotFound
	}
	note.Paid = paid
	return nil
}

func (m *memoryRepo) ListPayments(_ context.Context, grnID int64) ([]SupplierPayment, error) {
	var out []SupplierPayment
	for _, p := range m.payments {
		if p.GRNID == grnID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestLineTotalRounding(t *testing.T) {
	// 3 x 9.99 with 5% discount = 28.4715 -> 28.47
	pct, err := parsePct("5")
	require.NoError(t, err)
	require.Equal(t, money.Cents(2_847), lineTotal(3, 999, pct))

	half := decimal.RequireFromString("12.5")
	require.Equal(t, money.Cents(194), lineTotal(2, 111, half))

	// Exact half cent rounds away from zero: 1 x 0.25 at 50% = 0.125 -> 0.13
	fifty := decimal.RequireFromString("50")
	require.Equal(t, money.Cents(13), lineTotal(1, 25, fifty))
}

func TestCreateComputesTotals(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	note, err := svc.Create(context.Background(), CreateGRNInput{
		SupplierID:  1,
		DiscountPct: "10",
		Lines: []CreateLineInput{
			{ProductID: 1, Qty: 10, UnitCost: 1_000},                  // 100.00
			{ProductID: 2, Qty: 4, UnitCost: 2_500, DiscountPct: "5"}, // 95.00
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, note.Status)
	require.Equal(t, money.Cents(19_500), note.Subtotal)
	require.Equal(t, money.Cents(17_550), note.Total)
	require.Zero(t, note.Paid)
	require.NotEmpty(t, note.Number)
}

func TestCreateRejectsBadDiscount(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateGRNInput{
		SupplierID:  1,
		DiscountPct: "101",
		Lines:       []CreateLineInput{{ProductID: 1, Qty: 1, UnitCost: 100}},
	})
	require.ErrorIs(t, err, ErrInvalidPct)

	_, err = svc.Create(context.Background(), CreateGRNInput{SupplierID: 1})
	require.ErrorIs(t, err, ErrNoLines)
}

func TestPostMovesStockOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	note, err := svc.Create(context.Background(), CreateGRNInput{
		SupplierID: 1,
		Lines: []CreateLineInput{
			{ProductID: 7, Qty: 12, UnitCost: 500},
			{ProductID: 8, Qty: 3, UnitCost: 900},
		},
	})
	require.NoError(t, err)

	posted, err := svc.Post(context.Background(), note.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.Equal(t, int64(12), repo.stock[7])
	require.Equal(t, int64(3), repo.stock[8])

	_, err = svc.Post(context.Background(), note.ID)
	require.ErrorIs(t, err, ErrNotDraft)
	require.Equal(t, int64(12), repo.stock[7])
}

func TestPaySupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	note, err := svc.Create(context.Background(), CreateGRNInput{
		SupplierID: 1,
		Lines:      []CreateLineInput{{ProductID: 1, Qty: 10, UnitCost: 1_000}},
	})
	require.NoError(t, err)

	// Draft notes cannot take payments.
	_, err = svc.Pay(context.Background(), PayGRNInput{GRNID: note.ID, Amount: 1_000, Method: MethodCash})
	require.ErrorIs(t, err, ErrNotPosted)

	_, err = svc.Post(context.Background(), note.ID)
	require.NoError(t, err)

	payment, err := svc.Pay(context.Background(), PayGRNInput{GRNID: note.ID, Amount: 4_000, Method: MethodCredit})
	require.NoError(t, err)
	require.Equal(t, MethodCredit, payment.Method)

	updated, _ := repo.Get(context.Background(), note.ID)
	require.Equal(t, money.Cents(4_000), updated.Paid)
	require.Equal(t, money.Cents(6_000), updated.Outstanding())
}

func TestPayRejectsOverpayment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	note, err := svc.Create(context.Background(), CreateGRNInput{
		SupplierID: 1,
		Lines:      []CreateLineInput{{ProductID: 1, Qty: 1, UnitCost: 10_000}},
	})
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), note.ID)
	require.NoError(t, err)

	_, err = svc.Pay(context.Background(), PayGRNInput{GRNID: note.ID, Amount: 10_001, Method: MethodCash})
	require.ErrorIs(t, err, ErrOverpayment)

	_, err = svc.Pay(context.Background(), PayGRNInput{GRNID: note.ID, Amount: 0, Method: MethodCash})
	require.ErrorIs(t, err, ErrInvalidPayment)

	_, err = svc.Pay(context.Background(), PayGRNInput{GRNID: note.ID, Amount: 100, Method: "voucher"})
	require.ErrorIs(t, err, ErrInvalidMethod)

	updated, _ := repo.Get(context.Background(), note.ID)
	require.Zero(t, updated.Paid)
	require.Empty(t, repo.payments)
}
