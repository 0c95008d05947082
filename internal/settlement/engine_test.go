package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ayesh156/eco-system-sub002/internal/money"
)

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}

func threeInvoices() []Invoice {
	return []Invoice{
		{ID: 1, Total: 10000, Paid: 0, DueDate: day(1)},
		{ID: 2, Total: 20000, Paid: 0, DueDate: day(10)},
		{ID: 3, Total: 30000, Paid: 0, DueDate: day(20)},
	}
}

func planTotal(p Plan) money.Cents {
	sum := p.Remainder
	for _, e := range p.Entries {
		sum += e.Applied
	}
	return sum
}

func TestAllocateOldestFirst(t *testing.T) {
	plan, err := Allocate(25000, threeInvoices())
	require.NoError(t, err)
	require.Equal(t, []Allocation{
		{InvoiceID: 1, Applied: 10000},
		{InvoiceID: 2, Applied: 15000},
	}, plan.Entries)
	require.Equal(t, money.Cents(0), plan.Remainder)
}

func TestAllocateConservation(t *testing.T) {
	for _, amount := range []money.Cents{1, 9999, 10000, 25000, 60000, 60001, 99999} {
		plan, err := Allocate(amount, threeInvoices())
		require.NoError(t, err)
		require.Equal(t, amount, planTotal(plan), "amount %d", amount)
	}
}

func TestAllocateNeverOverpaysInvoice(t *testing.T) {
	invoices := []Invoice{
		{ID: 1, Total: 10000, Paid: 4000, DueDate: day(1)},
		{ID: 2, Total: 20000, Paid: 19999, DueDate: day(2)},
	}
	plan, err := Allocate(50000, invoices)
	require.NoError(t, err)
	byID := map[int64]Invoice{1: invoices[0], 2: invoices[1]}
	for _, e := range plan.Entries {
		inv := byID[e.InvoiceID]
		require.LessOrEqual(t, inv.Paid+e.Applied, inv.Total)
	}
}

func TestAllocateExactFit(t *testing.T) {
	plan, err := Allocate(60000, threeInvoices())
	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)
	require.Equal(t, money.Cents(0), plan.Remainder)

	result, err := Apply(plan, threeInvoices(), Account{CreditBalance: 60000, Status: CreditOverdue}, day(25))
	require.NoError(t, err)
	for _, inv := range result.Invoices {
		require.Equal(t, StatusFullPaid, inv.Status)
	}
	require.Equal(t, money.Cents(0), result.Account.CreditBalance)
	require.Equal(t, CreditClear, result.Account.Status)
}

func TestAllocateOvershoot(t *testing.T) {
	plan, err := Allocate(75000, threeInvoices())
	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)
	require.Equal(t, money.Cents(15000), plan.Remainder)
}

func TestAllocateStopsEarly(t *testing.T) {
	plan, err := Allocate(10000, threeInvoices())
	require.NoError(t, err)
	require.Equal(t, []Allocation{{InvoiceID: 1, Applied: 10000}}, plan.Entries)
}

func TestAllocateIdempotent(t *testing.T) {
	first, err := Allocate(25000, threeInvoices())
	require.NoError(t, err)
	second, err := Allocate(25000, threeInvoices())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAllocateResortsUnsortedInput(t *testing.T) {
	shuffled := []Invoice{
		{ID: 3, Total: 30000, Paid: 0, DueDate: day(20)},
		{ID: 1, Total: 10000, Paid: 0, DueDate: day(1)},
		{ID: 2, Total: 20000, Paid: 0, DueDate: day(10)},
	}
	plan, err := Allocate(25000, shuffled)
	require.NoError(t, err)
	require.Equal(t, []Allocation{
		{InvoiceID: 1, Applied: 10000},
		{InvoiceID: 2, Applied: 15000},
	}, plan.Entries)
	// input slice is left untouched
	require.Equal(t, int64(3), shuffled[0].ID)
}

func TestAllocateEqualDueDatesOrderByID(t *testing.T) {
	invoices := []Invoice{
		{ID: 9, Total: 5000, DueDate: day(5)},
		{ID: 2, Total: 5000, DueDate: day(5)},
	}
	plan, err := Allocate(5000, invoices)
	require.NoError(t, err)
	require.Equal(t, []Allocation{{InvoiceID: 2, Applied: 5000}}, plan.Entries)
}

func TestAllocateZeroInvoices(t *testing.T) {
	plan, err := Allocate(10000, nil)
	require.NoError(t, err)
	require.Empty(t, plan.Entries)
	require.Equal(t, money.Cents(10000), plan.Remainder)
}

func TestAllocateInvalidAmount(t *testing.T) {
	_, err := Allocate(0, threeInvoices())
	require.ErrorIs(t, err, ErrInvalidAmount)
	_, err = Allocate(-500, threeInvoices())
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAllocateSingle(t *testing.T) {
	inv := Invoice{ID: 7, Total: 10000, Paid: 2500, DueDate: day(3)}
	plan, err := AllocateSingle(7500, inv)
	require.NoError(t, err)
	require.Equal(t, []Allocation{{InvoiceID: 7, Applied: 7500}}, plan.Entries)
	require.Equal(t, money.Cents(0), plan.Remainder)
}

func TestAllocateSingleRejectsOverpayment(t *testing.T) {
	inv := Invoice{ID: 7, Total: 10000, Paid: 2500, DueDate: day(3)}
	_, err := AllocateSingle(7501, inv)
	require.ErrorIs(t, err, ErrOverpayment)
}

func TestAllocateSingleInvalidAmount(t *testing.T) {
	_, err := AllocateSingle(0, Invoice{ID: 7, Total: 10000})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestApplyUpdatesStatuses(t *testing.T) {
	plan, err := Allocate(25000, threeInvoices())
	require.NoError(t, err)

	paidAt := day(25)
	result, err := Apply(plan, threeInvoices(), Account{CreditBalance: 60000, Status: CreditActive}, paidAt)
	require.NoError(t, err)
	require.Len(t, result.Invoices, 2)

	require.Equal(t, StatusFullPaid, result.Invoices[0].Status)
	require.Equal(t, money.Cents(10000), result.Invoices[0].Paid)
	require.Equal(t, StatusPartial, result.Invoices[1].Status)
	require.Equal(t, money.Cents(15000), result.Invoices[1].Paid)
	require.Equal(t, paidAt, result.Invoices[0].LastPaymentAt)

	require.Equal(t, money.Cents(35000), result.Account.CreditBalance)
	require.Equal(t, CreditActive, result.Account.Status)
}

func TestApplyPreservesOverdueStatusWhileBalanceRemains(t *testing.T) {
	plan, err := Allocate(10000, threeInvoices())
	require.NoError(t, err)
	result, err := Apply(plan, threeInvoices(), Account{CreditBalance: 60000, Status: CreditOverdue}, day(25))
	require.NoError(t, err)
	require.Equal(t, CreditOverdue, result.Account.Status)
}

func TestApplyMissingInvoiceAborts(t *testing.T) {
	plan, err := Allocate(25000, threeInvoices())
	require.NoError(t, err)

	// stale snapshot: invoice 2 disappeared between allocate and apply
	stale := []Invoice{
		{ID: 1, Total: 10000, DueDate: day(1)},
		{ID: 3, Total: 30000, DueDate: day(20)},
	}
	result, err := Apply(plan, stale, Account{CreditBalance: 40000, Status: CreditActive}, day(25))
	require.ErrorIs(t, err, ErrInvoiceNotFound)
	require.Empty(t, result.Invoices)
}

func TestApplyBalanceNeverNegative(t *testing.T) {
	plan, err := Allocate(25000, threeInvoices())
	require.NoError(t, err)
	result, err := Apply(plan, threeInvoices(), Account{CreditBalance: 20000, Status: CreditActive}, day(25))
	require.NoError(t, err)
	require.Equal(t, money.Cents(0), result.Account.CreditBalance)
	require.Equal(t, CreditClear, result.Account.Status)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, StatusUnpaid, StatusFor(1000, 0))
	require.Equal(t, StatusPartial, StatusFor(1000, 999))
	require.Equal(t, StatusFullPaid, StatusFor(1000, 1000))
}
