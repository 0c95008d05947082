package customers

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/settlement"
)

type memoryRepo struct {
	nextID       int64
	customers    map[int64]*Customer
	summaryCalls int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, customers: map[int64]*Customer{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryRepo) GetByCode(_ context.Context, code string) (*Customer, error) {
	for _, c := range m.customers {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, _ ListCustomersRequest) ([]Customer, int, error) {
	var out []Customer
	for _, c := range m.customers {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, c Customer) (int64, error) {
	id := m.nextID
	m.nextID++
	c.ID = id
	m.customers[id] = &c
	return id, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	c, ok := m.customers[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		c.Name = v.(string)
	}
	if v, ok := updates["credit_limit"]; ok {
		c.CreditLimit = v.(money.Cents)
	}
	if v, ok := updates["is_active"]; ok {
		c.IsActive = v.(bool)
	}
	return nil
}

func (m *memoryRepo) GetCreditSummary(_ context.Context, id int64) (*CreditSummary, error) {
	m.summaryCalls++
	c, ok := m.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &CreditSummary{
		CustomerID:    id,
		CreditBalance: c.CreditBalance,
		CreditStatus:  c.CreditStatus,
		CreditLimit:   c.CreditLimit,
	}, nil
}

func (m *memoryRepo) ListOverdue(_ context.Context) ([]Customer, error) {
	var out []Customer
	for _, c := range m.customers {
		if c.CreditStatus == settlement.CreditOverdue && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryRepo) GenerateCode(_ context.Context) (string, error) {
	return "CUS-00042", nil
}

func testCache(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCreateCustomerGeneratesCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	c, err := svc.Create(context.Background(), CreateCustomerRequest{Name: "Nimal Stores"})
	require.NoError(t, err)
	require.Equal(t, "CUS-00042", c.Code)
	require.Equal(t, settlement.CreditClear, c.CreditStatus)
	require.True(t, c.IsActive)
	require.Zero(t, c.CreditBalance)
}

func TestCreateCustomerRejectsDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.Create(context.Background(), CreateCustomerRequest{Code: "CUS-1", Name: "First"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateCustomerRequest{Code: "CUS-1", Name: "Second"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdateCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testCache(t))

	c, err := svc.Create(context.Background(), CreateCustomerRequest{Code: "CUS-1", Name: "Old Name"})
	require.NoError(t, err)

	name := "New Name"
	limit := money.Cents(50_000)
	updated, err := svc.Update(context.Background(), c.ID, UpdateCustomerRequest{Name: &name, CreditLimit: &limit})
	require.NoError(t, err)
	require.Equal(t, "New Name", updated.Name)
	require.Equal(t, limit, updated.CreditLimit)
}

func TestUpdateCustomerNotFound(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	name := "x"
	_, err := svc.Update(context.Background(), 99, UpdateCustomerRequest{Name: &name})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetCreditSummaryCaches(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testCache(t))

	c, err := svc.Create(context.Background(), CreateCustomerRequest{Code: "CUS-1", Name: "Cached"})
	require.NoError(t, err)
	repo.customers[c.ID].CreditBalance = 7_500
	repo.customers[c.ID].CreditStatus = settlement.CreditActive

	first, err := svc.GetCreditSummary(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, money.Cents(7_500), first.CreditBalance)
	require.Equal(t, 1, repo.summaryCalls)

	// Second read is served from cache.
	second, err := svc.GetCreditSummary(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.summaryCalls)

	// Invalidation forces a fresh query.
	svc.InvalidateCreditSummary(context.Background(), c.ID)
	_, err = svc.GetCreditSummary(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, 2, repo.summaryCalls)
}

func TestCreditSummaryOverLimit(t *testing.T) {
	s := CreditSummary{CreditLimit: 10_000, CreditBalance: 10_001}
	require.True(t, s.OverLimit())
	s.CreditBalance = 10_000
	require.False(t, s.OverLimit())
	s = CreditSummary{CreditLimit: 0, CreditBalance: 1_000_000}
	require.False(t, s.OverLimit())
}
