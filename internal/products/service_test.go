package products

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ayesh156/eco-system-sub002/internal/money"
)

type memoryRepo struct {
	nextID   int64
	products map[int64]*Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, products: map[int64]*Product{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryRepo) GetByCode(_ context.Context, code string) (*Product, error) {
	for _, p := range m.products {
		if p.Code == code {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, req ListProductsRequest) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		if req.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Search)) {
			continue
		}
		if req.LowStock && !p.LowStock() {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, p Product) (int64, error) {
	id := m.nextID
	m.nextID++
	p.ID = id
	m.products[id] = &p
	return id, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["name"]; ok {
		p.Name = v.(string)
	}
	if v, ok := updates["selling_price"]; ok {
		p.SellingPrice = v.(money.Cents)
	}
	if v, ok := updates["is_active"]; ok {
		p.IsActive = v.(bool)
	}
	return nil
}

func (m *memoryRepo) AdjustStock(_ context.Context, id int64, delta int64) error {
	p, ok := m.products[id]
	if !ok {
		return ErrNotFound
	}
	if p.StockQty+delta < 0 {
		return ErrNotFound
	}
	p.StockQty += delta
	return nil
}

func TestCreateProductNormalizesCode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.Create(context.Background(), CreateProductRequest{
		Code: " rice-5kg ", Name: "Rice 5kg", Unit: "bag",
		CostPrice: 90_000, SellingPrice: 105_000,
	})
	require.NoError(t, err)
	require.Equal(t, "RICE-5KG", p.Code)
	require.True(t, p.IsActive)
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateProductRequest{Code: "P1", Name: "One", Unit: "pcs"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateProductRequest{Code: "P1", Name: "Two", Unit: "pcs"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdateProductPrices(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreateProductRequest{Code: "P1", Name: "One", Unit: "pcs", SellingPrice: 5_000})
	require.NoError(t, err)

	price := money.Cents(6_500)
	updated, err := svc.Update(context.Background(), p.ID, UpdateProductRequest{SellingPrice: &price})
	require.NoError(t, err)
	require.Equal(t, price, updated.SellingPrice)

	bad := money.Cents(-1)
	_, err = svc.Update(context.Background(), p.ID, UpdateProductRequest{SellingPrice: &bad})
	require.ErrorIs(t, err, ErrInvalidPrice)
}

func TestAdjustStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreateProductRequest{Code: "P1", Name: "One", Unit: "pcs", StockQty: 10})
	require.NoError(t, err)

	updated, err := svc.AdjustStock(context.Background(), p.ID, -4)
	require.NoError(t, err)
	require.Equal(t, int64(6), updated.StockQty)
}

func TestLowStock(t *testing.T) {
	p := Product{StockQty: 3, ReorderLevel: 5}
	require.True(t, p.LowStock())
	p.StockQty = 6
	require.False(t, p.LowStock())
	p = Product{StockQty: 0, ReorderLevel: 0}
	require.False(t, p.LowStock())
}
