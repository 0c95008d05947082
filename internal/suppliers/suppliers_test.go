package suppliers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	nextID    int64
	suppliers map[int64]*Supplier
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, suppliers: map[int64]*Supplier{}}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Supplier, error) {
	s, ok := m.suppliers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryRepo) GetByCode(_ context.Context, code string) (*Supplier, error) {
	for _, s := range m.suppliers {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(_ context.Context, search string, _, _ int) ([]Supplier, int, error) {
	var out []Supplier
	for _, s := range m.suppliers {
		if search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, s Supplier) (int64, error) {
	id := m.nextID
	m.nextID++
	s.ID = id
	m.suppliers[id] = &s
	return id, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, updates map[string]any) error {
	s, ok := m.suppliers[id]
	if !ok {
		return ErrNotFound
	}
	for col, val := range updates {
		switch col {
		case "name":
			s.Name = val.(string)
		case "phone":
			v := val.(string)
			s.Phone = &v
		case "email":
			v := val.(string)
			s.Email = &v
		case "address":
			v := val.(string)
			s.Address = &v
		case "is_active":
			s.IsActive = val.(bool)
		}
	}
	return nil
}

func str(s string) *string { return &s }

func TestCreateSupplierNormalizesCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	supplier, err := svc.Create(context.Background(), CreateSupplierRequest{
		Code:  " sup-001 ",
		Name:  "Lanka Traders",
		Phone: str("+94112223344"),
	})
	require.NoError(t, err)
	require.NotZero(t, supplier.ID)
	require.Equal(t, "SUP-001", supplier.Code)
	require.True(t, supplier.IsActive)
}

func TestCreateSupplierRejectsDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), CreateSupplierRequest{Code: "SUP-001", Name: "Lanka Traders"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateSupplierRequest{Code: "sup-001", Name: "Other Traders"})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdateSupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), CreateSupplierRequest{Code: "SUP-001", Name: "Lanka Traders"})
	require.NoError(t, err)

	inactive := false
	updated, err := svc.Update(context.Background(), created.ID, UpdateSupplierRequest{
		Name:     str("Lanka Traders (Pvt) Ltd"),
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "Lanka Traders (Pvt) Ltd", updated.Name)
	require.False(t, updated.IsActive)
	require.Equal(t, "SUP-001", updated.Code)

	_, err = svc.Update(context.Background(), 99, UpdateSupplierRequest{Name: str("Nobody")})
	require.ErrorIs(t, err, ErrNotFound)
}
