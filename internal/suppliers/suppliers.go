// Package suppliers manages the supplier master used by goods receipts.
package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
)

type Supplier struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Address   *string   `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound      = fmt.Errorf("supplier %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("supplier code %w", httpx.ErrDuplicate)
)

type CreateSupplierRequest struct {
	Code    string  `json:"code" validate:"required,max=20"`
	Name    string  `json:"name" validate:"required,max=120"`
	Phone   *string `json:"phone" validate:"omitempty,max=20"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address" validate:"omitempty,max=300"`
}

type UpdateSupplierRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Address  *string `json:"address" validate:"omitempty,max=300"`
	IsActive *bool   `json:"is_active"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateSupplierRequest) (*Supplier, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing supplier: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	supplier := Supplier{
		Code:     code,
		Name:     req.Name,
		Phone:    req.Phone,
		Email:    req.Email,
		Address:  req.Address,
		IsActive: true,
	}
	id, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return nil, fmt.Errorf("create supplier: %w", err)
	}
	supplier.ID = id
	return &supplier, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateSupplierRequest) (*Supplier, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update supplier: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Supplier, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}
