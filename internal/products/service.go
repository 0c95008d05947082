package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayesh156/eco-system-sub002/internal/money"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateProductRequest struct {
	Code         string      `json:"code" validate:"required,max=30"`
	Name         string      `json:"name" validate:"required,max=120"`
	Barcode      *string     `json:"barcode" validate:"omitempty,max=64"`
	Category     *string     `json:"category" validate:"omitempty,max=60"`
	Unit         string      `json:"unit" validate:"required,max=20"`
	CostPrice    money.Cents `json:"cost_price" validate:"gte=0"`
	SellingPrice money.Cents `json:"selling_price" validate:"gte=0"`
	StockQty     int64       `json:"stock_qty" validate:"gte=0"`
	ReorderLevel int64       `json:"reorder_level" validate:"gte=0"`
}

type UpdateProductRequest struct {
	Name         *string      `json:"name" validate:"omitempty,max=120"`
	Barcode      *string      `json:"barcode" validate:"omitempty,max=64"`
	Category     *string      `json:"category" validate:"omitempty,max=60"`
	Unit         *string      `json:"unit" validate:"omitempty,max=20"`
	CostPrice    *money.Cents `json:"cost_price" validate:"omitempty,gte=0"`
	SellingPrice *money.Cents `json:"selling_price" validate:"omitempty,gte=0"`
	ReorderLevel *int64       `json:"reorder_level" validate:"omitempty,gte=0"`
	IsActive     *bool        `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.CostPrice < 0 || req.SellingPrice < 0 {
		return nil, ErrInvalidPrice
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing product: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyExists
	}

	product := Product{
		Code:         code,
		Name:         req.Name,
		Barcode:      req.Barcode,
		Category:     req.Category,
		Unit:         req.Unit,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		StockQty:     req.StockQty,
		ReorderLevel: req.ReorderLevel,
		IsActive:     true,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, product)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	product.ID = id
	return &product, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateProductRequest) (*Product, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Barcode != nil {
		updates["barcode"] = *req.Barcode
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.CostPrice != nil {
		if *req.CostPrice < 0 {
			return nil, ErrInvalidPrice
		}
		updates["cost_price"] = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice < 0 {
			return nil, ErrInvalidPrice
		}
		updates["selling_price"] = *req.SellingPrice
	}
	if req.ReorderLevel != nil {
		updates["reorder_level"] = *req.ReorderLevel
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
			return repo.Update(ctx, id, updates)
		})
		if err != nil {
			return nil, fmt.Errorf("update product: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	return s.repo.List(ctx, req)
}

// AdjustStock applies a manual stock correction. Goods receipts move
// stock inside their own posting transaction instead.
func (s *Service) AdjustStock(ctx context.Context, id int64, delta int64) (*Product, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.AdjustStock(ctx, id, delta)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
