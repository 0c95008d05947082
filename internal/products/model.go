// Package products manages the product catalogue and stock levels.
package products

import (
	"fmt"
	"time"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
)

type Product struct {
	ID           int64       `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Barcode      *string     `json:"barcode,omitempty"`
	Category     *string     `json:"category,omitempty"`
	Unit         string      `json:"unit"`
	CostPrice    money.Cents `json:"cost_price"`
	SellingPrice money.Cents `json:"selling_price"`
	StockQty     int64       `json:"stock_qty"`
	ReorderLevel int64       `json:"reorder_level"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p Product) LowStock() bool {
	return p.ReorderLevel > 0 && p.StockQty <= p.ReorderLevel
}

var (
	ErrNotFound      = fmt.Errorf("product %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("product code %w", httpx.ErrDuplicate)
	ErrInvalidPrice  = fmt.Errorf("price must not be negative: %w", httpx.ErrValidation)
)
