package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayesh156/eco-system-sub002/internal/platform/db"
)

type ListProductsRequest struct {
	Search     string
	Category   string
	ActiveOnly bool
	LowStock   bool
	Limit      int
	Offset     int
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Create(ctx context.Context, p Product) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	AdjustStock(ctx context.Context, id int64, delta int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const productColumns = `id, code, name, barcode, category, unit, cost_price, selling_price,
	stock_qty, reorder_level, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	var barcode, category pgtype.Text
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &barcode, &category, &p.Unit, &p.CostPrice, &p.SellingPrice,
		&p.StockQty, &p.ReorderLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if barcode.Valid {
		p.Barcode = &barcode.String
	}
	if category.Valid {
		p.Category = &category.String
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	return scanProduct(r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE code = $1`, productColumns)
	return scanProduct(r.db.QueryRow(ctx, query, code))
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if req.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d OR barcode ILIKE $%d)", argNum, argNum, argNum)
		args = append(args, "%"+req.Search+"%")
		argNum++
	}
	if req.Category != "" {
		where += fmt.Sprintf(" AND category = $%d", argNum)
		args = append(args, req.Category)
		argNum++
	}
	if req.ActiveOnly {
		where += " AND is_active"
	}
	if req.LowStock {
		where += " AND reorder_level > 0 AND stock_qty <= reorder_level"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM products%s ORDER BY name LIMIT $%d OFFSET $%d",
		productColumns, where, argNum, argNum+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	query := `
		INSERT INTO products (code, name, barcode, category, unit, cost_price, selling_price,
			stock_qty, reorder_level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.Code, p.Name, p.Barcode, p.Category, p.Unit, p.CostPrice, p.SellingPrice,
		p.StockQty, p.ReorderLevel, p.IsActive,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	set := "updated_at = NOW()"
	args := []any{}
	argNum := 1
	for col, val := range updates {
		set += fmt.Sprintf(", %s = $%d", col, argNum)
		args = append(args, val)
		argNum++
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE products SET %s WHERE id = $%d", set, argNum)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock moves stock by delta, rejecting drops below zero.
func (r *repository) AdjustStock(ctx context.Context, id int64, delta int64) error {
	query := `
		UPDATE products SET stock_qty = stock_qty + $1, updated_at = NOW()
		WHERE id = $2 AND stock_qty + $1 >= 0`
	tag, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
