package grn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/platform/db"
)

type ListGRNsRequest struct {
	SupplierID int64
	Status     Status
	Limit      int
	Offset     int
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, note GRN) (int64, error)
	Get(ctx context.Context, id int64) (*GRN, error)
	List(ctx context.Context, req ListGRNsRequest) ([]GRN, int, error)
	MarkPosted(ctx context.Context, id int64, at time.Time) error
	AdjustProductStock(ctx context.Context, productID, delta int64) error
	InsertPayment(ctx context.Context, p SupplierPayment) (int64, error)
	ApplyPayment(ctx context.Context, id int64, paid money.Cents) error
	ListPayments(ctx context.Context, grnID int64) ([]SupplierPayment, error)
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

func (r *repository) Create(ctx context.Context, note GRN) (int64, error) {
	query := `
		INSERT INTO grns (number, supplier_id, status, subtotal, discount_pct, total,
			paid_amount, received_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		note.Number, note.SupplierID, note.Status, note.Subtotal, note.DiscountPct,
		note.Total, note.Paid, note.ReceivedAt, note.Notes,
	).Scan(&id)
	if err != nil {
		return 0, err
	}

	for _, line := range note.Lines {
		_, err := r.db.Exec(ctx, `
			INSERT INTO grn_lines (grn_id, product_id, qty, unit_cost, discount_pct, line_total)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, line.ProductID, line.Qty, line.UnitCost, line.DiscountPct, line.LineTotal,
		)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

const grnColumns = `id, number, supplier_id, status, subtotal, discount_pct, total,
	paid_amount, received_at, posted_at, notes, created_at, updated_at`

func scanGRN(row pgx.Row) (*GRN, error) {
	var g GRN
	var postedAt pgtype.Timestamptz
	var notes pgtype.Text
	err := row.Scan(
		&g.ID, &g.Number, &g.SupplierID, &g.Status, &g.Subtotal, &g.DiscountPct,
		&g.Total, &g.Paid, &g.ReceivedAt, &postedAt, &notes, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if postedAt.Valid {
		g.PostedAt = &postedAt.Time
	}
	if notes.Valid {
		g.Notes = &notes.String
	}
	return &g, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*GRN, error) {
	query := fmt.Sprintf(`SELECT %s FROM grns WHERE id = $1`, grnColumns)
	note, err := scanGRN(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, grn_id, product_id, qty, unit_cost, discount_pct, line_total
		FROM grn_lines WHERE grn_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.GRNID, &line.ProductID, &line.Qty,
			&line.UnitCost, &line.DiscountPct, &line.LineTotal); err != nil {
			return nil, err
		}
		note.Lines = append(note.Lines, line)
	}
	return note, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListGRNsRequest) ([]GRN, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1
	if req.SupplierID > 0 {
		where += fmt.Sprintf(" AND supplier_id = $%d", argNum)
		args = append(args, req.SupplierID)
		argNum++
	}
	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM grns"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM grns%s ORDER BY received_at DESC, id DESC LIMIT $%d OFFSET $%d",
		grnColumns, where, argNum, argNum+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []GRN
	for rows.Next() {
		g, err := scanGRN(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, *g)
	}
	return notes, total, rows.Err()
}

// MarkPosted flips a draft note to posted. The status guard makes posting
// idempotent under concurrent requests.
func (r *repository) MarkPosted(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE grns SET status = 'posted', posted_at = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'draft'`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotDraft
	}
	return nil
}

func (r *repository) AdjustProductStock(ctx context.Context, productID, delta int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE products SET stock_qty = stock_qty + $1, updated_at = NOW()
		WHERE id = $2`, delta, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d not found", productID)
	}
	return nil
}

func (r *repository) InsertPayment(ctx context.Context, p SupplierPayment) (int64, error) {
	query := `
		INSERT INTO grn_payments (grn_id, amount, method, notes, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query, p.GRNID, p.Amount, p.Method, p.Notes, p.PaidAt).Scan(&id)
	return id, err
}

func (r *repository) ApplyPayment(ctx context.Context, id int64, paid money.Cents) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE grns SET paid_amount = $1, updated_at = NOW()
		WHERE id = $2 AND $1 <= total`, paid, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListPayments(ctx context.Context, grnID int64) ([]SupplierPayment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, grn_id, amount, method, notes, paid_at, created_at
		FROM grn_payments WHERE grn_id = $1 ORDER BY paid_at, id`, grnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []SupplierPayment
	for rows.Next() {
		var p SupplierPayment
		if err := rows.Scan(&p.ID, &p.GRNID, &p.Amount, &p.Method, &p.Notes, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
