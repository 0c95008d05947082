package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayesh156/eco-system-sub002/internal/money"
	"github.com/ayesh156/eco-system-sub002/internal/platform/db"
	"github.com/ayesh156/eco-system-sub002/internal/settlement"
)

// Repository defines ledger persistence. All monetary columns are BIGINT
// minor units.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	ListOutstanding(ctx context.Context, customerID int64) ([]Invoice, error)
	GetCustomerCredit(ctx context.Context, customerID int64) (settlement.Account, error)
	UpdateCustomerCredit(ctx context.Context, customerID int64, balance money.Cents, status settlement.CreditStatus) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	InsertAllocation(ctx context.Context, paymentID, invoiceID int64, amount money.Cents) error
	ApplyInvoiceSettlement(ctx context.Context, inv settlement.SettledInvoice) error
	ListPayments(ctx context.Context, customerID int64) ([]Payment, error)
	ListInvoiceAllocations(ctx context.Context, invoiceID int64) ([]PaymentAllocation, error)
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

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const invoiceColumns = `id, number, customer_id, total, paid_amount, due_date, status, last_payment_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var lastPayment pgtype.Timestamptz
	err := row.Scan(
		&inv.ID, &inv.Number, &inv.CustomerID, &inv.Total, &inv.Paid,
		&inv.DueDate, &inv.Status, &lastPayment, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastPayment.Valid {
		inv.LastPaymentAt = &lastPayment.Time
	}
	return &inv, nil
}

func (r *repository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	query := `
		INSERT INTO invoices (number, customer_id, total, paid_amount, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		inv.Number, inv.CustomerID, inv.Total, inv.Paid, inv.DueDate, inv.Status,
	).Scan(&id)
	return id, err
}

func (r *repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1`, invoiceColumns)
	return scanInvoice(r.db.QueryRow(ctx, query, id))
}

// ListInvoicesRequest filters invoice listings.
type ListInvoicesRequest struct {
	CustomerID int64
	Status     settlement.InvoiceStatus
	Limit      int
	Offset     int
}

func (r *repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if req.CustomerID > 0 {
		where += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, req.CustomerID)
		argNum++
	}
	if req.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(req.Status))
		argNum++
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM invoices"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM invoices%s ORDER BY due_date, id`, invoiceColumns, where)
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		var lastPayment pgtype.Timestamptz
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.CustomerID, &inv.Total, &inv.Paid,
			&inv.DueDate, &inv.Status, &lastPayment, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		if lastPayment.Valid {
			inv.LastPaymentAt = &lastPayment.Time
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// ListOutstanding returns non-fullpaid invoices with an outstanding balance,
// ascending by due date. This ordering is the allocation policy.
func (r *repository) ListOutstanding(ctx context.Context, customerID int64) ([]Invoice, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM invoices
		WHERE customer_id = $1 AND status <> 'fullpaid' AND total > paid_amount
		ORDER BY due_date, id`, invoiceColumns)

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		var lastPayment pgtype.Timestamptz
		if err := rows.Scan(
			&inv.ID, &inv.Number, &inv.CustomerID, &inv.Total, &inv.Paid,
			&inv.DueDate, &inv.Status, &lastPayment, &inv.CreatedAt, &inv.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if lastPayment.Valid {
			inv.LastPaymentAt = &lastPayment.Time
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *repository) GetCustomerCredit(ctx context.Context, customerID int64) (settlement.Account, error) {
	var account settlement.Account
	err := r.db.QueryRow(ctx,
		`SELECT credit_balance, credit_status FROM customers WHERE id = $1`, customerID,
	).Scan(&account.CreditBalance, &account.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return settlement.Account{}, ErrNotFound
	}
	return account, err
}

func (r *repository) UpdateCustomerCredit(ctx context.Context, customerID int64, balance money.Cents, status settlement.CreditStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE customers SET credit_balance = $2, credit_status = $3, updated_at = NOW() WHERE id = $1`,
		customerID, balance, status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	query := `
		INSERT INTO payments (number, customer_id, invoice_id, amount, method, source, notes, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id`
	var invoiceID pgtype.Int8
	if p.InvoiceID != nil {
		invoiceID = pgtype.Int8{Int64: *p.InvoiceID, Valid: true}
	}
	var id int64
	err := r.db.QueryRow(ctx, query,
		p.Number, p.CustomerID, invoiceID, p.Amount, p.Method, p.Source, p.Notes, p.PaidAt,
	).Scan(&id)
	return id, err
}

func (r *repository) InsertAllocation(ctx context.Context, paymentID, invoiceID int64, amount money.Cents) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_allocations (payment_id, invoice_id, amount, created_at) VALUES ($1, $2, $3, NOW())`,
		paymentID, invoiceID, amount,
	)
	return err
}

// ApplyInvoiceSettlement writes one settled invoice back. The paid_amount
// guard keeps the update from ever exceeding the invoice total.
func (r *repository) ApplyInvoiceSettlement(ctx context.Context, inv settlement.SettledInvoice) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET paid_amount = $2, status = $3, last_payment_at = $4, updated_at = NOW()
		WHERE id = $1 AND $2 <= total`,
		inv.ID, inv.Paid, inv.Status, inv.LastPaymentAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListPayments(ctx context.Context, customerID int64) ([]Payment, error) {
	query := `
		SELECT id, number, customer_id, invoice_id, amount, method, source, notes, paid_at, created_at
		FROM payments
		WHERE customer_id = $1
		ORDER BY paid_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var invoiceID pgtype.Int8
		var notes pgtype.Text
		if err := rows.Scan(
			&p.ID, &p.Number, &p.CustomerID, &invoiceID, &p.Amount,
			&p.Method, &p.Source, &notes, &p.PaidAt, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		if invoiceID.Valid {
			v := invoiceID.Int64
			p.InvoiceID = &v
		}
		p.Notes = notes.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *repository) ListInvoiceAllocations(ctx context.Context, invoiceID int64) ([]PaymentAllocation, error) {
	query := `
		SELECT id, payment_id, invoice_id, amount, created_at
		FROM payment_allocations
		WHERE invoice_id = $1
		ORDER BY id`

	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []PaymentAllocation
	for rows.Next() {
		var a PaymentAllocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}
