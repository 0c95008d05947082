package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayesh156/eco-system-sub002/internal/platform/db"
	"github.com/ayesh156/eco-system-sub002/internal/platform/httpx"
)

var (
	ErrNotFound      = fmt.Errorf("customer %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("customer code %w", httpx.ErrDuplicate)
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	GetCreditSummary(ctx context.Context, id int64) (*CreditSummary, error)
	ListOverdue(ctx context.Context) ([]Customer, error)
	GenerateCode(ctx context.Context) (string, error)
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

const customerColumns = `id, code, name, phone, whatsapp_phone, email, address,
	credit_limit, credit_balance, credit_status, is_active, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var phone, whatsapp, email, address, notes pgtype.Text
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &phone, &whatsapp, &email, &address,
		&c.CreditLimit, &c.CreditBalance, &c.CreditStatus, &c.IsActive, &notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Phone = textPtr(phone)
	c.WhatsAppPhone = textPtr(whatsapp)
	c.Email = textPtr(email)
	c.Address = textPtr(address)
	c.Notes = textPtr(notes)
	return &c, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns)
	return scanCustomer(r.db.QueryRow(ctx, query, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE code = $1`, customerColumns)
	return scanCustomer(r.db.QueryRow(ctx, query, code))
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	if req.Search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d OR phone ILIKE $%d)", argNum, argNum, argNum)
		args = append(args, "%"+req.Search+"%")
		argNum++
	}
	if req.CreditStatus != "" {
		where += fmt.Sprintf(" AND credit_status = $%d", argNum)
		args = append(args, req.CreditStatus)
		argNum++
	}
	if req.ActiveOnly {
		where += " AND is_active"
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM customers%s ORDER BY name LIMIT $%d OFFSET $%d",
		customerColumns, where, argNum, argNum+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, *c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	query := `
		INSERT INTO customers (code, name, phone, whatsapp_phone, email, address,
			credit_limit, credit_balance, credit_status, is_active, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, query,
		c.Code, c.Name, c.Phone, c.WhatsAppPhone, c.Email, c.Address,
		c.CreditLimit, c.CreditBalance, c.CreditStatus, c.IsActive, c.Notes,
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
	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d", set, argNum)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetCreditSummary(ctx context.Context, id int64) (*CreditSummary, error) {
	query := `
		SELECT c.id, c.credit_balance, c.credit_status, c.credit_limit,
			COUNT(i.id) FILTER (WHERE i.status <> 'fullpaid' AND i.total > i.paid_amount),
			MIN(i.due_date) FILTER (WHERE i.status <> 'fullpaid' AND i.total > i.paid_amount)
		FROM customers c
		LEFT JOIN invoices i ON i.customer_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`
	var s CreditSummary
	var oldest pgtype.Timestamptz
	err := r.db.QueryRow(ctx, query, id).Scan(
		&s.CustomerID, &s.CreditBalance, &s.CreditStatus, &s.CreditLimit,
		&s.OutstandingCount, &oldest,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if oldest.Valid {
		s.OldestDueDate = &oldest.Time
	}
	return &s, nil
}

// ListOverdue returns active customers whose unpaid invoices are past due.
// The reminder scan runs off this list.
func (r *repository) ListOverdue(ctx context.Context) ([]Customer, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		WHERE c.is_active
		  AND i.status <> 'fullpaid' AND i.total > i.paid_amount
		  AND i.due_date < NOW()
		ORDER BY c.id`, prefixedCustomerColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

const prefixedCustomerColumns = `c.id, c.code, c.name, c.phone, c.whatsapp_phone, c.email, c.address,
	c.credit_limit, c.credit_balance, c.credit_status, c.is_active, c.notes, c.created_at, c.updated_at`

// GenerateCode issues the next CUS-prefixed code from the current maximum.
func (r *repository) GenerateCode(ctx context.Context) (string, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(code FROM 5) AS INTEGER)), 0) + 1
		FROM customers WHERE code ~ '^CUS-[0-9]+$'`
	var next int
	if err := r.db.QueryRow(ctx, query).Scan(&next); err != nil {
		return "", err
	}
	return fmt.Sprintf("CUS-%05d", next), nil
}
