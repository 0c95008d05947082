package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Supplier, error)
	GetByCode(ctx context.Context, code string) (*Supplier, error)
	List(ctx context.Context, search string, limit, offset int) ([]Supplier, int, error)
	Create(ctx context.Context, s Supplier) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, code, name, phone, email, address, is_active, created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	var phone, email, address pgtype.Text
	err := row.Scan(&s.ID, &s.Code, &s.Name, &phone, &email, &address, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		s.Phone = &phone.String
	}
	if email.Valid {
		s.Email = &email.String
	}
	if address.Valid {
		s.Address = &address.String
	}
	return &s, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Supplier, error) {
	query := fmt.Sprintf(`SELECT %s FROM suppliers WHERE id = $1`, supplierColumns)
	return scanSupplier(r.pool.QueryRow(ctx, query, id))
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Supplier, error) {
	query := fmt.Sprintf(`SELECT %s FROM suppliers WHERE code = $1`, supplierColumns)
	return scanSupplier(r.pool.QueryRow(ctx, query, code))
}

func (r *repository) List(ctx context.Context, search string, limit, offset int) ([]Supplier, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1
	if search != "" {
		where += fmt.Sprintf(" AND (name ILIKE $%d OR code ILIKE $%d)", argNum, argNum)
		args = append(args, "%"+search+"%")
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM suppliers"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM suppliers%s ORDER BY name LIMIT $%d OFFSET $%d",
		supplierColumns, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, s Supplier) (int64, error) {
	query := `
		INSERT INTO suppliers (code, name, phone, email, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, s.Code, s.Name, s.Phone, s.Email, s.Address, s.IsActive).Scan(&id)
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
	query := fmt.Sprintf("UPDATE suppliers SET %s WHERE id = $%d", set, argNum)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
