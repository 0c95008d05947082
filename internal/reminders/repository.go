package reminders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Insert(ctx context.Context, r Reminder) (int64, error)
	Get(ctx context.Context, id int64) (*Reminder, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	ListRecent(ctx context.Context, limit int) ([]Reminder, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, rem Reminder) (int64, error) {
	query := `
		INSERT INTO reminders (customer_id, phone, message, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id`
	var id int64
	err := r.pool.QueryRow(ctx, query, rem.CustomerID, rem.Phone, rem.Message, rem.Status).Scan(&id)
	return id, err
}

func scanReminder(row pgx.Row) (*Reminder, error) {
	var rem Reminder
	var sentAt pgtype.Timestamptz
	var failure pgtype.Text
	err := row.Scan(&rem.ID, &rem.CustomerID, &rem.Phone, &rem.Message, &rem.Status,
		&failure, &rem.CreatedAt, &sentAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if failure.Valid {
		rem.Error = &failure.String
	}
	if sentAt.Valid {
		rem.SentAt = &sentAt.Time
	}
	return &rem, nil
}

const reminderColumns = `id, customer_id, phone, message, status, error, created_at, sent_at`

func (r *repository) Get(ctx context.Context, id int64) (*Reminder, error) {
	return scanReminder(r.pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`, id))
}

func (r *repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reminders SET status = 'sent', sent_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE reminders SET status = 'failed', error = $1 WHERE id = $2`, reason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]Reminder, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rem)
	}
	return out, rows.Err()
}
