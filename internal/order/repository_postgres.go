package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

const (
	orderColumns = `id, order_number, customer, shipping, billing, items, pricing, payment, status, created_at, updated_at`

	insertOrderQuery = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	getOrderQuery = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id::text = $1 OR order_number = $1
		LIMIT 1
	`
	updateOrderStatusQuery = `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	orderExistsQuery       = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
	countByStatusQuery     = `SELECT status, COUNT(*) FROM orders GROUP BY status`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (Order, error) {
	var o Order
	var customer, shipping, billing, items, price, payment []byte
	if err := row.Scan(&o.ID, &o.OrderNumber, &customer, &shipping, &billing, &items, &price, &payment, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{customer, &o.Customer},
		{shipping, &o.Shipping},
		{billing, &o.Billing},
		{items, &o.Items},
		{price, &o.Pricing},
		{payment, &o.Payment},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return Order{}, fmt.Errorf("decode order %s: %w", o.ID, err)
		}
	}
	return o, nil
}

func marshalAll(values ...any) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *PostgresRepository) Create(ctx context.Context, o Order) (Order, error) {
	docs, err := marshalAll(o.Customer, o.Shipping, o.Billing, o.Items, o.Pricing, o.Payment)
	if err != nil {
		return Order{}, err
	}
	args := append([]any{o.ID, o.OrderNumber}, docs...)
	args = append(args, o.Status, o.CreatedAt, o.UpdatedAt)

	if _, err := r.db.ExecContext(ctx, insertOrderQuery, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Order{}, ErrDuplicate
		}
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, idOrNumber string) (Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, getOrderQuery, idOrNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]Order, error) {
	q := "SELECT " + orderColumns + " FROM orders"
	args := make([]any, 0, 2)
	if f.Status != "" {
		args = append(args, f.Status)
		q += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, updateOrderStatusQuery, id, from, to, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, orderExistsQuery, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.db.QueryContext(ctx, countByStatusQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[Status]int64)
	for rows.Next() {
		var (
			s Status
			n int64
		)
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}
