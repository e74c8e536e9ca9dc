package cart

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

const (
	// the no-op DO UPDATE makes RETURNING yield the existing row on conflict
	getOrCreateCartQuery = `
		INSERT INTO carts (session_id, items, created_at, updated_at)
		VALUES ($1, '[]'::jsonb, $2, $2)
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING items, created_at, updated_at
	`
	saveCartQuery = `
		INSERT INTO carts (session_id, items, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET items = EXCLUDED.items,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`
	deleteExpiredCartsQuery = `DELETE FROM carts WHERE created_at < $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PostgresRepository) GetOrCreate(ctx context.Context, session string) (Cart, error) {
	var raw []byte
	c := Cart{SessionID: session}
	if err := r.db.QueryRowContext(ctx, getOrCreateCartQuery, session, r.now()).Scan(&raw, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Cart{}, err
	}
	c.Items = []Item{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Items); err != nil {
			return Cart{}, err
		}
	}
	return c, nil
}

func (r *PostgresRepository) Save(ctx context.Context, c Cart) error {
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, saveCartQuery, c.SessionID, string(raw), c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredCartsQuery, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
