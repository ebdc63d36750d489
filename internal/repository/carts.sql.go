package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const cartColumns = `id, user_id, items, total_price, created_at, updated_at`

func scanCart(row pgx.Row) (Cart, error) {
	var c Cart
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Items,
		&c.TotalPrice,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// The no-op update makes RETURNING yield the existing row on conflict.
const ensureCart = `
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
RETURNING ` + cartColumns

// EnsureCart returns the user's cart, creating an empty one if needed.
func (q *Queries) EnsureCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, ensureCart, userID))
}

const getCartByUserID = `SELECT ` + cartColumns + ` FROM carts WHERE user_id = $1`

func (q *Queries) GetCartByUserID(ctx context.Context, userID uuid.UUID) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, getCartByUserID, userID))
}

const updateCart = `
UPDATE carts SET items = $2, total_price = $3, updated_at = NOW()
WHERE id = $1
RETURNING ` + cartColumns

type UpdateCartParams struct {
	ID         uuid.UUID
	Items      []byte
	TotalPrice decimal.Decimal
}

func (q *Queries) UpdateCart(ctx context.Context, arg UpdateCartParams) (Cart, error) {
	return scanCart(q.db.QueryRow(ctx, updateCart, arg.ID, arg.Items, arg.TotalPrice))
}
