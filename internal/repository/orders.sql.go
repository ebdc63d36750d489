package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `o.id, o.user_id, o.order_items, o.shipping_address, o.payment_method,
	o.items_price, o.tax_price, o.shipping_price, o.total_price, o.is_paid, o.paid_at,
	o.payment_result, o.is_delivered, o.delivered_at, o.actual_delivery_time, o.order_status,
	o.delivery_executive_id, o.created_at, o.updated_at`

func orderScanTargets(o *Order) []interface{} {
	return []interface{}{
		&o.ID,
		&o.UserID,
		&o.OrderItems,
		&o.ShippingAddress,
		&o.PaymentMethod,
		&o.ItemsPrice,
		&o.TaxPrice,
		&o.ShippingPrice,
		&o.TotalPrice,
		&o.IsPaid,
		&o.PaidAt,
		&o.PaymentResult,
		&o.IsDelivered,
		&o.DeliveredAt,
		&o.ActualDeliveryTime,
		&o.OrderStatus,
		&o.DeliveryExecutiveID,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(orderScanTargets(&o)...)
	return o, err
}

func scanOrderWithUser(row pgx.Row) (OrderWithUser, error) {
	var o OrderWithUser
	targets := append(orderScanTargets(&o.Order), &o.UserName, &o.UserEmail)
	err := row.Scan(targets...)
	return o, err
}

const createOrder = `
INSERT INTO orders AS o (
	user_id, order_items, shipping_address, payment_method,
	items_price, tax_price, shipping_price, total_price
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID          uuid.UUID
	OrderItems      []byte
	ShippingAddress []byte
	PaymentMethod   string
	ItemsPrice      decimal.Decimal
	TaxPrice        decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.OrderItems,
		arg.ShippingAddress,
		arg.PaymentMethod,
		arg.ItemsPrice,
		arg.TaxPrice,
		arg.ShippingPrice,
		arg.TotalPrice,
	))
}

const getOrderByID = `
SELECT ` + orderColumns + `, u.name, u.email
FROM orders o
JOIN users u ON u.id = o.user_id
WHERE o.id = $1`

// GetOrderByID returns an order with its owner's name and email.
func (q *Queries) GetOrderByID(ctx context.Context, id uuid.UUID) (OrderWithUser, error) {
	return scanOrderWithUser(q.db.QueryRow(ctx, getOrderByID, id))
}

const getOrderByIDForUpdate = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 FOR UPDATE`

func (q *Queries) GetOrderByIDForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderByIDForUpdate, id))
}

const listOrdersByUser = `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`

func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const listOrders = `
SELECT ` + orderColumns + `, u.name, u.email
FROM orders o
JOIN users u ON u.id = o.user_id
ORDER BY o.created_at DESC`

func (q *Queries) ListOrders(ctx context.Context) ([]OrderWithUser, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderWithUser
	for rows.Next() {
		o, err := scanOrderWithUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const updateOrder = `
UPDATE orders AS o
SET is_paid = $2, paid_at = $3, payment_result = $4, is_delivered = $5, delivered_at = $6,
    actual_delivery_time = $7, order_status = $8, delivery_executive_id = $9, updated_at = NOW()
WHERE o.id = $1
RETURNING ` + orderColumns

// UpdateOrderParams carries the mutable order fields. Items and prices are
// fixed at creation and cannot be updated.
type UpdateOrderParams struct {
	ID                  uuid.UUID
	IsPaid              bool
	PaidAt              pgtype.Timestamptz
	PaymentResult       []byte
	IsDelivered         bool
	DeliveredAt         pgtype.Timestamptz
	ActualDeliveryTime  pgtype.Timestamptz
	OrderStatus         string
	DeliveryExecutiveID pgtype.UUID
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrder,
		arg.ID,
		arg.IsPaid,
		arg.PaidAt,
		arg.PaymentResult,
		arg.IsDelivered,
		arg.DeliveredAt,
		arg.ActualDeliveryTime,
		arg.OrderStatus,
		arg.DeliveryExecutiveID,
	))
}
