package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, user_id, order_id, payment_method, amount, currency, transaction_id,
	status, gateway_response, error_reason, created_at, updated_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.OrderID,
		&p.PaymentMethod,
		&p.Amount,
		&p.Currency,
		&p.TransactionID,
		&p.Status,
		&p.GatewayResponse,
		&p.ErrorReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	defer rows.Close()
	var items []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const createPayment = `
INSERT INTO payments (user_id, order_id, payment_method, amount, currency, transaction_id, status, gateway_response)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	UserID          uuid.UUID
	OrderID         uuid.UUID
	PaymentMethod   string
	Amount          decimal.Decimal
	Currency        string
	TransactionID   string
	Status          string
	GatewayResponse []byte
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, createPayment,
		arg.UserID,
		arg.OrderID,
		arg.PaymentMethod,
		arg.Amount,
		arg.Currency,
		arg.TransactionID,
		arg.Status,
		arg.GatewayResponse,
	))
}

const getPaymentByID = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

func (q *Queries) GetPaymentByID(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByID, id))
}

const getPaymentByIDForUpdate = getPaymentByID + ` FOR UPDATE`

func (q *Queries) GetPaymentByIDForUpdate(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByIDForUpdate, id))
}

const getPaymentByTransactionID = `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1`

func (q *Queries) GetPaymentByTransactionID(ctx context.Context, transactionID string) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByTransactionID, transactionID))
}

const getPaymentByTransactionIDForUpdate = getPaymentByTransactionID + ` FOR UPDATE`

func (q *Queries) GetPaymentByTransactionIDForUpdate(ctx context.Context, transactionID string) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByTransactionIDForUpdate, transactionID))
}

const getLivePaymentByOrderID = `
SELECT ` + paymentColumns + ` FROM payments
WHERE order_id = $1 AND status IN ('pending', 'completed')
LIMIT 1`

// GetLivePaymentByOrderID returns the pending or completed payment for an order.
func (q *Queries) GetLivePaymentByOrderID(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getLivePaymentByOrderID, orderID))
}

const listPaymentsByUser = `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`

func (q *Queries) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByUser, userID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

const listPayments = `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC`

func (q *Queries) ListPayments(ctx context.Context) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPayments)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

const updatePayment = `
UPDATE payments SET status = $2, gateway_response = $3, error_reason = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + paymentColumns

type UpdatePaymentParams struct {
	ID              uuid.UUID
	Status          string
	GatewayResponse []byte
	ErrorReason     pgtype.Text
}

func (q *Queries) UpdatePayment(ctx context.Context, arg UpdatePaymentParams) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, updatePayment, arg.ID, arg.Status, arg.GatewayResponse, arg.ErrorReason))
}
