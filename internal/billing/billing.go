// Package billing resolves payment attempts through a payment gateway.
package billing

import (
	"context"

	"github.com/shopspring/decimal"
)

// Status is the outcome reported by a gateway.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Gateway defines the interface for payment processing.
// Implementations can use a simulator, Stripe, PhonePe, etc.
type Gateway interface {
	// Name identifies the gateway in logs and metrics.
	Name() string

	// Initiate opens a payment with the gateway.
	// The returned Session carries the identifiers recorded on the payment.
	Initiate(ctx context.Context, params InitiateParams) (*Session, error)

	// Resolve asks the gateway for the final outcome of a payment.
	// StatusPending means the gateway has not settled it yet.
	Resolve(ctx context.Context, params ResolveParams) (*Outcome, error)
}

// InitiateParams contains parameters for opening a payment.
type InitiateParams struct {
	// TransactionID is the merchant transaction id and idempotency key.
	TransactionID string

	// OrderID links the gateway record back to the order.
	OrderID string

	// Amount in major currency units.
	Amount decimal.Decimal

	// Currency code (ISO 4217), e.g. "INR".
	Currency string

	// Method is the customer-selected payment method.
	Method string

	// CustomerEmail is forwarded for receipts when the gateway supports it.
	CustomerEmail string
}

// Session is the gateway's response to Initiate.
type Session struct {
	// GatewayID is the gateway's own id for the payment, if it issues one.
	GatewayID string

	MerchantID            string
	MerchantTransactionID string

	// Status is the gateway status string, upper-cased ("PENDING").
	Status string

	// ClientSecret is set by gateways that confirm payments client-side.
	ClientSecret string
}

// ResolveParams identifies the payment to resolve.
type ResolveParams struct {
	TransactionID string
	GatewayID     string
}

// Outcome is the result of Resolve.
type Outcome struct {
	Status    Status
	GatewayID string

	// Reason explains a failure when the gateway reports one.
	Reason string
}
