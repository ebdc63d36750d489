package domain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment-related domain errors.
var (
	ErrPaymentNotFound         = &Error{Code: ENOTFOUND, Message: "Payment not found"}
	ErrPaymentAlreadyInitiated = &Error{Code: EDUPLICATE, Message: "Payment already initiated for this order"}
	ErrPaymentAlreadyVerified  = &Error{Code: EALREADYVERIFIED, Message: "Payment already verified"}
	ErrNotPaymentOwner         = &Error{Code: EFORBIDDEN, Message: "Not authorized to access this payment"}
	ErrMissingPaymentFields    = &Error{Code: EINVALID, Message: "Order ID, amount and payment method are required"}
	ErrMissingTransactionID    = &Error{Code: EINVALID, Message: "Transaction ID is required"}
)

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// paymentTransitions lists the statuses reachable from each status.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
	PaymentStatusFailed:    {},
	PaymentStatusRefunded:  {},
}

// ParsePaymentStatus validates a client-supplied payment status.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	status := PaymentStatus(s)
	if _, ok := paymentTransitions[status]; !ok {
		return "", Errorf(EINVALID, "", "Invalid payment status: %s", s)
	}
	return status, nil
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Live reports whether the status blocks a new payment for the same order.
func (s PaymentStatus) Live() bool {
	return s == PaymentStatusPending || s == PaymentStatusCompleted
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentMethodPhonePe PaymentMethod = "phonepe"
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodWallet  PaymentMethod = "wallet"
)

// DefaultCurrency is the currency recorded when none is configured.
const DefaultCurrency = "INR"

// Gateway response codes and messages recorded on verification.
const (
	GatewayCodeSuccess    = "S01"
	GatewayCodeFailure    = "E01"
	GatewayMessageSuccess = "Payment successful"
	GatewayMessageFailure = "Payment failed"
	GatewayStatusPending  = "PENDING"
)

// GatewayResponse is the envelope recorded from the payment gateway.
type GatewayResponse struct {
	ID                    string `json:"id,omitempty"`
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	Status                string `json:"status"`
	ResponseCode          string `json:"responseCode,omitempty"`
	ResponseMessage       string `json:"responseMessage,omitempty"`
}

// Payment is one attempt to pay for an order.
type Payment struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	OrderID         uuid.UUID       `json:"orderId"`
	Order           *Order          `json:"order,omitempty"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	TransactionID   string          `json:"transactionId"`
	Status          PaymentStatus   `json:"status"`
	GatewayResponse GatewayResponse `json:"gatewayResponse"`
	ErrorReason     string          `json:"errorReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// TransitionTo moves the payment to next if the status graph allows it.
func (p *Payment) TransitionTo(next PaymentStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return Errorf(EINVALID, "", "Cannot change payment status from %s to %s", p.Status, next)
	}
	p.Status = next
	return nil
}

// Resolve settles a pending payment with the gateway outcome.
func (p *Payment) Resolve(next PaymentStatus, gatewayID string) error {
	if p.Status != PaymentStatusPending {
		return ErrPaymentAlreadyVerified
	}
	if err := p.TransitionTo(next); err != nil {
		return err
	}

	if gatewayID != "" {
		p.GatewayResponse.ID = gatewayID
	}
	p.GatewayResponse.Status = strings.ToUpper(string(next))
	if next == PaymentStatusCompleted {
		p.GatewayResponse.ResponseCode = GatewayCodeSuccess
		p.GatewayResponse.ResponseMessage = GatewayMessageSuccess
		p.ErrorReason = ""
	} else {
		p.GatewayResponse.ResponseCode = GatewayCodeFailure
		p.GatewayResponse.ResponseMessage = GatewayMessageFailure
		p.ErrorReason = GatewayMessageFailure
	}
	return nil
}

// NewTransactionID returns TXN_<epoch-ms>_<8 hex chars> using r for entropy.
// A nil reader uses crypto/rand.
func NewTransactionID(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, 4)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	return fmt.Sprintf("TXN_%d_%s", now.UnixMilli(), hex.EncodeToString(b)), nil
}

// RedirectURL is the client path that completes a payment.
func RedirectURL(transactionID string) string {
	return "/payment/phonepe/" + transactionID
}

// PaymentService provides payment initiation, verification and administration.
type PaymentService interface {
	// Initiate opens a pending payment for an order. Owner or admin only.
	Initiate(ctx context.Context, params InitiatePaymentParams) (*InitiatedPayment, error)

	// Verify resolves a pending payment; a forced status skips the gateway.
	// A completed payment marks its order paid.
	Verify(ctx context.Context, params VerifyPaymentParams) (*Payment, error)

	// GetPayment returns a payment with its order. Owner or admin only.
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*Payment, error)

	// GetStatus looks up a payment by transaction id.
	GetStatus(ctx context.Context, transactionID string) (*Payment, error)

	// ListMyPayments returns the caller's payments, newest first.
	ListMyPayments(ctx context.Context) ([]Payment, error)

	// ListPayments returns every payment. Admin only.
	ListPayments(ctx context.Context) ([]Payment, error)

	// UpdateStatus forces a status change. Admin only.
	UpdateStatus(ctx context.Context, paymentID uuid.UUID, status string) (*Payment, error)
}

// InitiatePaymentParams contains the fields to open a payment.
type InitiatePaymentParams struct {
	OrderID       uuid.UUID       `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// Validate checks the required fields.
func (p InitiatePaymentParams) Validate() error {
	if p.OrderID == uuid.Nil || p.Amount.IsZero() || p.PaymentMethod == "" {
		return ErrMissingPaymentFields
	}
	switch p.PaymentMethod {
	case PaymentMethodPhonePe, PaymentMethodCOD, PaymentMethodWallet:
	default:
		return Errorf(EINVALID, "", "Invalid payment method: %s", p.PaymentMethod)
	}
	if p.Amount.IsNegative() {
		return Invalid("", "Amount must be positive")
	}
	return nil
}

// VerifyPaymentParams identifies the payment to resolve.
// PaymentStatus, when set, forces the outcome.
type VerifyPaymentParams struct {
	TransactionID string `json:"transactionId"`
	PaymentStatus string `json:"paymentStatus"`
}

// InitiatedPayment is returned to the client after initiation.
type InitiatedPayment struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Status        PaymentStatus   `json:"status"`
	RedirectURL   string          `json:"redirectUrl"`
}
