package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
)

// paymentIntentAPI is the subset of the Stripe payment intent client used here.
type paymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway implements Gateway using Stripe payment intents.
type StripeGateway struct {
	intents    paymentIntentAPI
	merchantID string
}

// NewStripeGateway creates a Stripe gateway with retry and timeout settings.
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 30
	}

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(int64(cfg.MaxRetries)),
		HTTPClient:        &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	})

	return newStripeGateway(&paymentintent.Client{B: backend, Key: cfg.APIKey}, cfg.MerchantID), nil
}

func newStripeGateway(intents paymentIntentAPI, merchantID string) *StripeGateway {
	if merchantID == "" {
		merchantID = DefaultMerchantID
	}
	return &StripeGateway{intents: intents, merchantID: merchantID}
}

func (g *StripeGateway) Name() string { return "stripe" }

// Initiate creates a payment intent keyed by the transaction id.
func (g *StripeGateway) Initiate(ctx context.Context, params InitiateParams) (*Session, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrAmountTooSmall
	}

	p := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(params)),
		Currency: stripe.String(strings.ToLower(params.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if params.CustomerEmail != "" {
		p.ReceiptEmail = stripe.String(params.CustomerEmail)
	}
	p.Context = ctx
	p.SetIdempotencyKey(params.TransactionID)
	p.AddMetadata("transaction_id", params.TransactionID)
	p.AddMetadata("order_id", params.OrderID)
	p.AddMetadata("method", params.Method)

	pi, err := g.intents.New(p)
	if err != nil {
		return nil, wrapStripeError(err)
	}

	return &Session{
		GatewayID:             pi.ID,
		MerchantID:            g.merchantID,
		MerchantTransactionID: params.TransactionID,
		Status:                strings.ToUpper(string(StatusPending)),
		ClientSecret:          pi.ClientSecret,
	}, nil
}

// Resolve reads the payment intent and maps its status.
func (g *StripeGateway) Resolve(ctx context.Context, params ResolveParams) (*Outcome, error) {
	if params.GatewayID == "" {
		return nil, ErrPaymentNotFound
	}

	p := &stripe.PaymentIntentParams{}
	p.Context = ctx

	pi, err := g.intents.Get(params.GatewayID, p)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return outcomeFromIntent(pi), nil
}

func outcomeFromIntent(pi *stripe.PaymentIntent) *Outcome {
	out := &Outcome{GatewayID: pi.ID, Status: StatusPending}
	switch {
	case pi.Status == stripe.PaymentIntentStatusSucceeded:
		out.Status = StatusSucceeded
	case pi.Status == stripe.PaymentIntentStatusCanceled:
		out.Status = StatusFailed
		out.Reason = string(pi.CancellationReason)
	case pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod && pi.LastPaymentError != nil:
		out.Status = StatusFailed
		out.Reason = pi.LastPaymentError.Msg
	}
	return out
}

// minorUnits converts a major-unit amount to the integer Stripe expects.
func minorUnits(params InitiateParams) int64 {
	return params.Amount.Shift(2).Round(0).IntPart()
}

func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return err
	}
	if stripeErr.HTTPStatusCode == http.StatusNotFound {
		return ErrPaymentNotFound
	}
	return &StripeError{
		Message:       stripeErr.Msg,
		Code:          string(stripeErr.Code),
		DeclineCode:   string(stripeErr.DeclineCode),
		StatusCode:    stripeErr.HTTPStatusCode,
		RequestID:     stripeErr.RequestID,
		OriginalError: err,
	}
}
