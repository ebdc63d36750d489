package billing

import (
	"context"
	"math/rand"
	"strings"
)

// DefaultMerchantID identifies the storefront to the simulated gateway.
const DefaultMerchantID = "BLINKIT_CLONE_123"

// DefaultSuccessRate is the share of simulated payments that succeed.
const DefaultSuccessRate = 0.8

// SimulatedGateway stands in for a real gateway during development.
// Resolve succeeds with probability SuccessRate.
type SimulatedGateway struct {
	merchantID  string
	successRate float64
	random      func() float64
}

// SimulatedOption configures a SimulatedGateway.
type SimulatedOption func(*SimulatedGateway)

// WithRandom replaces the source of uniform [0,1) values.
func WithRandom(random func() float64) SimulatedOption {
	return func(g *SimulatedGateway) {
		g.random = random
	}
}

// NewSimulatedGateway returns a simulated gateway. A blank merchant id and a
// success rate outside (0,1] fall back to the defaults.
func NewSimulatedGateway(merchantID string, successRate float64, opts ...SimulatedOption) *SimulatedGateway {
	if merchantID == "" {
		merchantID = DefaultMerchantID
	}
	if successRate <= 0 || successRate > 1 {
		successRate = DefaultSuccessRate
	}
	g := &SimulatedGateway{
		merchantID:  merchantID,
		successRate: successRate,
		random:      rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SimulatedGateway) Name() string { return "simulated" }

func (g *SimulatedGateway) Initiate(ctx context.Context, params InitiateParams) (*Session, error) {
	if !params.Amount.IsPositive() {
		return nil, ErrAmountTooSmall
	}
	return &Session{
		MerchantID:            g.merchantID,
		MerchantTransactionID: params.TransactionID,
		Status:                strings.ToUpper(string(StatusPending)),
	}, nil
}

func (g *SimulatedGateway) Resolve(ctx context.Context, params ResolveParams) (*Outcome, error) {
	if g.random() < g.successRate {
		return &Outcome{Status: StatusSucceeded}, nil
	}
	return &Outcome{Status: StatusFailed, Reason: "simulated decline"}, nil
}
