package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedGateway_Defaults(t *testing.T) {
	gw := NewSimulatedGateway("", 0)
	assert.Equal(t, DefaultMerchantID, gw.merchantID)
	assert.Equal(t, DefaultSuccessRate, gw.successRate)

	gw = NewSimulatedGateway("M1", 1.5)
	assert.Equal(t, "M1", gw.merchantID)
	assert.Equal(t, DefaultSuccessRate, gw.successRate)
}

func TestSimulatedGateway_Initiate(t *testing.T) {
	gw := NewSimulatedGateway("M1", 0.8)

	session, err := gw.Initiate(context.Background(), InitiateParams{
		TransactionID: "TXN_1_abcd",
		Amount:        decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "M1", session.MerchantID)
	assert.Equal(t, "TXN_1_abcd", session.MerchantTransactionID)
	assert.Equal(t, "PENDING", session.Status)
	assert.Empty(t, session.GatewayID)

	_, err = gw.Initiate(context.Background(), InitiateParams{Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrAmountTooSmall)
}

func TestSimulatedGateway_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		roll   float64
		rate   float64
		status Status
	}{
		{name: "roll below rate succeeds", roll: 0.1, rate: 0.8, status: StatusSucceeded},
		{name: "roll just below rate succeeds", roll: 0.79, rate: 0.8, status: StatusSucceeded},
		{name: "roll at rate fails", roll: 0.8, rate: 0.8, status: StatusFailed},
		{name: "roll above rate fails", roll: 0.95, rate: 0.8, status: StatusFailed},
		{name: "certain success", roll: 0.999, rate: 1, status: StatusSucceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewSimulatedGateway("", tt.rate, WithRandom(func() float64 { return tt.roll }))

			out, err := gw.Resolve(context.Background(), ResolveParams{TransactionID: "TXN_1"})
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.Status)
		})
	}
}

func TestNewGateway(t *testing.T) {
	gw, err := NewGateway(GatewayConfig{})
	require.NoError(t, err)
	assert.Equal(t, "simulated", gw.Name())

	gw, err = NewGateway(GatewayConfig{Name: "stripe", Stripe: StripeConfig{APIKey: "sk_test_123"}})
	require.NoError(t, err)
	assert.Equal(t, "stripe", gw.Name())

	_, err = NewGateway(GatewayConfig{Name: "stripe"})
	assert.Error(t, err)

	_, err = NewGateway(GatewayConfig{Name: "paypal"})
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestMockGateway_RecordsCalls(t *testing.T) {
	m := NewMockGateway()

	_, err := m.Initiate(context.Background(), InitiateParams{TransactionID: "TXN_1", Amount: decimal.NewFromInt(5)})
	require.NoError(t, err)
	out, err := m.Resolve(context.Background(), ResolveParams{TransactionID: "TXN_1", GatewayID: "mock_TXN_1"})
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, out.Status)
	assert.Equal(t, []string{"Initiate(TXN_1, 5.00)", "Resolve(TXN_1)"}, m.Calls())
}
