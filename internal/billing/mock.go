package billing

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockGateway is a gateway for testing.
// Payments succeed unless a Func field says otherwise.
type MockGateway struct {
	// InitiateFunc allows customizing initiation behavior
	InitiateFunc func(ctx context.Context, params InitiateParams) (*Session, error)

	// ResolveFunc allows customizing resolution behavior
	ResolveFunc func(ctx context.Context, params ResolveParams) (*Outcome, error)

	mu sync.Mutex

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{CallLog: []string{}}
}

func (m *MockGateway) Name() string { return "mock" }

// Initiate records the call and returns a pending session.
func (m *MockGateway) Initiate(ctx context.Context, params InitiateParams) (*Session, error) {
	m.log(fmt.Sprintf("Initiate(%s, %s)", params.TransactionID, params.Amount.StringFixed(2)))

	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, params)
	}

	return &Session{
		GatewayID:             "mock_" + params.TransactionID,
		MerchantID:            DefaultMerchantID,
		MerchantTransactionID: params.TransactionID,
		Status:                strings.ToUpper(string(StatusPending)),
	}, nil
}

// Resolve records the call and reports success.
func (m *MockGateway) Resolve(ctx context.Context, params ResolveParams) (*Outcome, error) {
	m.log(fmt.Sprintf("Resolve(%s)", params.TransactionID))

	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, params)
	}

	return &Outcome{Status: StatusSucceeded, GatewayID: params.GatewayID}, nil
}

// Calls returns a copy of the call log.
func (m *MockGateway) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}

func (m *MockGateway) log(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, call)
}

// Verify interface compliance
var (
	_ Gateway = (*MockGateway)(nil)
	_ Gateway = (*SimulatedGateway)(nil)
	_ Gateway = (*StripeGateway)(nil)
)
