package mocks

import (
	"context"
	"sync"

	"github.com/kevin07696/billing-service/internal/domain/ports"
)

// MockPaymentGateway is a mock implementation of PaymentGateway for testing
type MockPaymentGateway struct {
	mu sync.Mutex

	// Responses to return, consumed in order; the last one repeats
	errors   []error
	response *ports.ChargeResult

	// Call tracking
	ChargeCalls int
	Requests    []ports.ChargeRequest
}

// NewMockPaymentGateway creates a gateway that approves every charge
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		response: &ports.ChargeResult{GatewayTransactionID: "pi_mock", Status: "succeeded"},
	}
}

// SetErrors queues the errors returned by successive calls; nil entries succeed
func (g *MockPaymentGateway) SetErrors(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errors = errs
}

// SetResponse sets the successful charge result
func (g *MockPaymentGateway) SetResponse(result *ports.ChargeResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.response = result
}

// Charge records the request and returns the configured outcome
func (g *MockPaymentGateway) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ChargeCalls++
	g.Requests = append(g.Requests, req)

	if len(g.errors) > 0 {
		err := g.errors[0]
		if len(g.errors) > 1 {
			g.errors = g.errors[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	return g.response, nil
}
