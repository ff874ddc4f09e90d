package mock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mugworks/checkout/internal/provider"
)

// Provider is a mock payment provider that always succeeds.
// It is intended for development and testing purposes.
type Provider struct{}

// NewProvider creates a new mock payment provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateIntent simulates intent creation that always succeeds.
func (p *Provider) CreateIntent(_ context.Context, _ *provider.CreateIntentInput) (*provider.IntentResult, error) {
	// Simulate a small processing delay.
	time.Sleep(50 * time.Millisecond)

	id := "mock_pi_" + uuid.New().String()
	return &provider.IntentResult{
		IntentID:     id,
		ClientSecret: id + "_secret_" + uuid.New().String(),
		Status:       "requires_payment_method",
	}, nil
}

// CancelIntent simulates voiding an intent and always succeeds.
func (p *Provider) CancelIntent(_ context.Context, _ string) error {
	time.Sleep(50 * time.Millisecond)
	return nil
}
