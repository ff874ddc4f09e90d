package provider

import (
	"context"
)

// CreateIntentInput holds the parameters for creating a payment intent.
// IdempotencyKey is forwarded to the provider so a retried call cannot
// create a second intent for the same attempt.
type CreateIntentInput struct {
	Amount         int64
	Currency       string
	CheckoutID     string
	IdempotencyKey string
	Metadata       map[string]string
}

// IntentResult holds the provider's view of a created payment intent.
// ClientSecret is handed to the payment form to confirm the charge.
type IntentResult struct {
	IntentID     string
	ClientSecret string
	Status       string
}

// Provider defines the interface for payment provider integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "stripe").
	Name() string

	// CreateIntent creates a payment intent for the given amount.
	CreateIntent(ctx context.Context, input *CreateIntentInput) (*IntentResult, error)

	// CancelIntent voids an intent that will not be confirmed.
	CancelIntent(ctx context.Context, intentID string) error
}
