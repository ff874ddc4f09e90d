package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mugworks/checkout/internal/provider"
	"github.com/mugworks/checkout/pkg/httpclient"
)

// HTTPDoer abstracts the HTTP client so the provider can run through the
// retrying client, the circuit-breaker wrapper, or a test double.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds Stripe API configuration.
type Config struct {
	APIKey  string
	BaseURL string
}

// Provider implements payment intents against the Stripe API.
type Provider struct {
	client  HTTPDoer
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

// New creates a Stripe-backed payment provider.
func New(client HTTPDoer, cfg Config, logger *slog.Logger) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &Provider{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CreateIntent creates a payment intent. The caller's idempotency key is
// forwarded as Stripe's Idempotency-Key header, so a retried call returns the
// original intent instead of creating a second one.
func (p *Provider) CreateIntent(ctx context.Context, input *provider.CreateIntentInput) (*provider.IntentResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(input.Amount, 10))
	form.Set("currency", strings.ToLower(input.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	form.Set("metadata[checkout_id]", input.CheckoutID)
	for k, v := range input.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create payment intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if input.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", input.IdempotencyKey)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call payment provider: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "stripe")
	}
	defer func() { _ = resp.Body.Close() }()

	var intent intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode payment intent response: %w", err)
	}

	p.logger.DebugContext(ctx, "payment intent created",
		slog.String("payment_intent_id", intent.ID),
		slog.String("status", intent.Status),
	)

	return &provider.IntentResult{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

// CancelIntent voids an intent that will not be confirmed.
func (p *Provider) CancelIntent(ctx context.Context, intentID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/payment_intents/"+url.PathEscape(intentID)+"/cancel", http.NoBody)
	if err != nil {
		return fmt.Errorf("create cancel intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call payment provider: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "stripe")
	}
	_ = resp.Body.Close()

	return nil
}
