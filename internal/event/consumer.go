package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/mugworks/checkout/pkg/kafka"
)

// Kafka topics consumed by the checkout service. These carry payment
// outcomes from the payment gateway pipeline and mirror the webhook
// endpoint, so deployments can run on either delivery channel.
const (
	TopicPaymentSucceeded = "mugworks.payment.succeeded"
	TopicPaymentFailed    = "mugworks.payment.failed"
)

// PaymentOutcomeService defines the interface required by the event consumer.
type PaymentOutcomeService interface {
	HandlePaymentSucceeded(ctx context.Context, paymentIntentID string) error
	HandlePaymentFailed(ctx context.Context, paymentIntentID, reason string) error
}

// PaymentSucceededData is the expected payload of a payment.succeeded event.
type PaymentSucceededData struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

// PaymentFailedData is the expected payload of a payment.failed event.
type PaymentFailedData struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Reason          string `json:"reason,omitempty"`
}

// Consumer processes incoming Kafka events for the checkout service.
type Consumer struct {
	logger  *slog.Logger
	service PaymentOutcomeService
}

// NewConsumer creates a new event consumer for the checkout service.
func NewConsumer(service PaymentOutcomeService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandlePaymentSucceeded processes payment.succeeded events by confirming the
// checkout's stock holds and marking its order paid.
func (c *Consumer) HandlePaymentSucceeded(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentSucceededData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.succeeded data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing payment.succeeded event",
		slog.String("payment_intent_id", data.PaymentIntentID),
	)

	if err := c.service.HandlePaymentSucceeded(ctx, data.PaymentIntentID); err != nil {
		return fmt.Errorf("handle payment success for intent %s: %w", data.PaymentIntentID, err)
	}

	return nil
}

// HandlePaymentFailed processes payment.failed events by releasing the
// checkout's stock holds and marking its order failed.
func (c *Consumer) HandlePaymentFailed(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentFailedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal payment.failed data: %w", err)
	}

	c.logger.InfoContext(ctx, "processing payment.failed event",
		slog.String("payment_intent_id", data.PaymentIntentID),
		slog.String("reason", data.Reason),
	)

	if err := c.service.HandlePaymentFailed(ctx, data.PaymentIntentID, data.Reason); err != nil {
		return fmt.Errorf("handle payment failure for intent %s: %w", data.PaymentIntentID, err)
	}

	return nil
}
