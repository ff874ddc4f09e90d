package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mugworks/checkout/internal/domain"
	pkgkafka "github.com/mugworks/checkout/pkg/kafka"
)

// Kafka topic constants for checkout domain events.
const (
	TopicReservationsCreated   = "mugworks.checkout.reservations.created"
	TopicReservationsConfirmed = "mugworks.checkout.reservations.confirmed"
	TopicReservationsReleased  = "mugworks.checkout.reservations.released"
	TopicPaymentIntentCreated  = "mugworks.checkout.payment_intent.created"
	TopicOrderCreated          = "mugworks.checkout.order.created"
)

// Aggregate type constant.
const AggregateTypeCheckout = "checkout"

// Source identifier for events originating from this service.
const SourceCheckoutService = "checkout-service"

// ReservationsCreatedData is the payload for a reservations.created event.
type ReservationsCreatedData struct {
	CheckoutID   string                    `json:"checkout_id"`
	Reservations []domain.StockReservation `json:"reservations"`
}

// ReservationsTransitionedData is the payload for confirmed/released events.
type ReservationsTransitionedData struct {
	CheckoutID string `json:"checkout_id"`
	Count      int    `json:"count"`
	Reason     string `json:"reason,omitempty"`
}

// PaymentIntentCreatedData is the payload for a payment_intent.created event.
// The client secret is deliberately omitted.
type PaymentIntentCreatedData struct {
	CheckoutID      string `json:"checkout_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID         string `json:"order_id"`
	CheckoutID      string `json:"checkout_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	TotalAmount     int64  `json:"total_amount"`
	Currency        string `json:"currency"`
}

// Producer publishes checkout domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the checkout service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReservationsCreated publishes a reservations.created event.
func (p *Producer) PublishReservationsCreated(ctx context.Context, checkoutID string, reservations []domain.StockReservation) error {
	data := ReservationsCreatedData{
		CheckoutID:   checkoutID,
		Reservations: reservations,
	}

	event, err := pkgkafka.NewEvent(TopicReservationsCreated, checkoutID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create reservations.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReservationsCreated, event); err != nil {
		return fmt.Errorf("publish reservations.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published reservations.created event",
		slog.String("checkout_id", checkoutID),
		slog.Int("count", len(reservations)),
	)

	return nil
}

// PublishReservationsConfirmed publishes a reservations.confirmed event.
func (p *Producer) PublishReservationsConfirmed(ctx context.Context, checkoutID string, count int) error {
	data := ReservationsTransitionedData{CheckoutID: checkoutID, Count: count}

	event, err := pkgkafka.NewEvent(TopicReservationsConfirmed, checkoutID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create reservations.confirmed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReservationsConfirmed, event); err != nil {
		return fmt.Errorf("publish reservations.confirmed event: %w", err)
	}

	return nil
}

// PublishReservationsReleased publishes a reservations.released event.
func (p *Producer) PublishReservationsReleased(ctx context.Context, checkoutID string, count int, reason string) error {
	data := ReservationsTransitionedData{CheckoutID: checkoutID, Count: count, Reason: reason}

	event, err := pkgkafka.NewEvent(TopicReservationsReleased, checkoutID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create reservations.released event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReservationsReleased, event); err != nil {
		return fmt.Errorf("publish reservations.released event: %w", err)
	}

	return nil
}

// PublishPaymentIntentCreated publishes a payment_intent.created event.
func (p *Producer) PublishPaymentIntentCreated(ctx context.Context, result *domain.PaymentIntentResult) error {
	data := PaymentIntentCreatedData{
		CheckoutID:      result.CheckoutID,
		PaymentIntentID: result.PaymentIntentID,
		Amount:          result.Amount,
		Currency:        result.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicPaymentIntentCreated, result.CheckoutID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create payment_intent.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPaymentIntentCreated, event); err != nil {
		return fmt.Errorf("publish payment_intent.created event: %w", err)
	}

	return nil
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	data := OrderCreatedData{
		OrderID:         order.ID,
		CheckoutID:      order.CheckoutID,
		PaymentIntentID: order.PaymentIntentID,
		TotalAmount:     order.TotalAmount,
		Currency:        order.Currency,
	}

	event, err := pkgkafka.NewEvent(TopicOrderCreated, order.ID, AggregateTypeCheckout, SourceCheckoutService, data)
	if err != nil {
		return fmt.Errorf("create order.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicOrderCreated, event); err != nil {
		return fmt.Errorf("publish order.created event: %w", err)
	}

	return nil
}
