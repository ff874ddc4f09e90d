package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/provider"
	"github.com/mugworks/checkout/internal/repository"
	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// CircuitOpenFallback is a fallback for the payment provider's circuit
// breaker. When the circuit is open it returns a structured error with a
// retry hint instead of letting the raw ErrCircuitOpen propagate.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("payment provider is temporarily unavailable, please retry after 30 seconds")
}

// ReservationManager is the slice of the reservation service the orchestrator
// drives. Implemented by *ReservationService.
type ReservationManager interface {
	CreateBulkReservations(ctx context.Context, items []domain.ReservationItem, checkoutID string, userID *string) (*domain.BulkReservationResult, error)
	ConfirmReservations(ctx context.Context, checkoutID string) (int, error)
	ReleaseReservations(ctx context.Context, checkoutID, reason string) (int, error)
	AreReservationsValid(ctx context.Context, checkoutID string) (bool, error)
	GetAvailableStock(ctx context.Context, variantID string) (int, error)
}

// CheckoutEvents is the slice of the event producer the orchestrator
// publishes through.
type CheckoutEvents interface {
	PublishPaymentIntentCreated(ctx context.Context, result *domain.PaymentIntentResult) error
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

// SagaTimeouts holds per-step timeout configuration for the checkout saga.
// A zero value means no per-step timeout (inherits the parent context timeout).
type SagaTimeouts struct {
	ReservationTimeout time.Duration
	PaymentTimeout     time.Duration
	OrderTimeout       time.Duration
}

// CheckoutService orchestrates a checkout attempt: trusted-price validation,
// stock holds, payment-intent creation and order persistence, with
// compensating releases where a step fails.
type CheckoutService struct {
	catalog      repository.CatalogRepository
	orders       repository.OrderRepository
	reservations ReservationManager
	provider     provider.Provider
	events       CheckoutEvents
	logger       *slog.Logger
	pricing      domain.PricingRules
	sagaTimeouts SagaTimeouts
}

// NewCheckoutService creates a new checkout orchestrator.
func NewCheckoutService(
	catalog repository.CatalogRepository,
	orders repository.OrderRepository,
	reservations ReservationManager,
	paymentProvider provider.Provider,
	events CheckoutEvents,
	logger *slog.Logger,
	pricing domain.PricingRules,
	sagaTimeouts SagaTimeouts,
) *CheckoutService {
	return &CheckoutService{
		catalog:      catalog,
		orders:       orders,
		reservations: reservations,
		provider:     paymentProvider,
		events:       events,
		logger:       logger,
		pricing:      pricing,
		sagaTimeouts: sagaTimeouts,
	}
}

// PaymentIntentInput holds the parameters for creating a payment intent.
// Prices are deliberately absent: they come from the catalog, never the
// client.
type PaymentIntentInput struct {
	Items           []domain.ReservationItem `json:"items" validate:"required,min=1,dive"`
	ShippingMethod  string                   `json:"shipping_method" validate:"required,oneof=standard express"`
	ShippingAddress json.RawMessage          `json:"shipping_address,omitempty"`
	UserID          *string                  `json:"-"`
	IdempotencyKey  string                   `json:"-"`
}

// CreatePaymentIntent runs the checkout orchestration: recompute the total
// from trusted catalog prices, enforce the minimum charge, pre-check and then
// hold stock, create the provider intent, and persist the order keyed by the
// intent id. A payment failure after the holds exist releases them; an order
// persistence failure after the intent exists is logged as a reconciliation
// risk and the client still receives the client secret.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, input *PaymentIntentInput) (*domain.PaymentIntentResult, error) {
	if input == nil || len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("at least one item is required")
	}

	order, items, err := s.buildOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.pricing.CheckMinCharge(order.TotalAmount); err != nil {
		return nil, err
	}

	// Fail fast on stock before touching the payment provider.
	if err := s.precheckStock(ctx, input.Items); err != nil {
		return nil, err
	}

	checkoutID := uuid.New().String()
	order.CheckoutID = checkoutID

	// Step 1: hold stock for every line item.
	if _, err := s.reserveStock(ctx, input, checkoutID); err != nil {
		return nil, fmt.Errorf("reserve stock: %w", err)
	}

	// Step 2: create the payment intent. Compensate by releasing the holds.
	intent, err := s.createIntent(ctx, input, order, checkoutID)
	if err != nil {
		if _, relErr := s.reservations.ReleaseReservations(ctx, checkoutID, "payment_intent_failed"); relErr != nil {
			s.logger.ErrorContext(ctx, "failed to release reservations after payment intent failure",
				slog.String("checkout_id", checkoutID),
				slog.String("error", relErr.Error()),
			)
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	result := &domain.PaymentIntentResult{
		CheckoutID:      checkoutID,
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		Amount:          order.TotalAmount,
		Currency:        order.Currency,
	}

	// Step 3: persist the order keyed by the intent id. The charge mechanism
	// already exists at this point, so a failure here is NOT fatal to the
	// client: it is logged at error level with full context for manual
	// reconciliation and the client secret is still returned.
	if err := s.persistOrder(ctx, order, items, intent.IntentID); err != nil {
		s.logger.ErrorContext(ctx, "RECONCILIATION RISK: payment intent created but order persistence failed",
			slog.String("checkout_id", checkoutID),
			slog.String("payment_intent_id", intent.IntentID),
			slog.Int64("amount", order.TotalAmount),
			slog.String("currency", order.Currency),
			slog.String("error", err.Error()),
		)
	}

	if err := s.events.PublishPaymentIntentCreated(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment_intent.created event",
			slog.String("checkout_id", checkoutID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment intent created",
		slog.String("checkout_id", checkoutID),
		slog.String("payment_intent_id", intent.IntentID),
		slog.Int64("amount", order.TotalAmount),
	)

	return result, nil
}

// buildOrder validates the cart against the trusted catalog and computes all
// amounts server-side.
func (s *CheckoutService) buildOrder(ctx context.Context, input *PaymentIntentInput) (*domain.Order, []domain.OrderItem, error) {
	seen := make(map[string]struct{}, len(input.Items))
	ids := make([]string, 0, len(input.Items))
	for i, item := range input.Items {
		if item.VariantID == "" {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("item %d: variant_id is required", i))
		}
		if item.Quantity <= 0 {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be greater than 0", i))
		}
		if _, dup := seen[item.VariantID]; dup {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("item %d: duplicate variant %s", i, item.VariantID))
		}
		seen[item.VariantID] = struct{}{}
		ids = append(ids, item.VariantID)
	}

	variants, err := s.catalog.GetVariants(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog variants: %w", err)
	}

	byID := make(map[string]domain.ProductVariant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	var (
		subtotal int64
		currency string
	)
	items := make([]domain.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		v, ok := byID[item.VariantID]
		if !ok {
			return nil, nil, apperrors.NotFound("variant", item.VariantID)
		}
		if currency == "" {
			currency = v.Currency
		} else if currency != v.Currency {
			return nil, nil, apperrors.InvalidInput("cart mixes currencies")
		}

		lineTotal := v.PriceAmount * int64(item.Quantity)
		subtotal += lineTotal
		items = append(items, domain.OrderItem{
			ID:         uuid.New().String(),
			VariantID:  v.ID,
			Name:       v.Name,
			UnitPrice:  v.PriceAmount,
			Quantity:   item.Quantity,
			TotalPrice: lineTotal,
		})
	}

	shipping, err := s.pricing.ShippingFor(input.ShippingMethod, subtotal)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              uuid.New().String(),
		UserID:          input.UserID,
		PaymentStatus:   domain.PaymentStatusPending,
		SubtotalAmount:  subtotal,
		ShippingAmount:  shipping,
		TotalAmount:     subtotal + shipping,
		Currency:        currency,
		ShippingMethod:  input.ShippingMethod,
		ShippingAddress: input.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	return order, items, nil
}

// precheckStock verifies availability for every line before any hold or
// provider call is made.
func (s *CheckoutService) precheckStock(ctx context.Context, items []domain.ReservationItem) error {
	for _, item := range items {
		available, err := s.reservations.GetAvailableStock(ctx, item.VariantID)
		if err != nil {
			return fmt.Errorf("precheck stock for variant %s: %w", item.VariantID, err)
		}
		if available < item.Quantity {
			return &domain.InsufficientStockError{
				VariantID: item.VariantID,
				Requested: item.Quantity,
				Available: available,
			}
		}
	}
	return nil
}

func (s *CheckoutService) reserveStock(ctx context.Context, input *PaymentIntentInput, checkoutID string) (*domain.BulkReservationResult, error) {
	if s.sagaTimeouts.ReservationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sagaTimeouts.ReservationTimeout)
		defer cancel()
	}
	return s.reservations.CreateBulkReservations(ctx, input.Items, checkoutID, input.UserID)
}

func (s *CheckoutService) createIntent(ctx context.Context, input *PaymentIntentInput, order *domain.Order, checkoutID string) (*provider.IntentResult, error) {
	if s.sagaTimeouts.PaymentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sagaTimeouts.PaymentTimeout)
		defer cancel()
	}

	return s.provider.CreateIntent(ctx, &provider.CreateIntentInput{
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		CheckoutID:     checkoutID,
		IdempotencyKey: input.IdempotencyKey,
	})
}

func (s *CheckoutService) persistOrder(ctx context.Context, order *domain.Order, items []domain.OrderItem, intentID string) error {
	if s.sagaTimeouts.OrderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sagaTimeouts.OrderTimeout)
		defer cancel()
	}

	order.PaymentIntentID = intentID
	for i := range items {
		items[i].OrderID = order.ID
	}

	if err := s.orders.CreateOrder(ctx, order, items); err != nil {
		return err
	}

	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// HandlePaymentSucceeded is invoked by the provider's webhook (or the
// client's confirmation callback). It confirms the checkout's holds,
// permanently decrementing stock, and marks the order paid.
func (s *CheckoutService) HandlePaymentSucceeded(ctx context.Context, paymentIntentID string) error {
	order, err := s.orders.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return fmt.Errorf("lookup order for payment %s: %w", paymentIntentID, err)
	}

	valid, err := s.reservations.AreReservationsValid(ctx, order.CheckoutID)
	if err != nil {
		return fmt.Errorf("validate reservations for checkout %s: %w", order.CheckoutID, err)
	}

	count, err := s.reservations.ConfirmReservations(ctx, order.CheckoutID)
	if err != nil {
		return fmt.Errorf("confirm reservations: %w", err)
	}

	if !valid {
		// Payment landed after the holds lapsed. The already-captured payment
		// is never failed: whatever was still pending got confirmed above.
		if count == 0 {
			// Every hold was swept before the confirmation arrived, so the
			// order will be marked paid without any stock decrement.
			s.logger.ErrorContext(ctx, "RECONCILIATION RISK: payment captured but no holds were confirmed",
				slog.String("checkout_id", order.CheckoutID),
				slog.String("payment_intent_id", paymentIntentID),
			)
		} else {
			s.logger.WarnContext(ctx, "payment succeeded after some holds lapsed",
				slog.String("checkout_id", order.CheckoutID),
				slog.String("payment_intent_id", paymentIntentID),
				slog.Int("reservations_confirmed", count),
			)
		}
	}

	if err := s.orders.UpdatePaymentStatus(ctx, paymentIntentID, domain.PaymentStatusPaid); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	s.logger.InfoContext(ctx, "payment succeeded",
		slog.String("checkout_id", order.CheckoutID),
		slog.String("payment_intent_id", paymentIntentID),
		slog.Int("reservations_confirmed", count),
	)

	return nil
}

// HandlePaymentFailed releases the checkout's holds back to the pool and
// marks the order failed.
func (s *CheckoutService) HandlePaymentFailed(ctx context.Context, paymentIntentID, reason string) error {
	order, err := s.orders.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return fmt.Errorf("lookup order for payment %s: %w", paymentIntentID, err)
	}

	if _, err := s.reservations.ReleaseReservations(ctx, order.CheckoutID, "payment_failed"); err != nil {
		return fmt.Errorf("release reservations: %w", err)
	}

	if err := s.orders.UpdatePaymentStatus(ctx, paymentIntentID, domain.PaymentStatusFailed); err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}

	s.logger.InfoContext(ctx, "payment failed, holds released",
		slog.String("checkout_id", order.CheckoutID),
		slog.String("payment_intent_id", paymentIntentID),
		slog.String("reason", reason),
	)

	return nil
}

// ReleaseCheckout releases a checkout's holds on explicit client abandonment.
func (s *CheckoutService) ReleaseCheckout(ctx context.Context, checkoutID string) (int, error) {
	if checkoutID == "" {
		return 0, apperrors.InvalidInput("checkout_id is required")
	}
	return s.reservations.ReleaseReservations(ctx, checkoutID, "client_released")
}
