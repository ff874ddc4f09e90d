package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mugworks/checkout/internal/domain"
	"github.com/mugworks/checkout/internal/repository"
	"github.com/mugworks/checkout/pkg/database"
	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// ReservationEvents is the slice of the event producer the reservation
// service publishes through.
type ReservationEvents interface {
	PublishReservationsCreated(ctx context.Context, checkoutID string, reservations []domain.StockReservation) error
	PublishReservationsConfirmed(ctx context.Context, checkoutID string, count int) error
	PublishReservationsReleased(ctx context.Context, checkoutID string, count int, reason string) error
}

// ReservationService implements the business logic for stock reservations:
// time-boxed holds created at checkout, confirmed on payment, released on
// failure, and swept when their TTL elapses.
type ReservationService struct {
	reservations repository.ReservationRepository
	events       ReservationEvents
	logger       *slog.Logger
	ttlMinutes   int
	maxRetries   int
	retryDelay   time.Duration
}

// NewReservationService creates a new reservation service. ttlMinutes <= 0
// falls back to the default hold duration.
func NewReservationService(
	reservations repository.ReservationRepository,
	events ReservationEvents,
	logger *slog.Logger,
	ttlMinutes int,
) *ReservationService {
	if ttlMinutes <= 0 {
		ttlMinutes = domain.DefaultReservationTTLMinutes
	}
	return &ReservationService{
		reservations: reservations,
		events:       events,
		logger:       logger,
		ttlMinutes:   ttlMinutes,
		maxRetries:   database.DefaultMaxRetries,
		retryDelay:   database.DefaultRetryBaseDelay,
	}
}

// NewCheckoutID generates a correlation id for one checkout attempt.
func NewCheckoutID() string {
	return uuid.New().String()
}

// CreateReservation places a pending hold on quantity units of a variant.
// The availability check and insert happen in one atomic call at the store;
// transient infrastructure failures are retried, insufficient stock is not.
func (s *ReservationService) CreateReservation(ctx context.Context, variantID string, quantity int, checkoutID string, userID *string) (*domain.StockReservation, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant_id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be positive")
	}
	if checkoutID == "" {
		return nil, apperrors.InvalidInput("checkout_id is required")
	}

	var reservation *domain.StockReservation
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		reservation, err = s.reservations.CreateReservation(ctx, variantID, quantity, checkoutID, userID, s.ttlMinutes)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "reservation created",
		slog.String("reservation_id", reservation.ID),
		slog.String("variant_id", variantID),
		slog.Int("quantity", quantity),
		slog.String("checkout_id", checkoutID),
		slog.Time("expires_at", reservation.ExpiresAt),
	)

	return reservation, nil
}

// CreateBulkReservations reserves a whole cart, one item at a time in the
// listed order. On the first failure every hold already placed in this batch
// is released, so the batch is all-or-nothing at the application level even
// though the store offers no multi-row rollback across calls.
func (s *ReservationService) CreateBulkReservations(ctx context.Context, items []domain.ReservationItem, checkoutID string, userID *string) (*domain.BulkReservationResult, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("at least one item is required")
	}
	if checkoutID == "" {
		return nil, apperrors.InvalidInput("checkout_id is required")
	}

	created := make([]domain.StockReservation, 0, len(items))
	for _, item := range items {
		reservation, err := s.CreateReservation(ctx, item.VariantID, item.Quantity, checkoutID, userID)
		if err != nil {
			s.logger.WarnContext(ctx, "bulk reservation failed, releasing partial batch",
				slog.String("checkout_id", checkoutID),
				slog.String("variant_id", item.VariantID),
				slog.Int("created_so_far", len(created)),
				slog.String("error", err.Error()),
			)

			if len(created) > 0 {
				if _, relErr := s.ReleaseReservations(ctx, checkoutID, "bulk_compensation"); relErr != nil {
					s.logger.ErrorContext(ctx, "failed to release partial batch, holds will lapse via TTL",
						slog.String("checkout_id", checkoutID),
						slog.String("error", relErr.Error()),
					)
				}
			}

			return &domain.BulkReservationResult{
				Success: false,
				Errors:  []string{fmt.Sprintf("%s: %v", item.VariantID, err)},
			}, err
		}
		created = append(created, *reservation)
	}

	if err := s.events.PublishReservationsCreated(ctx, checkoutID, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservations.created event",
			slog.String("checkout_id", checkoutID),
			slog.String("error", err.Error()),
		)
	}

	return &domain.BulkReservationResult{
		Success:      true,
		Reservations: created,
	}, nil
}

// ConfirmReservations marks all pending holds for the checkout as confirmed
// and permanently decrements stock. Called once payment succeeds.
func (s *ReservationService) ConfirmReservations(ctx context.Context, checkoutID string) (int, error) {
	if checkoutID == "" {
		return 0, apperrors.InvalidInput("checkout_id is required")
	}

	var count int
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.reservations.ConfirmByCheckoutID(ctx, checkoutID)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return 0, fmt.Errorf("confirm reservations: %w", err)
	}

	if err := s.events.PublishReservationsConfirmed(ctx, checkoutID, count); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish reservations.confirmed event",
			slog.String("checkout_id", checkoutID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservations confirmed",
		slog.String("checkout_id", checkoutID),
		slog.Int("count", count),
	)

	return count, nil
}

// ReleaseReservations cancels all pending holds for the checkout, returning
// their units to the pool. Releasing an already-released or confirmed
// checkout affects zero rows and is not an error.
func (s *ReservationService) ReleaseReservations(ctx context.Context, checkoutID, reason string) (int, error) {
	if checkoutID == "" {
		return 0, apperrors.InvalidInput("checkout_id is required")
	}

	var count int
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.reservations.ReleaseByCheckoutID(ctx, checkoutID)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return 0, fmt.Errorf("release reservations: %w", err)
	}

	if count > 0 {
		if err := s.events.PublishReservationsReleased(ctx, checkoutID, count, reason); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish reservations.released event",
				slog.String("checkout_id", checkoutID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "reservations released",
		slog.String("checkout_id", checkoutID),
		slog.Int("count", count),
		slog.String("reason", reason),
	)

	return count, nil
}

// AreReservationsValid reports whether the checkout still holds its stock:
// at least one reservation exists and every one is pending with time left.
// Used to gate a late payment-confirmation retry.
func (s *ReservationService) AreReservationsValid(ctx context.Context, checkoutID string) (bool, error) {
	reservations, err := s.reservations.GetByCheckoutID(ctx, checkoutID)
	if err != nil {
		return false, fmt.Errorf("check reservations: %w", err)
	}
	if len(reservations) == 0 {
		return false, nil
	}

	for i := range reservations {
		if !reservations[i].IsActive() {
			return false, nil
		}
	}
	return true, nil
}

// GetAvailableStock returns physical stock minus pending unexpired holds.
func (s *ReservationService) GetAvailableStock(ctx context.Context, variantID string) (int, error) {
	if variantID == "" {
		return 0, apperrors.InvalidInput("variant_id is required")
	}

	var available int
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		available, err = s.reservations.GetAvailableStock(ctx, variantID)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return 0, err
	}
	return available, nil
}

// CleanupExpiredReservations sweeps pending holds past their expiry into the
// expired state. Safe to run concurrently with itself: rows already
// transitioned are skipped, so a double run is a no-op the second time.
func (s *ReservationService) CleanupExpiredReservations(ctx context.Context) (int, error) {
	var count int
	err := database.Retry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.reservations.CleanupExpired(ctx)
		return err
	}, s.maxRetries, s.retryDelay)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired reservations: %w", err)
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "expired reservations cleaned up",
			slog.Int("count", count),
		)
	}

	return count, nil
}
