package domain

import (
	"fmt"
	"time"

	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// Reservation statuses.
const (
	ReservationStatusPending   = "pending"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusExpired   = "expired"
)

// DefaultReservationTTLMinutes is how long a pending hold lasts before it
// self-expires and stops deducting from available stock.
const DefaultReservationTTLMinutes = 15

// StockReservation is a time-boxed hold on N units of a variant for one
// checkout attempt. A pending reservation deducts from available stock until
// it is confirmed (stock permanently decremented), cancelled, or its
// expires_at passes. Confirmed, cancelled and expired rows are inert.
type StockReservation struct {
	ID         string    `json:"id"`
	VariantID  string    `json:"variant_id"`
	Quantity   int       `json:"quantity"`
	CheckoutID string    `json:"checkout_id"`
	UserID     *string   `json:"user_id,omitempty"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsExpired reports whether the hold's TTL has elapsed.
func (r *StockReservation) IsExpired() bool {
	return time.Now().UTC().After(r.ExpiresAt)
}

// IsActive reports whether the reservation still holds stock: pending and not
// past its expiry.
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationStatusPending && !r.IsExpired()
}

// ReservationItem is one line of a bulk reservation request.
type ReservationItem struct {
	VariantID string `json:"variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// BulkReservationResult reports the outcome of reserving a whole cart.
// On failure every reservation created earlier in the batch has already been
// released, so Reservations is only populated when Success is true.
type BulkReservationResult struct {
	Success      bool               `json:"success"`
	Reservations []StockReservation `json:"reservations"`
	Errors       []string           `json:"errors,omitempty"`
}

// InsufficientStockError reports a reservation rejected because fewer units
// are available than requested. It is a business error, never retried.
type InsufficientStockError struct {
	VariantID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Available: %d", e.Available)
}

// Unwrap lets errors.Is match the package-level sentinel.
func (e *InsufficientStockError) Unwrap() error {
	return apperrors.ErrInsufficientStock
}
