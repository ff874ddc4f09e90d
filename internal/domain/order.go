package domain

import (
	"encoding/json"
	"time"
)

// Order payment statuses. An order starts pending when the payment intent is
// created and moves to paid, failed or cancelled based on the provider's
// outcome.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// Order is persisted once the payment intent exists, keyed by the intent id
// so the provider's webhook can locate it. Amounts come from the trusted
// catalog, never from the client.
type Order struct {
	ID              string          `json:"id"`
	CheckoutID      string          `json:"checkout_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	UserID          *string         `json:"user_id,omitempty"`
	PaymentStatus   string          `json:"payment_status"`
	SubtotalAmount  int64           `json:"subtotal_amount"`
	ShippingAmount  int64           `json:"shipping_amount"`
	TotalAmount     int64           `json:"total_amount"`
	Currency        string          `json:"currency"`
	ShippingMethod  string          `json:"shipping_method"`
	ShippingAddress json.RawMessage `json:"shipping_address,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order, priced from the catalog at checkout time.
type OrderItem struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	VariantID  string `json:"variant_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	TotalPrice int64  `json:"total_price"`
}

// PaymentIntentResult is returned to the client after a successful checkout
// orchestration. ClientSecret is what the payment form needs to confirm the
// charge.
type PaymentIntentResult struct {
	CheckoutID      string `json:"checkout_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}
