package domain

import "time"

// ProductVariant is a purchasable variant of a product. StockQuantity is the
// physical count on hand; available stock is StockQuantity minus the pending
// reservations currently holding units.
type ProductVariant struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	Name          string    `json:"name"`
	SKU           string    `json:"sku"`
	PriceAmount   int64     `json:"price_amount"`
	Currency      string    `json:"currency"`
	StockQuantity int       `json:"stock_quantity"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// StockAvailability pairs a variant with its computed available quantity.
type StockAvailability struct {
	VariantID string `json:"variant_id"`
	Available int    `json:"available"`
}
