package domain

import (
	"fmt"

	apperrors "github.com/mugworks/checkout/pkg/errors"
)

// Shipping methods offered at checkout.
const (
	ShippingMethodStandard = "standard"
	ShippingMethodExpress  = "express"
)

// PricingRules holds the amounts (minor currency units) applied on top of the
// trusted catalog subtotal.
type PricingRules struct {
	StandardShippingAmount int64
	ExpressShippingAmount  int64
	FreeShippingThreshold  int64
	MinChargeAmount        int64
}

// ShippingFor returns the shipping surcharge for a method given the cart
// subtotal. Standard shipping is free once the subtotal reaches the
// free-shipping threshold; express is always charged.
func (p PricingRules) ShippingFor(method string, subtotal int64) (int64, error) {
	switch method {
	case ShippingMethodStandard:
		if subtotal >= p.FreeShippingThreshold {
			return 0, nil
		}
		return p.StandardShippingAmount, nil
	case ShippingMethodExpress:
		return p.ExpressShippingAmount, nil
	default:
		return 0, apperrors.InvalidInput(fmt.Sprintf("unknown shipping method %q", method))
	}
}

// CheckMinCharge rejects totals below the provider's minimum chargeable
// amount before any reservation or payment call is made.
func (p PricingRules) CheckMinCharge(total int64) error {
	if total < p.MinChargeAmount {
		return apperrors.InvalidInput(
			fmt.Sprintf("order total %d is below the minimum chargeable amount %d", total, p.MinChargeAmount))
	}
	return nil
}
