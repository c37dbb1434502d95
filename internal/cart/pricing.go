package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/config"
)

var hundred = decimal.NewFromInt(100)

// PricingPolicy holds the shipping and discount rules applied to a snapshot.
// Both functions are total: they are defined for a zero subtotal.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// NewPricingPolicy builds the policy from configuration.
func NewPricingPolicy(cfg config.PricingConfig) PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingFee:       cfg.FlatShippingFee,
	}
}

// Shipping returns the fee for a subtotal. An empty selection always pays the
// flat fee.
func (p PricingPolicy) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return p.FlatShippingFee
	}
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.FlatShippingFee
}

// Discount sums the promotions of the selected, resolved lines and clamps the
// result to [0, subtotal].
func (p PricingPolicy) Discount(subtotal decimal.Decimal, selected []LineView) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, line := range selected {
		if line.Product == nil {
			continue
		}
		total = total.Add(LineDiscount(line.Product.UnitPrice, line.Product.PromotionPercent, line.Quantity))
	}
	if total.GreaterThan(subtotal) {
		return subtotal
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// LineDiscount is unitPrice × pct/100 × qty rounded to cents. pct is clamped to [0, 100].
func LineDiscount(unitPrice, pct decimal.Decimal, qty int) decimal.Decimal {
	if !pct.IsPositive() || qty < 1 {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return unitPrice.Mul(pct).Div(hundred).Mul(decimal.NewFromInt(int64(qty))).Round(2)
}
