package pricing

import "github.com/shopspring/decimal"

// Totals aggregates the payable amounts of an order.
type Totals struct {
	SubTotal decimal.Decimal `json:"subTotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeOrderTotals applies the tenant tax rule to subtotal. Negative inputs
// are clamped to zero. Amounts keep full precision; only FormatPrice rounds.
func ComputeOrderTotals(subtotal decimal.Decimal, cfg TenantPricingConfig) Totals {
	subtotal = nonNegative(subtotal)
	tax := decimal.Zero
	if cfg.EnableTax {
		value := nonNegative(cfg.TaxValue)
		switch cfg.TaxType {
		case TaxFixed:
			tax = value
		default:
			tax = subtotal.Mul(value).Div(hundred)
		}
	}
	return Totals{
		SubTotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
