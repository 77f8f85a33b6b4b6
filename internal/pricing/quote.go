package pricing

import "github.com/shopspring/decimal"

// LineQuote is a cart line with its resolved discount.
type LineQuote struct {
	CartLineItem
	AppliedDiscount *DiscountRule   `json:"appliedDiscount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	FinalUnitPrice  decimal.Decimal `json:"finalUnitPrice"`
	LineTotal       decimal.Decimal `json:"lineTotal"`
	BadgeText       string          `json:"badgeText,omitempty"`
	Display         *LineDisplay    `json:"display,omitempty"`
}

// LineDisplay carries formatted strings for a line. Nil when prices are hidden.
type LineDisplay struct {
	UnitPrice      string `json:"unitPrice"`
	FinalUnitPrice string `json:"finalUnitPrice"`
	LineTotal      string `json:"lineTotal"`
}

// CartQuote is the priced view of a cart.
type CartQuote struct {
	Lines         []LineQuote     `json:"lines"`
	ListSubtotal  decimal.Decimal `json:"listSubtotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	Totals        Totals          `json:"totals"`
	Display       *TotalsDisplay  `json:"display,omitempty"`
}

// TotalsDisplay carries formatted order totals. Nil when prices are hidden.
type TotalsDisplay struct {
	SubTotal string `json:"subTotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// QuoteCart resolves every line against the pre-discount cart subtotal with
// gates enforced, then computes order totals on the discounted subtotal.
func QuoteCart(rules []DiscountRule, lines []CartLineItem, cfg TenantPricingConfig) CartQuote {
	listSubtotal := decimal.Zero
	for _, line := range lines {
		listSubtotal = listSubtotal.Add(grossPrice(line.UnitPrice, line.Quantity))
	}

	resolver := Resolver{Pricing: &cfg}
	quote := CartQuote{
		Lines:         make([]LineQuote, 0, len(lines)),
		ListSubtotal:  listSubtotal,
		DiscountTotal: decimal.Zero,
	}
	discounted := decimal.Zero
	for _, line := range lines {
		res := resolver.Resolve(rules, line.Product(), line.Quantity, listSubtotal, true)
		lq := LineQuote{
			CartLineItem:    line,
			AppliedDiscount: res.Discount,
			DiscountAmount:  res.DiscountAmount,
			FinalUnitPrice:  decimal.Zero,
			LineTotal:       res.FinalPrice,
			BadgeText:       res.BadgeText,
		}
		if line.Quantity > 0 {
			lq.FinalUnitPrice = res.FinalPrice.Div(decimal.NewFromInt(int64(line.Quantity)))
		}
		if unit, ok := FormatPrice(nonNegative(line.UnitPrice), cfg); ok {
			finalUnit, _ := FormatPrice(lq.FinalUnitPrice, cfg)
			total, _ := FormatPrice(lq.LineTotal, cfg)
			lq.Display = &LineDisplay{UnitPrice: unit, FinalUnitPrice: finalUnit, LineTotal: total}
		}
		quote.Lines = append(quote.Lines, lq)
		quote.DiscountTotal = quote.DiscountTotal.Add(res.DiscountAmount)
		discounted = discounted.Add(res.FinalPrice)
	}

	quote.Totals = ComputeOrderTotals(discounted, cfg)
	if sub, ok := FormatPrice(quote.Totals.SubTotal, cfg); ok {
		tax, _ := FormatPrice(quote.Totals.Tax, cfg)
		total, _ := FormatPrice(quote.Totals.Total, cfg)
		quote.Display = &TotalsDisplay{SubTotal: sub, Tax: tax, Total: total}
	}
	return quote
}
