package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuoteCart(t *testing.T) {
	rules := []DiscountRule{
		{ID: "2x1", Kind: KindBuyXGetY, BuyQuantity: 2, GetQuantity: 1, Active: true,
			Scope: Scope{Type: ScopeProduct, ID: "mug"}},
		{ID: "big-cart", Kind: KindPercentage, Value: dec("10"), MinCartTotal: dec("100"), Active: true,
			Scope: Scope{Type: ScopeCategory, ID: "apparel"}},
	}
	lines := []CartLineItem{
		{ProductID: "mug", UnitPrice: dec("8"), Quantity: 2, CategoryID: "home"},
		{ProductID: "shirt", UnitPrice: dec("50"), Quantity: 2, CategoryID: "apparel"},
		{ProductID: "sticker", UnitPrice: dec("1.5"), Quantity: 1},
	}
	cfg := DefaultConfig()
	cfg.EnableTax = true
	cfg.TaxValue = dec("21")

	quote := QuoteCart(rules, lines, cfg)

	require.True(t, quote.ListSubtotal.Equal(dec("117.5")))
	require.Len(t, quote.Lines, 3)

	mug := quote.Lines[0]
	require.Equal(t, "2x1", mug.AppliedDiscount.ID)
	require.True(t, mug.LineTotal.Equal(dec("8")))
	require.True(t, mug.FinalUnitPrice.Equal(dec("4")))
	require.Equal(t, "$4.00", mug.Display.FinalUnitPrice)

	shirt := quote.Lines[1]
	require.Equal(t, "big-cart", shirt.AppliedDiscount.ID)
	require.True(t, shirt.DiscountAmount.Equal(dec("10")))
	require.Equal(t, "-10%", shirt.BadgeText)

	sticker := quote.Lines[2]
	require.Nil(t, sticker.AppliedDiscount)
	require.True(t, sticker.LineTotal.Equal(dec("1.5")))

	require.True(t, quote.DiscountTotal.Equal(dec("18")))
	require.True(t, quote.Totals.SubTotal.Equal(dec("99.5")))
	require.True(t, quote.Totals.Tax.Equal(dec("20.895")), quote.Totals.Tax.String())
	require.True(t, quote.Totals.Total.Equal(dec("120.395")))
	require.Equal(t, "$120.40", quote.Display.Total)
}

func TestQuoteCartHiddenPrices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShowPrices = false
	quote := QuoteCart(nil, []CartLineItem{{ProductID: "p", UnitPrice: dec("3"), Quantity: 1}}, cfg)
	require.Nil(t, quote.Display)
	require.Nil(t, quote.Lines[0].Display)
	require.True(t, quote.Totals.Total.Equal(dec("3")))
}

func TestQuoteCartEmpty(t *testing.T) {
	quote := QuoteCart(nil, nil, DefaultConfig())
	require.Empty(t, quote.Lines)
	require.True(t, quote.Totals.Total.IsZero())
	require.Equal(t, "$0.00", quote.Display.SubTotal)
}
