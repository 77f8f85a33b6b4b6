package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/pricing"
	"github.com/misproductos/backend/internal/repo"
)

type staticSource struct {
	rules []pricing.DiscountRule
	cfg   pricing.TenantPricingConfig
	err   error
}

func (s staticSource) ActiveRules(context.Context) ([]pricing.DiscountRule, error) {
	return s.rules, s.err
}

func (s staticSource) PricingConfig(context.Context) (pricing.TenantPricingConfig, error) {
	return s.cfg, s.err
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func post(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

type resolveBody struct {
	Discount *struct {
		ID string `json:"id"`
	} `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	BadgeText      string          `json:"badgeText"`
	Quantity       int             `json:"quantity"`
	Display        *PriceDisplay   `json:"display"`
}

func TestResolveAppliesBestDiscount(t *testing.T) {
	obs.MustRegisterPricingMetrics("test", prometheus.NewRegistry())
	before := testutil.ToFloat64(obs.PriceResolutionsTotal.WithLabelValues("discounted", "PERCENTAGE"))

	src := staticSource{
		rules: []pricing.DiscountRule{{ID: "r1", Name: "Veinte", Kind: pricing.KindPercentage, Value: dec("20"), MinQuantity: 1, Active: true, CreatedAt: time.Now()}},
		cfg:   pricing.DefaultConfig(),
	}
	h := NewHandler(src, nil)
	rec := post(t, h.Resolve, `{"product":{"id":"p1","price":"100"},"cartSubtotal":"100","checkConditions":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got resolveBody
	dataOf(t, rec, &got)
	require.NotNil(t, got.Discount)
	require.Equal(t, "r1", got.Discount.ID)
	require.True(t, got.DiscountAmount.Equal(dec("20")))
	require.True(t, got.FinalPrice.Equal(dec("80")))
	require.Equal(t, "-20%", got.BadgeText)
	require.Equal(t, 1, got.Quantity)
	require.Equal(t, &PriceDisplay{Price: "$100.00", DiscountAmount: "$20.00", FinalPrice: "$80.00"}, got.Display)
	require.Equal(t, before+1, testutil.ToFloat64(obs.PriceResolutionsTotal.WithLabelValues("discounted", "PERCENTAGE")))
}

func TestResolveWithoutRules(t *testing.T) {
	h := NewHandler(staticSource{cfg: pricing.DefaultConfig()}, nil)
	rec := post(t, h.Resolve, `{"product":{"id":"p1","price":"12.50"},"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got resolveBody
	dataOf(t, rec, &got)
	require.Nil(t, got.Discount)
	require.True(t, got.DiscountAmount.IsZero())
	require.True(t, got.FinalPrice.Equal(dec("25")))
	require.Empty(t, got.BadgeText)
}

func TestResolveExplicitZeroQuantity(t *testing.T) {
	src := staticSource{
		rules: []pricing.DiscountRule{{ID: "r1", Kind: pricing.KindPercentage, Value: dec("20"), MinQuantity: 1, Active: true, CreatedAt: time.Now()}},
		cfg:   pricing.DefaultConfig(),
	}
	h := NewHandler(src, nil)
	rec := post(t, h.Resolve, `{"product":{"id":"p1","price":"100"},"quantity":0,"checkConditions":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got resolveBody
	dataOf(t, rec, &got)
	require.Zero(t, got.Quantity)
	require.Nil(t, got.Discount)
	require.True(t, got.DiscountAmount.IsZero())
	require.True(t, got.FinalPrice.IsZero())
	require.Equal(t, "$0.00", got.Display.FinalPrice)
}

func TestResolveHidesDisplayWhenPricesHidden(t *testing.T) {
	cfg := pricing.DefaultConfig()
	cfg.ShowPrices = false
	h := NewHandler(staticSource{cfg: cfg}, nil)
	rec := post(t, h.Resolve, `{"product":{"id":"p1","price":"10"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"display"`)
}

func TestResolveRejectsBadPayloads(t *testing.T) {
	h := NewHandler(staticSource{cfg: pricing.DefaultConfig()}, nil)

	rec := post(t, h.Resolve, `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h.Resolve, `{"product":{"price":"10"}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"product.id"`)

	rec = post(t, h.Resolve, `{"product":{"id":"p1","price":"10"},"quantity":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuoteCart(t *testing.T) {
	cfg := pricing.DefaultConfig()
	cfg.Currency = "ARS"
	cfg.EnableTax = true
	cfg.TaxValue = dec("21")
	src := staticSource{
		rules: []pricing.DiscountRule{{ID: "bxgy", Kind: pricing.KindBuyXGetY, BuyQuantity: 2, GetQuantity: 1, MinQuantity: 1, Active: true,
			Scope: pricing.Scope{Type: pricing.ScopeCategory, ID: "remeras"}}},
		cfg: cfg,
	}
	h := NewHandler(src, nil)
	rec := post(t, h.QuoteCart, `{"lines":[
		{"productId":"r1","unitPrice":"50","quantity":2,"categoryId":"remeras"},
		{"productId":"g1","unitPrice":"20","quantity":1,"categoryId":"gorras"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var quote pricing.CartQuote
	dataOf(t, rec, &quote)
	require.Len(t, quote.Lines, 2)
	require.Equal(t, "2x1", quote.Lines[0].BadgeText)
	require.True(t, quote.Lines[0].LineTotal.Equal(dec("50")))
	require.Nil(t, quote.Lines[1].AppliedDiscount)
	require.True(t, quote.ListSubtotal.Equal(dec("120")))
	require.True(t, quote.DiscountTotal.Equal(dec("50")))
	require.True(t, quote.Totals.SubTotal.Equal(dec("70")))
	require.True(t, quote.Totals.Total.Equal(dec("84.7")))
	require.NotNil(t, quote.Display)
	require.Equal(t, "$84.70", quote.Display.Total)
}

func TestQuoteCartValidation(t *testing.T) {
	h := NewHandler(staticSource{cfg: pricing.DefaultConfig()}, nil)

	rec := post(t, h.QuoteCart, `{"lines":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, h.QuoteCart, `{"lines":[{"productId":"p1","unitPrice":"1","quantity":0}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `lines[0].quantity`)

	lines := make([]string, maxCartLines+1)
	for i := range lines {
		lines[i] = `{"productId":"p","unitPrice":"1","quantity":1}`
	}
	rec = post(t, h.QuoteCart, `{"lines":[`+strings.Join(lines, ",")+`]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsEndpoint(t *testing.T) {
	cfg := pricing.DefaultConfig()
	cfg.Format = pricing.FormatCodeAfter
	h := NewHandler(staticSource{cfg: cfg}, nil)
	rec := httptest.NewRecorder()
	h.Settings(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got pricing.TenantPricingConfig
	dataOf(t, rec, &got)
	require.Equal(t, pricing.FormatCodeAfter, got.Format)
	require.Equal(t, "USD", got.Currency)
}

func TestSourceErrors(t *testing.T) {
	h := NewHandler(staticSource{err: repo.ErrTenantMissing}, nil)
	rec := post(t, h.Resolve, `{"product":{"id":"p1","price":"10"}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "TENANT_REQUIRED")

	h = NewHandler(staticSource{err: errors.New("redis down")}, nil)
	rec = post(t, h.QuoteCart, `{"lines":[{"productId":"p1","unitPrice":"1","quantity":1}]}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	(&Handler{}).Settings(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
