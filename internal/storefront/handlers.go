// Package storefront serves the public pricing endpoints of a tenant store.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/misproductos/backend/internal/common"
	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/pricing"
	"github.com/misproductos/backend/internal/repo"
)

// maxCartLines bounds a single quote request.
const maxCartLines = 200

// PricingSource loads the rules and settings of the tenant in context.
type PricingSource interface {
	ActiveRules(ctx context.Context) ([]pricing.DiscountRule, error)
	PricingConfig(ctx context.Context) (pricing.TenantPricingConfig, error)
}

// Handler serves price resolution, cart quotes and pricing settings.
type Handler struct {
	Source PricingSource
	Logger *zerolog.Logger

	validate *validator.Validate
}

// NewHandler builds a storefront handler backed by src.
func NewHandler(src PricingSource, logger *zerolog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{Source: src, Logger: logger, validate: v}
}

type productInput struct {
	ID         string          `json:"id" validate:"required,max=64"`
	CategoryID string          `json:"categoryId" validate:"max=64"`
	TagIDs     []string        `json:"tagIds" validate:"max=50"`
	Price      decimal.Decimal `json:"price"`
}

type resolveRequest struct {
	Product         productInput    `json:"product"`
	Quantity        *int            `json:"quantity" validate:"omitempty,gte=0,lte=100000"`
	CartSubtotal    decimal.Decimal `json:"cartSubtotal"`
	CheckConditions bool            `json:"checkConditions"`
}

type lineInput struct {
	ProductID  string          `json:"productId" validate:"required,max=64"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity" validate:"gte=1,lte=100000"`
	CategoryID string          `json:"categoryId" validate:"max=64"`
	TagIDs     []string        `json:"tagIds" validate:"max=50"`
}

type quoteRequest struct {
	Lines []lineInput `json:"lines" validate:"required,min=1,dive"`
}

// PriceDisplay carries formatted strings for a resolution.
type PriceDisplay struct {
	Price          string `json:"price"`
	DiscountAmount string `json:"discountAmount"`
	FinalPrice     string `json:"finalPrice"`
}

// ResolveResponse is the body returned by Resolve.
type ResolveResponse struct {
	pricing.Result
	Quantity int           `json:"quantity"`
	Display  *PriceDisplay `json:"display,omitempty"`
}

// Resolve picks the best discount for one product.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing not configured", nil)
		return
	}
	var req resolveRequest
	if !h.decode(w, r, &req) {
		return
	}
	// An omitted quantity prices one unit; an explicit zero prices nothing.
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	rules, cfg, err := h.load(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	product := pricing.Product{
		ID:         strings.TrimSpace(req.Product.ID),
		CategoryID: strings.TrimSpace(req.Product.CategoryID),
		TagIDs:     req.Product.TagIDs,
		Price:      req.Product.Price,
	}
	res := pricing.Resolver{Pricing: &cfg}.Resolve(rules, product, quantity, req.CartSubtotal, req.CheckConditions)
	observeResolution(res)

	resp := ResolveResponse{Result: res, Quantity: quantity}
	if price, ok := pricing.FormatPrice(product.Price.Mul(decimal.NewFromInt(int64(quantity))), cfg); ok {
		discount, _ := pricing.FormatPrice(res.DiscountAmount, cfg)
		final, _ := pricing.FormatPrice(res.FinalPrice, cfg)
		resp.Display = &PriceDisplay{Price: price, DiscountAmount: discount, FinalPrice: final}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

// QuoteCart prices every line of a cart and computes order totals.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing not configured", nil)
		return
	}
	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.Lines) > maxCartLines {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "too many cart lines", map[string]any{"max": maxCartLines})
		return
	}
	rules, cfg, err := h.load(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	lines := make([]pricing.CartLineItem, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, pricing.CartLineItem{
			ProductID:  strings.TrimSpace(l.ProductID),
			UnitPrice:  l.UnitPrice,
			Quantity:   l.Quantity,
			CategoryID: strings.TrimSpace(l.CategoryID),
			TagIDs:     l.TagIDs,
		})
	}
	quote := pricing.QuoteCart(rules, lines, cfg)
	obs.ObserveCartQuote(len(quote.Lines), quote.DiscountTotal.IsPositive())
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// Settings returns the tenant's typed pricing configuration.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	if h.Source == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing not configured", nil)
		return
	}
	cfg, err := h.Source.PricingConfig(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cfg})
}

func (h *Handler) load(ctx context.Context) ([]pricing.DiscountRule, pricing.TenantPricingConfig, error) {
	cfg, err := h.Source.PricingConfig(ctx)
	if err != nil {
		return nil, pricing.TenantPricingConfig{}, err
	}
	rules, err := h.Source.ActiveRules(ctx)
	if err != nil {
		return nil, pricing.TenantPricingConfig{}, err
	}
	return rules, cfg, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.validate == nil {
		return true
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]map[string]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, map[string]string{"field": fieldPath(fe), "rule": fe.Tag()})
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", fields)
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid payload", nil)
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrTenantMissing):
		common.JSONError(w, http.StatusNotFound, "TENANT_REQUIRED", "store not found", nil)
	case errors.Is(err, repo.ErrTenantInvalid):
		common.JSONError(w, http.StatusBadRequest, "TENANT_INVALID", "invalid store identifier", nil)
	default:
		if h.Logger != nil {
			h.Logger.Error().Err(err).Msg("load pricing data")
		}
		common.JSONError(w, http.StatusServiceUnavailable, "PRICING_UNAVAILABLE", "pricing data unavailable", nil)
	}
}

// fieldPath drops the request type from the validator namespace ("lines[0].productId").
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func observeResolution(res pricing.Result) {
	switch {
	case res.Discount == nil:
		obs.ObservePriceResolution("none", "")
	case res.DiscountAmount.IsPositive():
		obs.ObservePriceResolution("discounted", string(res.Discount.Kind))
	default:
		obs.ObservePriceResolution("badge_only", string(res.Discount.Kind))
	}
}
