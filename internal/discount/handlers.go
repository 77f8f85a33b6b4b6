package discount

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/misproductos/backend/internal/common"
	"github.com/misproductos/backend/internal/pricing"
	"github.com/misproductos/backend/internal/repo"
)

// Handler exposes tenant admin endpoints for discount rules and pricing settings.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
}

type settingsPayload struct {
	Currency   *string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Format     *string          `json:"format" validate:"omitempty,oneof=symbol-before symbol-after code-before code-after"`
	ShowPrices *bool            `json:"showPrices"`
	Decimals   *int             `json:"decimals" validate:"omitempty,gte=0,lte=8"`
	EnableTax  *bool            `json:"enableTax"`
	TaxType    *string          `json:"taxType" validate:"omitempty,oneof=percentage fixed"`
	TaxValue   *decimal.Decimal `json:"taxValue"`
}

// List returns the tenant's rules, paginated with ?page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	rules, err := h.Svc.ListRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if r.URL.Query().Get("active") == "true" {
		active := rules[:0]
		for _, rule := range rules {
			if rule.Active {
				active = append(active, rule)
			}
		}
		rules = active
	}
	page, perPage := common.ParsePagination(r, h.perPage())
	start := (page - 1) * perPage
	if start > len(rules) {
		start = len(rules)
	}
	end := start + perPage
	if end > len(rules) {
		end = len(rules)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       rules[start:end],
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: len(rules)},
	})
}

// Get returns a single rule.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	rule, err := h.Svc.GetRule(r.Context(), ruleID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

// Create inserts a new rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	var payload RuleInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	rule, err := h.Svc.CreateRule(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": rule})
}

// Update replaces an existing rule.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	var payload RuleInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	rule, err := h.Svc.UpdateRule(r.Context(), ruleID(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rule})
}

// Delete removes a rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	if err := h.Svc.DeleteRule(r.Context(), ruleID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings merges the supplied fields into the tenant pricing settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Svc.validator().Settings(payload); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid pricing settings", verr.Fields)
			return
		}
		writeError(w, err)
		return
	}
	current, err := h.Svc.PricingConfig(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.Svc.UpdatePricingConfig(r.Context(), payload.apply(current))
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

func (p settingsPayload) apply(cfg pricing.TenantPricingConfig) pricing.TenantPricingConfig {
	if p.Currency != nil {
		cfg.Currency = strings.ToUpper(*p.Currency)
	}
	if p.Format != nil {
		cfg.Format = pricing.Format(*p.Format)
	}
	if p.ShowPrices != nil {
		cfg.ShowPrices = *p.ShowPrices
	}
	if p.Decimals != nil {
		cfg.Decimals = *p.Decimals
	}
	if p.EnableTax != nil {
		cfg.EnableTax = *p.EnableTax
	}
	if p.TaxType != nil {
		cfg.TaxType = pricing.TaxType(*p.TaxType)
	}
	if p.TaxValue != nil {
		cfg.TaxValue = *p.TaxValue
	}
	return cfg
}

func (h *Handler) perPage() int {
	if h.DefaultPerPage <= 0 {
		return 50
	}
	return h.DefaultPerPage
}

func ruleID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

func writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid discount rule", verr.Fields)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount rule not found", nil)
	case errors.Is(err, repo.ErrTenantMissing):
		common.JSONError(w, http.StatusNotFound, "TENANT_REQUIRED", "store not found", nil)
	case errors.Is(err, repo.ErrTenantInvalid):
		common.JSONError(w, http.StatusBadRequest, "TENANT_INVALID", "invalid store identifier", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to process request", nil)
	}
}
