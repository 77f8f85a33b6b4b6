package settings

import (
	"strconv"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/misproductos/backend/internal/pricing"
)

// Keys of the free-form tenant settings that feed the pricing configuration.
const (
	KeyCurrency   = "prices.currency"
	KeyFormat     = "prices.format"
	KeyShowPrices = "prices.showPrices"
	KeyDecimals   = "prices.decimals"
	KeyEnableTax  = "prices.enableTax"
	KeyTaxType    = "prices.taxType"
	KeyTaxValue   = "prices.taxValue"
)

// PricingKeys lists every key understood by FromPairs.
var PricingKeys = []string{KeyCurrency, KeyFormat, KeyShowPrices, KeyDecimals, KeyEnableTax, KeyTaxType, KeyTaxValue}

// FromPairs types and defaults the tenant key/value settings. Keys are matched
// case-insensitively; malformed values fall back to their defaults.
func FromPairs(pairs map[string]string) pricing.TenantPricingConfig {
	flat := make(map[string]any, len(pairs))
	for key, value := range pairs {
		flat[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	k := koanf.New(".")
	// confmap only fails on a malformed delimiter, which cannot happen here.
	_ = k.Load(confmap.Provider(flat, "."), nil)

	cfg := pricing.DefaultConfig()
	if currency := strings.ToUpper(k.String(lower(KeyCurrency))); currency != "" {
		cfg.Currency = currency
	}
	if format, ok := pricing.ParseFormat(k.String(lower(KeyFormat))); ok {
		cfg.Format = format
	}
	cfg.ShowPrices = parseBool(k.String(lower(KeyShowPrices)), true)
	if raw := k.String(lower(KeyDecimals)); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n <= 8 {
			cfg.Decimals = n
		}
	}
	cfg.EnableTax = parseBool(k.String(lower(KeyEnableTax)), false)
	if strings.EqualFold(k.String(lower(KeyTaxType)), string(pricing.TaxFixed)) {
		cfg.TaxType = pricing.TaxFixed
	}
	cfg.TaxValue = parseDecimal(k.String(lower(KeyTaxValue)))
	return cfg
}

// Select keeps only the pricing keys of pairs, so unrelated settings are not cached.
func Select(pairs map[string]string) map[string]string {
	out := make(map[string]string, len(PricingKeys))
	for key, value := range pairs {
		for _, known := range PricingKeys {
			if strings.EqualFold(strings.TrimSpace(key), known) {
				out[known] = value
				break
			}
		}
	}
	return out
}

// ToPairs is the inverse of FromPairs, used when persisting admin edits.
func ToPairs(cfg pricing.TenantPricingConfig) map[string]string {
	taxType := cfg.TaxType
	if taxType == "" {
		taxType = pricing.TaxPercentage
	}
	return map[string]string{
		KeyCurrency:   strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		KeyFormat:     string(cfg.Format),
		KeyShowPrices: strconv.FormatBool(cfg.ShowPrices),
		KeyDecimals:   strconv.Itoa(cfg.Decimals),
		KeyEnableTax:  strconv.FormatBool(cfg.EnableTax),
		KeyTaxType:    string(taxType),
		KeyTaxValue:   cfg.TaxValue.String(),
	}
}

func lower(key string) string {
	return strings.ToLower(key)
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseDecimal(value string) decimal.Decimal {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", "."))
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
