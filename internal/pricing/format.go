package pricing

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Format controls where the currency marker is rendered.
type Format string

const (
	FormatSymbolBefore Format = "symbol-before"
	FormatSymbolAfter  Format = "symbol-after"
	FormatCodeBefore   Format = "code-before"
	FormatCodeAfter    Format = "code-after"
)

// ParseFormat normalises a display format. Unknown values report false.
func ParseFormat(value string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatSymbolBefore:
		return FormatSymbolBefore, true
	case FormatSymbolAfter:
		return FormatSymbolAfter, true
	case FormatCodeBefore:
		return FormatCodeBefore, true
	case FormatCodeAfter:
		return FormatCodeAfter, true
	default:
		return "", false
	}
}

// TaxType selects how TaxValue is applied to an order subtotal.
type TaxType string

const (
	TaxPercentage TaxType = "percentage"
	TaxFixed      TaxType = "fixed"
)

// DefaultDecimals is the display precision used when a tenant does not configure one.
const DefaultDecimals = 2

// TenantPricingConfig holds a tenant's price display and tax settings.
type TenantPricingConfig struct {
	Currency   string          `json:"currency"`
	Format     Format          `json:"format"`
	ShowPrices bool            `json:"showPrices"`
	Decimals   int             `json:"decimals"`
	EnableTax  bool            `json:"enableTax"`
	TaxType    TaxType         `json:"taxType"`
	TaxValue   decimal.Decimal `json:"taxValue"`
}

// DefaultConfig returns the settings applied to tenants that configured nothing.
func DefaultConfig() TenantPricingConfig {
	return TenantPricingConfig{
		Currency:   "USD",
		Format:     FormatSymbolBefore,
		ShowPrices: true,
		Decimals:   DefaultDecimals,
		TaxType:    TaxPercentage,
		TaxValue:   decimal.Zero,
	}
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"ARS": "$",
	"MXN": "$",
	"CLP": "$",
	"COP": "$",
	"BRL": "R$",
	"PEN": "S/",
	"UYU": "$U",
	"PYG": "₲",
	"BOB": "Bs.",
	"GBP": "£",
}

// CurrencySymbol returns the display symbol for an ISO code. Unknown codes
// render as the code itself.
func CurrencySymbol(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if symbol, ok := currencySymbols[code]; ok {
		return symbol
	}
	return code
}

// FormatPrice renders amount for display. It reports false when the tenant
// hides prices.
func FormatPrice(amount decimal.Decimal, cfg TenantPricingConfig) (string, bool) {
	if !cfg.ShowPrices {
		return "", false
	}
	decimals := cfg.Decimals
	if decimals < 0 {
		decimals = DefaultDecimals
	}
	rounded := amount.Round(int32(decimals))
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	number := rounded.StringFixed(int32(decimals))

	code := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if code == "" {
		code = DefaultConfig().Currency
	}
	switch cfg.Format {
	case FormatSymbolAfter:
		return sign + number + " " + CurrencySymbol(code), true
	case FormatCodeBefore:
		return sign + code + " " + number, true
	case FormatCodeAfter:
		return sign + number + " " + code, true
	default:
		symbol := CurrencySymbol(code)
		return sign + symbol + prefixGap(symbol) + number, true
	}
}

// prefixGap separates alphabetic markers ("XYZ 10.00") but keeps "$10.00" tight.
func prefixGap(symbol string) string {
	last, _ := utf8.DecodeLastRuneInString(symbol)
	if unicode.IsLetter(last) || last == '.' {
		return " "
	}
	return ""
}
