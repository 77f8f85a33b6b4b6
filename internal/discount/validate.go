package discount

import (
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/misproductos/backend/internal/pricing"
)

// RuleInput is the admin payload for creating or replacing a rule.
type RuleInput struct {
	Name         string          `json:"name" validate:"required,max=120"`
	BadgeText    string          `json:"badgeText" validate:"max=40"`
	Kind         string          `json:"kind" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT BUY_X_GET_Y"`
	Value        decimal.Decimal `json:"value"`
	BuyQuantity  int             `json:"buyQuantity" validate:"gte=0"`
	GetQuantity  int             `json:"getQuantity" validate:"gte=0"`
	ScopeType    string          `json:"scopeType" validate:"oneof=catalog product tag category"`
	ScopeID      string          `json:"scopeId" validate:"max=64"`
	MinQuantity  int             `json:"minQuantity" validate:"gte=0"`
	MinCartTotal decimal.Decimal `json:"minCartTotal"`
	Active       *bool           `json:"active"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError lists every rejected field of a payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Rule)
	}
	return "invalid payload: " + strings.Join(parts, ", ")
}

// Validator checks admin payloads.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator reporting JSON field names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(ruleStructLevel, RuleInput{})
	return &Validator{v: v}
}

// Rule normalises in and validates it.
func (val *Validator) Rule(in RuleInput) (RuleInput, error) {
	in = in.normalise()
	return in, fieldErrors(val.v.Struct(in))
}

// Settings validates a partial pricing settings update.
func (val *Validator) Settings(p settingsPayload) error {
	if err := fieldErrors(val.v.Struct(p)); err != nil {
		return err
	}
	if p.TaxValue != nil && p.TaxValue.IsNegative() {
		return &ValidationError{Fields: []FieldError{{Field: "taxValue", Rule: "gte"}}}
	}
	return nil
}

// fieldErrors maps validator failures onto a ValidationError.
func fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

func (in RuleInput) normalise() RuleInput {
	in.Name = strings.TrimSpace(in.Name)
	in.BadgeText = strings.TrimSpace(in.BadgeText)
	in.Kind = strings.ToUpper(strings.TrimSpace(in.Kind))
	in.ScopeType = strings.ToLower(strings.TrimSpace(in.ScopeType))
	if in.ScopeType == "" {
		in.ScopeType = scopeCatalog
	}
	in.ScopeID = strings.TrimSpace(in.ScopeID)
	if in.MinQuantity == 0 {
		in.MinQuantity = 1
	}
	return in
}

var hundred = decimal.NewFromInt(100)

func ruleStructLevel(sl validator.StructLevel) {
	in := sl.Current().Interface().(RuleInput)

	if in.Value.IsNegative() {
		sl.ReportError(in.Value, "value", "Value", "gte", "0")
	}
	if in.MinCartTotal.IsNegative() {
		sl.ReportError(in.MinCartTotal, "minCartTotal", "MinCartTotal", "gte", "0")
	}
	switch pricing.Kind(in.Kind) {
	case pricing.KindPercentage:
		if in.Value.GreaterThan(hundred) {
			sl.ReportError(in.Value, "value", "Value", "lte", "100")
		}
	case pricing.KindFixedAmount:
		if !in.Value.IsPositive() {
			sl.ReportError(in.Value, "value", "Value", "gt", "0")
		}
	case pricing.KindBuyXGetY:
		if in.BuyQuantity < 2 {
			sl.ReportError(in.BuyQuantity, "buyQuantity", "BuyQuantity", "gte", "2")
		}
		if in.GetQuantity < 1 || in.GetQuantity >= in.BuyQuantity {
			sl.ReportError(in.GetQuantity, "getQuantity", "GetQuantity", "ltfield", "BuyQuantity")
		}
	}
	hasScope := in.ScopeType != scopeCatalog
	if hasScope && in.ScopeID == "" {
		sl.ReportError(in.ScopeID, "scopeId", "ScopeID", "required_with", "ScopeType")
	}
	if !hasScope && in.ScopeID != "" {
		sl.ReportError(in.ScopeID, "scopeId", "ScopeID", "excluded_without", "ScopeType")
	}
}
