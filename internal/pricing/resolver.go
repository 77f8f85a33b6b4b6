package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Resolver picks the best discount for a product. The zero value formats
// generated fixed-amount badges with DefaultConfig.
type Resolver struct {
	Pricing *TenantPricingConfig
}

// Resolve is shorthand for Resolver{}.Resolve.
func Resolve(rules []DiscountRule, product Product, quantity int, cartSubtotal decimal.Decimal, checkConditions bool) Result {
	return Resolver{}.Resolve(rules, product, quantity, cartSubtotal, checkConditions)
}

type candidate struct {
	rule   DiscountRule
	amount decimal.Decimal
	index  int
}

// Resolve selects at most one active rule for the product and computes the
// discounted price for quantity units.
//
// With checkConditions set, a rule only wins when its gates hold and it yields
// a positive amount. Without it, rules whose gates fail stay eligible for the
// badge with a zero amount, so shoppers see a promotion before meeting it.
// rules is never modified.
func (rv Resolver) Resolve(rules []DiscountRule, product Product, quantity int, cartSubtotal decimal.Decimal, checkConditions bool) Result {
	gross := grossPrice(product.Price, quantity)
	result := Result{DiscountAmount: decimal.Zero, FinalPrice: gross}

	var best *candidate
	for i := range rules {
		rule := rules[i]
		if !rule.Active || !rule.matches(product) {
			continue
		}
		amount := decimal.Zero
		if rule.gatesPass(quantity, cartSubtotal) {
			amount = discountAmount(rule, product.Price, quantity)
		} else if checkConditions {
			continue
		}
		if checkConditions && !amount.IsPositive() {
			continue
		}
		c := candidate{rule: rule, amount: amount, index: i}
		if best == nil || c.beats(*best) {
			best = &c
		}
	}
	if best == nil {
		return result
	}

	winner := best.rule
	result.Discount = &winner
	result.DiscountAmount = best.amount
	result.FinalPrice = gross.Sub(best.amount)
	if result.FinalPrice.IsNegative() {
		result.FinalPrice = decimal.Zero
	}
	result.BadgeText = rv.badge(winner)
	return result
}

// beats orders candidates by amount, then scope specificity, then creation order.
func (c candidate) beats(other candidate) bool {
	if cmp := c.amount.Cmp(other.amount); cmp != 0 {
		return cmp > 0
	}
	if a, b := c.rule.Scope.Type.specificity(), other.rule.Scope.Type.specificity(); a != b {
		return a > b
	}
	if !c.rule.CreatedAt.Equal(other.rule.CreatedAt) {
		if c.rule.CreatedAt.IsZero() || other.rule.CreatedAt.IsZero() {
			return other.rule.CreatedAt.IsZero() && !c.rule.CreatedAt.IsZero()
		}
		return c.rule.CreatedAt.Before(other.rule.CreatedAt)
	}
	return c.index < other.index
}

func grossPrice(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	if quantity <= 0 || !unitPrice.IsPositive() {
		return decimal.Zero
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// discountAmount computes the rule's discount for quantity units, capped at the gross price.
func discountAmount(rule DiscountRule, unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	gross := grossPrice(unitPrice, quantity)
	if !gross.IsPositive() {
		return decimal.Zero
	}
	var amount decimal.Decimal
	switch rule.Kind {
	case KindPercentage:
		amount = gross.Mul(clampPercent(rule.Value)).Div(hundred)
	case KindFixedAmount:
		amount = nonNegative(rule.Value)
	case KindBuyXGetY:
		if rule.BuyQuantity <= 0 || rule.GetQuantity <= 0 || quantity < rule.BuyQuantity {
			return decimal.Zero
		}
		free := (quantity / rule.BuyQuantity) * rule.GetQuantity
		if free > quantity {
			free = quantity
		}
		amount = unitPrice.Mul(decimal.NewFromInt(int64(free)))
	default:
		return decimal.Zero
	}
	if amount.GreaterThan(gross) {
		return gross
	}
	return amount
}

func (rv Resolver) badge(rule DiscountRule) string {
	if rule.BadgeText != "" {
		return rule.BadgeText
	}
	switch rule.Kind {
	case KindPercentage:
		return "-" + clampPercent(rule.Value).String() + "%"
	case KindFixedAmount:
		cfg := DefaultConfig()
		if rv.Pricing != nil {
			cfg = *rv.Pricing
		}
		if formatted, ok := FormatPrice(nonNegative(rule.Value), cfg); ok {
			return "-" + formatted
		}
		// Prices are hidden for this tenant; do not leak the amount.
		return rule.Name
	case KindBuyXGetY:
		pay := rule.BuyQuantity - rule.GetQuantity
		if pay < 0 {
			pay = 0
		}
		return fmt.Sprintf("%dx%d", rule.BuyQuantity, pay)
	default:
		return rule.Name
	}
}

func clampPercent(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(hundred) {
		return hundred
	}
	return v
}

func nonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
