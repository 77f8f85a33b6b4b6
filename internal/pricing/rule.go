package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount mechanics.
type Kind string

const (
	KindPercentage  Kind = "PERCENTAGE"
	KindFixedAmount Kind = "FIXED_AMOUNT"
	KindBuyXGetY    Kind = "BUY_X_GET_Y"
)

// ParseKind normalises a stored or user supplied kind. Unknown values report false.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(value))) {
	case KindPercentage:
		return KindPercentage, true
	case KindFixedAmount:
		return KindFixedAmount, true
	case KindBuyXGetY:
		return KindBuyXGetY, true
	default:
		return "", false
	}
}

// ScopeType identifies which slice of the catalog a rule targets.
type ScopeType string

const (
	ScopeCatalog  ScopeType = ""
	ScopeProduct  ScopeType = "product"
	ScopeTag      ScopeType = "tag"
	ScopeCategory ScopeType = "category"
)

// ParseScopeType normalises a scope type. Empty and "catalog" both mean catalog-wide.
func ParseScopeType(value string) (ScopeType, bool) {
	switch ScopeType(strings.ToLower(strings.TrimSpace(value))) {
	case ScopeCatalog, "catalog":
		return ScopeCatalog, true
	case ScopeProduct:
		return ScopeProduct, true
	case ScopeTag:
		return ScopeTag, true
	case ScopeCategory:
		return ScopeCategory, true
	default:
		return "", false
	}
}

// specificity ranks scopes; higher wins ties.
func (s ScopeType) specificity() int {
	switch s {
	case ScopeProduct:
		return 3
	case ScopeTag:
		return 2
	case ScopeCategory:
		return 1
	default:
		return 0
	}
}

// Scope pins a rule to a single product, tag or category. The zero value is catalog-wide.
type Scope struct {
	Type ScopeType `json:"type,omitempty"`
	ID   string    `json:"id,omitempty"`
}

// DiscountRule is a tenant promotional rule as consumed by the resolver.
type DiscountRule struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	BadgeText    string          `json:"badgeText,omitempty"`
	Kind         Kind            `json:"kind"`
	Value        decimal.Decimal `json:"value"`
	BuyQuantity  int             `json:"buyQuantity,omitempty"`
	GetQuantity  int             `json:"getQuantity,omitempty"`
	Scope        Scope           `json:"scope"`
	MinQuantity  int             `json:"minQuantity"`
	MinCartTotal decimal.Decimal `json:"minCartTotal"`
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Product is the subset of catalog data the resolver needs to match scopes.
type Product struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId,omitempty"`
	TagIDs     []string        `json:"tagIds,omitempty"`
	Price      decimal.Decimal `json:"price"`
}

// CartLineItem is one line of a shopper cart.
type CartLineItem struct {
	ProductID  string          `json:"productId"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	Quantity   int             `json:"quantity"`
	CategoryID string          `json:"categoryId,omitempty"`
	TagIDs     []string        `json:"tagIds,omitempty"`
}

// Product projects the line onto the resolver input.
func (l CartLineItem) Product() Product {
	return Product{ID: l.ProductID, CategoryID: l.CategoryID, TagIDs: l.TagIDs, Price: l.UnitPrice}
}

// Result is the outcome of a single resolution call.
type Result struct {
	Discount       *DiscountRule   `json:"discount"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	BadgeText      string          `json:"badgeText,omitempty"`
}

func (r DiscountRule) matches(p Product) bool {
	switch r.Scope.Type {
	case ScopeCatalog:
		return true
	case ScopeProduct:
		return r.Scope.ID != "" && r.Scope.ID == p.ID
	case ScopeCategory:
		return r.Scope.ID != "" && r.Scope.ID == p.CategoryID
	case ScopeTag:
		if r.Scope.ID == "" {
			return false
		}
		for _, tag := range p.TagIDs {
			if tag == r.Scope.ID {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (r DiscountRule) minQuantity() int {
	if r.MinQuantity <= 0 {
		return 1
	}
	return r.MinQuantity
}

// gatesPass reports whether the quantity and subtotal preconditions hold.
func (r DiscountRule) gatesPass(quantity int, cartSubtotal decimal.Decimal) bool {
	if quantity < r.minQuantity() {
		return false
	}
	if r.MinCartTotal.IsPositive() && cartSubtotal.LessThan(r.MinCartTotal) {
		return false
	}
	if r.Kind == KindBuyXGetY && (r.BuyQuantity <= 0 || quantity < r.BuyQuantity) {
		return false
	}
	return true
}
