package discount

import (
	"github.com/misproductos/backend/internal/db"
	"github.com/misproductos/backend/internal/pricing"
)

const scopeCatalog = "catalog"

// RuleFromModel converts a stored row into the resolver's rule type.
func RuleFromModel(m db.DiscountRule) pricing.DiscountRule {
	scopeType, _ := pricing.ParseScopeType(m.ScopeType)
	kind, _ := pricing.ParseKind(m.Kind)
	rule := pricing.DiscountRule{
		ID:           db.UUIDString(m.ID),
		Name:         m.Name,
		Kind:         kind,
		Value:        db.Decimal(m.Value),
		Scope:        pricing.Scope{Type: scopeType},
		MinQuantity:  int(m.MinQuantity),
		MinCartTotal: db.Decimal(m.MinCartTotal),
		Active:       m.Active,
	}
	if m.BadgeText.Valid {
		rule.BadgeText = m.BadgeText.String
	}
	if m.BuyQuantity.Valid {
		rule.BuyQuantity = int(m.BuyQuantity.Int32)
	}
	if m.GetQuantity.Valid {
		rule.GetQuantity = int(m.GetQuantity.Int32)
	}
	if scopeType != pricing.ScopeCatalog && m.ScopeID.Valid {
		rule.Scope.ID = m.ScopeID.String
	}
	if m.CreatedAt.Valid {
		rule.CreatedAt = m.CreatedAt.Time
	}
	return rule
}

// RulesFromModels converts rows, keeping only active ones when activeOnly is set.
func RulesFromModels(rows []db.DiscountRule, activeOnly bool) []pricing.DiscountRule {
	out := make([]pricing.DiscountRule, 0, len(rows))
	for _, row := range rows {
		if activeOnly && !row.Active {
			continue
		}
		out = append(out, RuleFromModel(row))
	}
	return out
}

func createParams(in RuleInput) db.CreateDiscountRuleParams {
	p := updateParams(in)
	return db.CreateDiscountRuleParams{
		Name:         p.Name,
		BadgeText:    p.BadgeText,
		Kind:         p.Kind,
		Value:        p.Value,
		BuyQuantity:  p.BuyQuantity,
		GetQuantity:  p.GetQuantity,
		ScopeType:    p.ScopeType,
		ScopeID:      p.ScopeID,
		MinQuantity:  p.MinQuantity,
		MinCartTotal: p.MinCartTotal,
		Active:       p.Active,
	}
}

// updateParams expects a normalised input; see RuleInput.normalise.
func updateParams(in RuleInput) db.UpdateDiscountRuleParams {
	p := db.UpdateDiscountRuleParams{
		Name:         in.Name,
		BadgeText:    db.Text(in.BadgeText),
		Kind:         in.Kind,
		Value:        db.Numeric(in.Value),
		ScopeType:    in.ScopeType,
		MinQuantity:  int32(in.MinQuantity),
		MinCartTotal: db.Numeric(in.MinCartTotal),
		Active:       in.Active == nil || *in.Active,
	}
	if in.Kind == string(pricing.KindBuyXGetY) {
		p.BuyQuantity = db.Int4(in.BuyQuantity)
		p.GetQuantity = db.Int4(in.GetQuantity)
	}
	if in.ScopeType != scopeCatalog {
		p.ScopeID = db.Text(in.ScopeID)
	}
	return p
}
