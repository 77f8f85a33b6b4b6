package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/misproductos/backend/internal/db"
)

// DiscountRulesQuerier defines the queries used by DiscountRulesTenantRepo.
type DiscountRulesQuerier interface {
	ListDiscountRulesByTenant(ctx context.Context, tenantID pgtype.UUID) ([]db.DiscountRule, error)
	GetDiscountRuleByTenant(ctx context.Context, arg db.GetDiscountRuleByTenantParams) (db.DiscountRule, error)
	CreateDiscountRule(ctx context.Context, arg db.CreateDiscountRuleParams) (db.DiscountRule, error)
	UpdateDiscountRule(ctx context.Context, arg db.UpdateDiscountRuleParams) (db.DiscountRule, error)
	DeleteDiscountRule(ctx context.Context, arg db.DeleteDiscountRuleParams) (int64, error)
}

// DiscountRulesTenantRepo ensures tenant scoping is applied to discount rule queries.
// Callers fill every params field except TenantID, which the repo sets.
type DiscountRulesTenantRepo struct {
	Q DiscountRulesQuerier
}

// List returns all rules of the tenant in context, oldest first.
func (r DiscountRulesTenantRepo) List(ctx context.Context) ([]db.DiscountRule, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return r.Q.ListDiscountRulesByTenant(ctx, tid)
}

// ListForTenant is List for an explicit tenant, used by background jobs.
func (r DiscountRulesTenantRepo) ListForTenant(ctx context.Context, tenantID string) ([]db.DiscountRule, error) {
	tid, err := TenantUUID(tenantID)
	if err != nil {
		return nil, err
	}
	return r.Q.ListDiscountRulesByTenant(ctx, tid)
}

// Get retrieves one rule.
func (r DiscountRulesTenantRepo) Get(ctx context.Context, id string) (db.DiscountRule, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return db.DiscountRule{}, err
	}
	rid, err := recordUUID(id)
	if err != nil {
		return db.DiscountRule{}, err
	}
	return r.Q.GetDiscountRuleByTenant(ctx, db.GetDiscountRuleByTenantParams{TenantID: tid, ID: rid})
}

// Create inserts a rule for the tenant in context.
func (r DiscountRulesTenantRepo) Create(ctx context.Context, params db.CreateDiscountRuleParams) (db.DiscountRule, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return db.DiscountRule{}, err
	}
	params.TenantID = tid
	return r.Q.CreateDiscountRule(ctx, params)
}

// Update replaces a rule owned by the tenant in context.
func (r DiscountRulesTenantRepo) Update(ctx context.Context, id string, params db.UpdateDiscountRuleParams) (db.DiscountRule, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return db.DiscountRule{}, err
	}
	rid, err := recordUUID(id)
	if err != nil {
		return db.DiscountRule{}, err
	}
	params.TenantID = tid
	params.ID = rid
	return r.Q.UpdateDiscountRule(ctx, params)
}

// Delete removes a rule and reports whether it existed.
func (r DiscountRulesTenantRepo) Delete(ctx context.Context, id string) (bool, error) {
	tid, err := tenantUUIDFromContext(ctx)
	if err != nil {
		return false, err
	}
	rid, err := recordUUID(id)
	if err != nil {
		return false, err
	}
	n, err := r.Q.DeleteDiscountRule(ctx, db.DeleteDiscountRuleParams{TenantID: tid, ID: rid})
	return n > 0, err
}
