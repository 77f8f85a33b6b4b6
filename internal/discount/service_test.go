package discount

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/misproductos/backend/internal/cache"
	"github.com/misproductos/backend/internal/lock"
	"github.com/misproductos/backend/internal/pricing"
	"github.com/misproductos/backend/internal/repo"
	"github.com/misproductos/backend/internal/resilience"
	"github.com/misproductos/backend/internal/settings"
)

func TestActiveRulesCachedAndFiltered(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(tenantA)

	_, err := f.svc.CreateRule(ctx, RuleInput{Name: "Verano", Kind: "percentage", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = f.svc.CreateRule(ctx, RuleInput{Name: "Pausada", Kind: "FIXED_AMOUNT", Value: decimal.NewFromInt(5), Active: boolPtr(false)})
	require.NoError(t, err)
	f.rules.listCalls = 0

	rules, err := f.svc.ActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, "Verano", rules[0].Name)
	require.Equal(t, pricing.KindPercentage, rules[0].Kind)
	require.Equal(t, pricing.ScopeCatalog, rules[0].Scope.Type)

	again, err := f.svc.ActiveRules(ctx)
	require.NoError(t, err)
	require.Equal(t, rules[0].ID, again[0].ID)
	require.Equal(t, 1, f.rules.listCalls)
	require.True(t, f.mr.Exists(cache.KeyDiscountRules(tenantA)))
}

func TestActiveRulesIsolatedPerTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRule(ctxFor(tenantA), RuleInput{Name: "A", Kind: "PERCENTAGE", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)

	rules, err := f.svc.ActiveRules(ctxFor(tenantB))
	require.NoError(t, err)
	require.Empty(t, rules)
}

func TestActiveRulesRequiresTenant(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ActiveRules(ctxFor(""))
	require.ErrorIs(t, err, repo.ErrTenantMissing)
	_, err = f.svc.PricingConfig(ctxFor(""))
	require.ErrorIs(t, err, repo.ErrTenantMissing)
}

func TestMutationsInvalidateAndEnqueueWarm(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(tenantA)

	_, err := f.svc.ActiveRules(ctx)
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.KeyDiscountRules(tenantA)))

	rule, err := f.svc.CreateRule(ctx, RuleInput{Name: "Tag", Kind: "PERCENTAGE", Value: decimal.NewFromInt(15), ScopeType: "tag", ScopeID: "sale"})
	require.NoError(t, err)
	require.False(t, f.mr.Exists(cache.KeyDiscountRules(tenantA)))
	require.Equal(t, []string{tenantA}, f.tasks.tenants)

	rules, err := f.svc.ActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Equal(t, pricing.Scope{Type: pricing.ScopeTag, ID: "sale"}, rules[0].Scope)

	_, err = f.svc.UpdateRule(ctx, rule.ID, RuleInput{Name: "Tag", Kind: "PERCENTAGE", Value: decimal.NewFromInt(20), ScopeType: "tag", ScopeID: "sale"})
	require.NoError(t, err)
	rules, err = f.svc.ActiveRules(ctx)
	require.NoError(t, err)
	require.True(t, rules[0].Value.Equal(decimal.NewFromInt(20)))

	require.NoError(t, f.svc.DeleteRule(ctx, rule.ID))
	rules, err = f.svc.ActiveRules(ctx)
	require.NoError(t, err)
	require.Empty(t, rules)
	require.Len(t, f.tasks.tenants, 3)
}

func TestRuleNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(tenantA)

	require.ErrorIs(t, f.svc.DeleteRule(ctx, "7d4f0a52-52f0-4a0b-8f3c-1f6a2b9e0c11"), ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteRule(ctx, "not-a-uuid"), ErrNotFound)
	_, err := f.svc.GetRule(ctx, "7d4f0a52-52f0-4a0b-8f3c-1f6a2b9e0c11")
	require.ErrorIs(t, err, ErrNotFound)

	rule, err := f.svc.CreateRule(ctx, RuleInput{Name: "A", Kind: "PERCENTAGE", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)
	_, err = f.svc.GetRule(ctxFor(tenantB), rule.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRuleRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRule(ctxFor(tenantA), RuleInput{Name: "Bad", Kind: "PERCENTAGE", Value: decimal.NewFromInt(150)})
	require400(t, err, "value")
	require.Empty(t, f.rules.rows[tenantA])
	require.Empty(t, f.tasks.tenants)
}

func TestPricingConfigDefaultsAndCaching(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(tenantA)

	cfg, err := f.svc.PricingConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, pricing.DefaultConfig(), cfg)

	_, err = f.svc.PricingConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.settings.reads)
}

func TestPricingConfigIgnoresUnrelatedSettings(t *testing.T) {
	f := newFixture(t)
	f.settings.pairs[tenantA] = map[string]string{
		settings.KeyCurrency: "ars",
		"store.theme":        "dark",
	}
	cfg, err := f.svc.PricingConfig(ctxFor(tenantA))
	require.NoError(t, err)
	require.Equal(t, "ARS", cfg.Currency)
	require.NotContains(t, f.mr.Dump(), "store.theme")
}

func TestUpdatePricingConfig(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(tenantA)

	cfg := pricing.DefaultConfig()
	cfg.Currency = "eur"
	cfg.Format = pricing.FormatSymbolAfter
	cfg.EnableTax = true
	cfg.TaxValue = decimal.RequireFromString("21")

	updated, err := f.svc.UpdatePricingConfig(ctx, cfg)
	require.NoError(t, err)
	require.Equal(t, "EUR", updated.Currency)

	got, err := f.svc.PricingConfig(ctx)
	require.NoError(t, err)
	require.Equal(t, "EUR", got.Currency)
	require.Equal(t, pricing.FormatSymbolAfter, got.Format)
	require.True(t, got.EnableTax)
	require.True(t, got.TaxValue.Equal(decimal.NewFromInt(21)))
	require.Equal(t, []string{tenantA}, f.tasks.tenants)
}

func TestWarmFillsBothEntries(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRule(ctxFor(tenantA), RuleInput{Name: "A", Kind: "PERCENTAGE", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)

	require.NoError(t, f.svc.Warm(ctxFor(""), tenantA))
	require.True(t, f.mr.Exists(cache.KeyDiscountRules(tenantA)))
	require.True(t, f.mr.Exists(cache.KeyPricingSettings(tenantA)))

	f.rules.listCalls = 0
	rules, err := f.svc.ActiveRules(ctxFor(tenantA))
	require.NoError(t, err)
	require.Len(t, rules, 1)
	require.Zero(t, f.rules.listCalls)
}

func TestWarmRejectsInvalidTenant(t *testing.T) {
	f := newFixture(t)
	f.svc.Rules = repo.DiscountRulesTenantRepo{}
	require.ErrorIs(t, f.svc.Warm(ctxFor(""), "nope"), repo.ErrTenantInvalid)
}

func TestRefreshLockOrdersWarmAndInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := ctxFor(tenantA)
	require.NoError(t, f.svc.Warm(ctx, tenantA))
	require.False(t, f.mr.Exists(cache.KeyRefreshLock(tenantA)))

	// A held lock makes a warm back off but never blocks invalidation.
	require.NoError(t, f.mr.Set(cache.KeyRefreshLock(tenantA), "other-holder"))
	require.ErrorIs(t, f.svc.Warm(ctx, tenantA), lock.ErrBusy)

	_, err := f.svc.CreateRule(ctx, RuleInput{Name: "A", Kind: "PERCENTAGE", Value: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.False(t, f.mr.Exists(cache.KeyDiscountRules(tenantA)))
	require.False(t, f.mr.Exists(cache.KeyPricingSettings(tenantA)))
}

func TestStoreOutageOpensBreaker(t *testing.T) {
	f := newFixture(t)
	f.svc.Breaker = resilience.NewBreaker(2, 0.5, time.Minute).WithIgnore(IsClientError)
	ctx := ctxFor(tenantA)

	f.rules.listErr = errors.New("connection refused")
	for i := 0; i < 2; i++ {
		_, err := f.svc.ActiveRules(ctx)
		require.Error(t, err)
	}
	calls := f.rules.listCalls
	_, err := f.svc.ActiveRules(ctx)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, calls, f.rules.listCalls)
}

func TestIsClientError(t *testing.T) {
	require.True(t, IsClientError(repo.ErrTenantInvalid))
	require.True(t, IsClientError(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)))
	require.False(t, IsClientError(errors.New("connection refused")))
}
