// Package discount loads tenant discount rules and pricing settings for the
// storefront and backs the admin API that edits them.
package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/misproductos/backend/internal/cache"
	"github.com/misproductos/backend/internal/db"
	"github.com/misproductos/backend/internal/lock"
	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/pricing"
	"github.com/misproductos/backend/internal/repo"
	"github.com/misproductos/backend/internal/resilience"
	"github.com/misproductos/backend/internal/settings"
	"github.com/misproductos/backend/internal/tenant"
)

// ErrNotFound is returned when a rule does not exist for the tenant.
var ErrNotFound = errors.New("discount rule not found")

// RuleStore is the tenant-scoped persistence used by Service.
type RuleStore interface {
	List(ctx context.Context) ([]db.DiscountRule, error)
	ListForTenant(ctx context.Context, tenantID string) ([]db.DiscountRule, error)
	Get(ctx context.Context, id string) (db.DiscountRule, error)
	Create(ctx context.Context, params db.CreateDiscountRuleParams) (db.DiscountRule, error)
	Update(ctx context.Context, id string, params db.UpdateDiscountRuleParams) (db.DiscountRule, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// SettingsStore reads and writes tenant key/value settings.
type SettingsStore interface {
	Pairs(ctx context.Context) (map[string]string, error)
	PairsForTenant(ctx context.Context, tenantID string) (map[string]string, error)
	Upsert(ctx context.Context, pairs map[string]string) error
}

// WarmEnqueuer schedules a background cache refresh.
type WarmEnqueuer interface {
	EnqueueWarm(ctx context.Context, tenantID string) error
}

// Locker runs fn while holding a distributed lock on key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const refreshLockTTL = 30 * time.Second

// Service serves cached tenant rules and settings and applies admin edits.
type Service struct {
	Rules     RuleStore
	Settings  SettingsStore
	Cache     *cache.Cache
	Tasks     WarmEnqueuer
	Validator *Validator
	Logger    *zerolog.Logger
	// Breaker guards the storefront reads. Optional.
	Breaker *resilience.Breaker
	// Lock orders warms against invalidations so a slow warm cannot
	// repopulate the cache with rows read before an edit. Optional.
	Lock Locker
}

// ActiveRules returns the active rules of the tenant in context, ordered by creation.
func (s *Service) ActiveRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return nil, repo.ErrTenantMissing
	}
	key := cache.KeyDiscountRules(tenantID)
	var cached []pricing.DiscountRule
	hit, err := s.Cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		obs.ObserveCache("rules", "error")
		s.logCacheError(err, key)
	case hit:
		obs.ObserveCache("rules", "hit")
		return cached, nil
	default:
		obs.ObserveCache("rules", "miss")
	}

	var rows []db.DiscountRule
	err = s.Breaker.Do(ctx, func(ctx context.Context) error {
		rows, err = s.Rules.List(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list discount rules: %w", err)
	}
	rules := RulesFromModels(rows, true)
	if err := s.Cache.SetJSON(ctx, key, rules); err != nil {
		s.logCacheError(err, key)
	}
	return rules, nil
}

// PricingConfig returns the typed pricing settings of the tenant in context.
func (s *Service) PricingConfig(ctx context.Context) (pricing.TenantPricingConfig, error) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return pricing.TenantPricingConfig{}, repo.ErrTenantMissing
	}
	key := cache.KeyPricingSettings(tenantID)
	var pairs map[string]string
	hit, err := s.Cache.GetJSON(ctx, key, &pairs)
	switch {
	case err != nil:
		obs.ObserveCache("settings", "error")
		s.logCacheError(err, key)
	case hit:
		obs.ObserveCache("settings", "hit")
		return settings.FromPairs(pairs), nil
	default:
		obs.ObserveCache("settings", "miss")
	}

	err = s.Breaker.Do(ctx, func(ctx context.Context) error {
		pairs, err = s.Settings.Pairs(ctx)
		return err
	})
	if err != nil {
		return pricing.TenantPricingConfig{}, fmt.Errorf("load tenant settings: %w", err)
	}
	pricingPairs := settings.Select(pairs)
	if err := s.Cache.SetJSON(ctx, key, pricingPairs); err != nil {
		s.logCacheError(err, key)
	}
	return settings.FromPairs(pricingPairs), nil
}

// Warm reloads both cache entries of tenantID from the database.
func (s *Service) Warm(ctx context.Context, tenantID string) error {
	return s.withRefreshLock(ctx, tenantID, func(ctx context.Context) error {
		return s.warm(ctx, tenantID)
	})
}

func (s *Service) warm(ctx context.Context, tenantID string) error {
	rows, err := s.Rules.ListForTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("list discount rules: %w", err)
	}
	pairs, err := s.Settings.PairsForTenant(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load tenant settings: %w", err)
	}
	if err := s.Cache.SetJSON(ctx, cache.KeyDiscountRules(tenantID), RulesFromModels(rows, true)); err != nil {
		return fmt.Errorf("cache rules: %w", err)
	}
	if err := s.Cache.SetJSON(ctx, cache.KeyPricingSettings(tenantID), settings.Select(pairs)); err != nil {
		return fmt.Errorf("cache settings: %w", err)
	}
	return nil
}

// ListRules returns every rule of the tenant, inactive ones included.
func (s *Service) ListRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	rows, err := s.Rules.List(ctx)
	if err != nil {
		return nil, err
	}
	return RulesFromModels(rows, false), nil
}

// GetRule returns one rule.
func (s *Service) GetRule(ctx context.Context, id string) (pricing.DiscountRule, error) {
	row, err := s.Rules.Get(ctx, id)
	if err != nil {
		return pricing.DiscountRule{}, mapStoreError(err)
	}
	return RuleFromModel(row), nil
}

// CreateRule validates and stores a new rule.
func (s *Service) CreateRule(ctx context.Context, in RuleInput) (pricing.DiscountRule, error) {
	in, err := s.validator().Rule(in)
	if err != nil {
		return pricing.DiscountRule{}, err
	}
	row, err := s.Rules.Create(ctx, createParams(in))
	if err != nil {
		return pricing.DiscountRule{}, mapStoreError(err)
	}
	s.invalidate(ctx)
	return RuleFromModel(row), nil
}

// UpdateRule validates and replaces rule id.
func (s *Service) UpdateRule(ctx context.Context, id string, in RuleInput) (pricing.DiscountRule, error) {
	in, err := s.validator().Rule(in)
	if err != nil {
		return pricing.DiscountRule{}, err
	}
	row, err := s.Rules.Update(ctx, id, updateParams(in))
	if err != nil {
		return pricing.DiscountRule{}, mapStoreError(err)
	}
	s.invalidate(ctx)
	return RuleFromModel(row), nil
}

// DeleteRule removes rule id.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	found, err := s.Rules.Delete(ctx, id)
	if err != nil {
		return mapStoreError(err)
	}
	if !found {
		return ErrNotFound
	}
	s.invalidate(ctx)
	return nil
}

// UpdatePricingConfig persists cfg and returns the stored, re-typed config.
func (s *Service) UpdatePricingConfig(ctx context.Context, cfg pricing.TenantPricingConfig) (pricing.TenantPricingConfig, error) {
	pairs := settings.ToPairs(cfg)
	if err := s.Settings.Upsert(ctx, pairs); err != nil {
		return pricing.TenantPricingConfig{}, mapStoreError(err)
	}
	s.invalidate(ctx)
	return settings.FromPairs(pairs), nil
}

// invalidate drops the tenant's cache entries and schedules a warm. Failures
// only cost a cache miss, so they are logged.
func (s *Service) invalidate(ctx context.Context) {
	tenantID, ok := tenant.FromContext(ctx)
	if !ok {
		return
	}
	err := s.withRefreshLock(ctx, tenantID, func(ctx context.Context) error {
		return s.Cache.Delete(ctx, cache.TenantKeys(tenantID)...)
	})
	if errors.Is(err, lock.ErrBusy) {
		err = s.Cache.Delete(ctx, cache.TenantKeys(tenantID)...)
	}
	if err != nil {
		s.logCacheError(err, cache.KeyDiscountRules(tenantID))
	}
	if s.Tasks == nil {
		return
	}
	if err := s.Tasks.EnqueueWarm(ctx, tenantID); err != nil && s.Logger != nil {
		s.Logger.Warn().Err(err).Str("tenant_id", tenantID).Msg("enqueue pricing warm")
	}
}

func (s *Service) withRefreshLock(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	if s.Lock == nil {
		return fn(ctx)
	}
	return s.Lock.WithLock(ctx, cache.KeyRefreshLock(tenantID), refreshLockTTL, fn)
}

func (s *Service) validator() *Validator {
	if s.Validator == nil {
		s.Validator = NewValidator()
	}
	return s.Validator
}

func (s *Service) logCacheError(err error, key string) {
	if s.Logger != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("pricing cache")
	}
}

// IsClientError reports errors caused by the request rather than the store.
// They never trip the read breaker.
func IsClientError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, repo.ErrInvalidID) ||
		errors.Is(err, repo.ErrTenantMissing) ||
		errors.Is(err, repo.ErrTenantInvalid)
}

func mapStoreError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, repo.ErrInvalidID) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return &ValidationError{Fields: []FieldError{{Field: pgErr.ConstraintName, Rule: "check"}}}
	}
	return err
}
