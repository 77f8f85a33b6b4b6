package domains

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/misproductos/backend/internal/cache"
	"github.com/misproductos/backend/internal/db"
	"github.com/misproductos/backend/internal/resilience"
)

// Querier captures the lookups needed to map hosts to tenants.
type Querier interface {
	GetTenantIDByHostname(ctx context.Context, hostname string) (pgtype.UUID, error)
	GetTenantIDBySlug(ctx context.Context, slug string) (pgtype.UUID, error)
}

// Directory resolves hostnames and subdomain slugs to tenant IDs, caching
// both hits and misses.
type Directory struct {
	Q       Querier
	Cache   *cache.Cache
	MissTTL time.Duration
	Logger  *zerolog.Logger
	Breaker *resilience.Breaker
}

type cachedLookup struct {
	TenantID string `json:"tenant_id"`
}

// TenantIDByHost looks up an exact hostname (custom domain or registered subdomain host).
func (d *Directory) TenantIDByHost(ctx context.Context, hostname string) (string, bool, error) {
	hostname = strings.ToLower(strings.TrimSpace(hostname))
	if hostname == "" {
		return "", false, nil
	}
	return d.lookup(ctx, cache.KeyDomain(hostname), func(ctx context.Context) (pgtype.UUID, error) {
		return d.Q.GetTenantIDByHostname(ctx, hostname)
	})
}

// TenantIDBySlug looks up a tenant by its subdomain label.
func (d *Directory) TenantIDBySlug(ctx context.Context, label string) (string, bool, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if !slug.IsSlug(label) {
		return "", false, nil
	}
	return d.lookup(ctx, cache.KeySlug(label), func(ctx context.Context) (pgtype.UUID, error) {
		return d.Q.GetTenantIDBySlug(ctx, label)
	})
}

func (d *Directory) lookup(ctx context.Context, key string, query func(context.Context) (pgtype.UUID, error)) (string, bool, error) {
	if d == nil || d.Q == nil {
		return "", false, errors.New("domains: directory not configured")
	}
	var hit cachedLookup
	if ok, err := d.Cache.GetJSON(ctx, key, &hit); err != nil {
		d.logCacheError(err, key)
	} else if ok {
		return hit.TenantID, hit.TenantID != "", nil
	}

	var id pgtype.UUID
	err := d.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		id, err = query(ctx)
		return err
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := d.Cache.SetJSONWithTTL(ctx, key, cachedLookup{}, d.missTTL()); err != nil {
			d.logCacheError(err, key)
		}
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("lookup tenant: %w", err)
	}

	tenantID := db.UUIDString(id)
	if err := d.Cache.SetJSON(ctx, key, cachedLookup{TenantID: tenantID}); err != nil {
		d.logCacheError(err, key)
	}
	return tenantID, tenantID != "", nil
}

func (d *Directory) missTTL() time.Duration {
	if d.MissTTL <= 0 {
		return 30 * time.Second
	}
	return d.MissTTL
}

func (d *Directory) logCacheError(err error, key string) {
	if d.Logger != nil {
		d.Logger.Warn().Err(err).Str("key", key).Msg("domain cache")
	}
}

// SubdomainLabel derives the storefront subdomain label for a company name.
func SubdomainLabel(companyName string) string {
	return slug.Make(companyName)
}

// SubdomainHost joins a label with the platform root domain.
func SubdomainHost(label, rootDomain string) string {
	return strings.ToLower(label + "." + strings.Trim(strings.TrimSpace(rootDomain), "."))
}
