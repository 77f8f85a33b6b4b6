package cache

import (
	"context"
	"strings"

	"github.com/misproductos/backend/internal/tenant"
)

// KeyDiscountRules returns the per-tenant key holding the tenant rule snapshot.
func KeyDiscountRules(tenantID string) string {
	return tenant.PrefixKey(tenantID, "pricing:rules")
}

// KeyPricingSettings returns the per-tenant key holding the typed pricing settings.
func KeyPricingSettings(tenantID string) string {
	return tenant.PrefixKey(tenantID, "pricing:settings")
}

// KeyRefreshLock returns the lock key serialising warms and invalidations of a tenant.
func KeyRefreshLock(tenantID string) string {
	return tenant.PrefixKey(tenantID, "pricing:refresh")
}

// KeyDomain returns the key caching a hostname lookup.
func KeyDomain(hostname string) string {
	return "domain:" + strings.ToLower(strings.TrimSpace(hostname))
}

// KeySlug returns the key caching a subdomain slug lookup.
func KeySlug(slug string) string {
	return "slug:" + strings.ToLower(strings.TrimSpace(slug))
}

// TenantKeys lists every tenant-scoped key, used for invalidation.
func TenantKeys(tenantID string) []string {
	return []string{KeyDiscountRules(tenantID), KeyPricingSettings(tenantID)}
}

// KeyFromContext prefixes base with the tenant in ctx, if any.
func KeyFromContext(ctx context.Context, base string) string {
	id, ok := tenant.FromContext(ctx)
	if !ok {
		return base
	}
	return tenant.PrefixKey(id, base)
}
