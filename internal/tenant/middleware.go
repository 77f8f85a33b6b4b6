package tenant

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/misproductos/backend/internal/common"
)

// Directory maps hostnames and subdomain labels to tenant identifiers.
type Directory interface {
	TenantIDByHost(ctx context.Context, hostname string) (string, bool, error)
	TenantIDBySlug(ctx context.Context, slug string) (string, bool, error)
}

// Resolver resolves the tenant of a request from its Host, falling back to a
// trusted header for internal callers.
type Resolver struct {
	Directory     Directory
	HeaderName    string
	TrustHeader   bool
	RootDomain    string
	DefaultTenant string
	Logger        *zerolog.Logger
}

// NewResolver returns a resolver for storefronts served under rootDomain.
// If headerName is empty, "X-Tenant-ID" is used.
func NewResolver(dir Directory, headerName, rootDomain, defaultTenant string) *Resolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return &Resolver{
		Directory:     dir,
		HeaderName:    headerName,
		RootDomain:    normalizeHost(rootDomain),
		DefaultTenant: strings.TrimSpace(defaultTenant),
	}
}

// Middleware resolves the tenant and injects it into the request context.
// Unknown hosts pass through without a tenant; lookup failures return 503.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		tenantID, err := r.Resolve(req)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Error().Err(err).Str("host", req.Host).Msg("resolve tenant")
			}
			common.JSONError(w, http.StatusServiceUnavailable, "TENANT_LOOKUP_FAILED", "unable to resolve store", nil)
			return
		}
		if tenantID == "" {
			tenantID = r.DefaultTenant
		}
		if tenantID != "" {
			req = req.WithContext(WithTenant(req.Context(), tenantID))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve finds the tenant for req using the trusted header or the Host.
func (r *Resolver) Resolve(req *http.Request) (string, error) {
	if r == nil || req == nil {
		return "", nil
	}
	if r.TrustHeader {
		if tenantID := strings.TrimSpace(req.Header.Get(r.HeaderName)); tenantID != "" {
			return tenantID, nil
		}
	}
	tenantID, _, err := r.ResolveTenantID(req.Context(), hostWithoutPort(req.Host))
	return tenantID, err
}

// ResolveTenantID maps a hostname to a tenant. Custom domains and registered
// subdomain hosts match exactly; otherwise the first label under RootDomain is
// looked up as the tenant slug.
func (r *Resolver) ResolveTenantID(ctx context.Context, hostname string) (string, bool, error) {
	host := normalizeHost(hostname)
	if r == nil || r.Directory == nil || host == "" {
		return "", false, nil
	}
	id, ok, err := r.Directory.TenantIDByHost(ctx, host)
	if err != nil || ok {
		return id, ok, err
	}
	label := r.subdomainFromHost(host)
	if label == "" || label == "www" {
		return "", false, nil
	}
	return r.Directory.TenantIDBySlug(ctx, label)
}

func (r *Resolver) subdomainFromHost(host string) string {
	if r.RootDomain == "" || host == r.RootDomain {
		return ""
	}
	suffix := "." + r.RootDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	host = strings.TrimSuffix(host, suffix)
	parts := strings.Split(host, ".")
	return parts[len(parts)-1]
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimSuffix(host, ".")
}

func hostWithoutPort(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if strings.HasPrefix(hostport, "[") {
		if idx := strings.Index(hostport, "]"); idx != -1 {
			if host := hostport[1:idx]; host != "" {
				return host
			}
		}
	}
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

// RequireTenant rejects requests that reached it without a tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			common.JSONError(w, http.StatusNotFound, "TENANT_REQUIRED", "store not found", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
