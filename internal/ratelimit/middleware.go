package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/misproductos/backend/internal/common"
	"github.com/misproductos/backend/internal/tenant"
)

// Config describes how to derive a rate limit key.
type Config struct {
	Key func(*http.Request) string
}

// Handler enforces rate limits before delegating to the next handler.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// TenantClientKey keys requests by resolved tenant and client IP so one busy
// storefront cannot exhaust another's budget.
func TenantClientKey(r *http.Request) string {
	key := common.ClientIP(r)
	if tid, ok := tenant.FromContext(r.Context()); ok {
		return tenant.PrefixKey(tid, key)
	}
	return key
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		keyFn := h.Config.Key
		if keyFn == nil {
			keyFn = TenantClientKey
		}
		decision, err := h.Limiter.Allow(r.Context(), keyFn(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.Reset).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
