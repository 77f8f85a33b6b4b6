package main

import (
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/misproductos/backend/internal/auth"
	"github.com/misproductos/backend/internal/common"
	"github.com/misproductos/backend/internal/discount"
	"github.com/misproductos/backend/internal/health"
	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/ratelimit"
	"github.com/misproductos/backend/internal/security"
	"github.com/misproductos/backend/internal/storefront"
	"github.com/misproductos/backend/internal/tenant"
)

// server bundles everything the router needs; zero-valued optional parts
// (metrics, limiters, pprof) are simply not mounted.
type server struct {
	Logger         zerolog.Logger
	HTTPMetrics    *obs.HTTPMetrics
	MetricsHandler http.Handler
	Tenants        *tenant.Resolver
	Storefront     *storefront.Handler
	Discounts      *discount.Handler
	Auth           auth.Middleware
	PublicLimit    ratelimit.Limiter
	AdminLimit     ratelimit.Limiter
	Idem           common.Idem
	Health         health.Handler
	Headers        security.Headers
	BodyLimit      security.BodyLimit
	CORSOrigins    []string
	Pprof          http.Handler
}

func (s server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.Headers.Middleware)
	r.Use(s.tenantScoped)
	r.Use(obs.RoutePatternMiddleware)
	r.Use(obs.HTTPObs{Metrics: s.HTTPMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: s.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(s.CORSOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.MetricsHandler != nil {
		r.Handle("/metrics", s.MetricsHandler)
	}
	if s.Pprof != nil {
		r.Mount("/debug/pprof", s.Pprof)
	}
	r.Get("/health/live", s.Health.Live)
	r.Get("/health/ready", s.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(tenant.RequireTenant)
		v.Use(s.BodyLimit.Middleware)

		v.Group(func(pub chi.Router) {
			pub.Use(s.limit(s.PublicLimit))
			pub.Post("/prices/resolve", s.Storefront.Resolve)
			pub.Post("/cart/quote", s.Storefront.QuoteCart)
			pub.Get("/settings/pricing", s.Storefront.Settings)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(s.limit(s.AdminLimit))
			admin.Use(security.NoStore)
			admin.Use(s.Auth.RequireAdmin)
			admin.Get("/discounts", s.Discounts.List)
			admin.With(s.Idem.Middleware).Post("/discounts", s.Discounts.Create)
			admin.Get("/discounts/{id}", s.Discounts.Get)
			admin.Put("/discounts/{id}", s.Discounts.Update)
			admin.Delete("/discounts/{id}", s.Discounts.Delete)
			admin.Put("/settings/pricing", s.Discounts.UpdateSettings)
		})
	})
	return r
}

// tenantScoped resolves the tenant for API requests only, so probes and
// metrics scrapes keep working when the domain lookup is failing.
func (s server) tenantScoped(next http.Handler) http.Handler {
	resolved := s.Tenants.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			resolved.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s server) limit(l ratelimit.Limiter) func(http.Handler) http.Handler {
	h := ratelimit.Handler{
		Limiter: l,
		OnError: func(err error) {
			s.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	return h.Middleware
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="pprof"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
