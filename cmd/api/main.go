package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/misproductos/backend/internal/app"
	"github.com/misproductos/backend/internal/auth"
	"github.com/misproductos/backend/internal/common"
	"github.com/misproductos/backend/internal/config"
	"github.com/misproductos/backend/internal/discount"
	"github.com/misproductos/backend/internal/health"
	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/ratelimit"
	"github.com/misproductos/backend/internal/security"
	"github.com/misproductos/backend/internal/storefront"
	"github.com/misproductos/backend/internal/tenant"
)

const serviceName = "misproductos-api"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	var httpMetrics *obs.HTTPMetrics
	if cfg.MetricsEnabled {
		obs.MustRegisterPricingMetrics(cfg.MetricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBucketsMS), nil)
	}

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:    serviceName,
			ServiceVersion: version,
			Endpoint:       cfg.OTLPEndpoint,
			Exporter:       cfg.TracingExporter,
			SamplingRatio:  cfg.TracingSampling,
			Environment:    cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	deps, err := app.Open(startCtx, cfg, logger, serviceName)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	verifier, err := auth.NewVerifier(auth.VerifierConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}

	resolver := tenant.NewResolver(deps.Directory, cfg.TenantHeader, cfg.RootDomain, cfg.DefaultTenantID)
	resolver.TrustHeader = cfg.TrustTenantHeader
	resolver.Logger = &logger

	srvDeps := server{
		Logger:      logger,
		HTTPMetrics: httpMetrics,
		Tenants:     resolver,
		Storefront:  storefront.NewHandler(deps.Discounts, &logger),
		Discounts:   &discount.Handler{Svc: deps.Discounts},
		Auth:        auth.Middleware{Verifier: verifier},
		Idem: common.Idem{
			R:   deps.Redis,
			TTL: cfg.IdempotencyTTL,
			Scope: func(r *http.Request) string {
				tid, _ := tenant.FromContext(r.Context())
				return tid
			},
		},
		Health: health.Handler{
			Checker:      health.Probe{DB: deps.DB, Redis: deps.Redis},
			DBTimeout:    cfg.ReadyDBTimeout,
			RedisTimeout: cfg.ReadyRedisTimeout,
		},
		Headers: security.Headers{
			Enable:                cfg.SecurityHeaders,
			EnableHSTS:            cfg.HSTSEnabled,
			HSTSIncludeSubdomains: cfg.HSTSIncludeSubdomains,
		},
		BodyLimit:   security.BodyLimit{Max: cfg.BodyLimitBytes},
		CORSOrigins: cfg.CORSAllowedOrigins,
	}
	if cfg.MetricsEnabled {
		srvDeps.MetricsHandler = metricsHandler()
	}
	if cfg.PprofEnabled {
		srvDeps.Pprof = protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPass)
	}
	if cfg.RateLimitEnabled {
		if srvDeps.PublicLimit, err = ratelimit.NewRedisLimiter(deps.Redis, "rl:public", cfg.RateLimitPublic); err != nil {
			logger.Fatal().Err(err).Msg("initialise public rate limiter")
		}
		if srvDeps.AdminLimit, err = ratelimit.NewRedisLimiter(deps.Redis, "rl:admin", cfg.RateLimitAdmin); err != nil {
			logger.Fatal().Err(err).Msg("initialise admin rate limiter")
		}
	}

	var handler http.Handler = srvDeps.routes()
	if tracingEnabled {
		handler = otelhttp.NewHandler(handler, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
		return
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown requested")
	health.SetReady(false)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
	logger.Info().Msg("server stopped")
}
