package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string
	AutoMigrate        bool
	DBMaxConns         int
	DBMinConns         int

	// Tenant resolution.
	RootDomain        string
	TenantHeader      string
	TrustTenantHeader bool
	DefaultTenantID   string

	// Caching.
	PricingCacheTTL time.Duration
	DomainCacheTTL  time.Duration
	DomainMissTTL   time.Duration
	IdempotencyTTL  time.Duration

	// Store read breaker.
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenFor      time.Duration

	// Rate limiting, expressed in ulule limiter format ("100-M").
	RateLimitEnabled bool
	RateLimitPublic  string
	RateLimitAdmin   string

	// Background tasks.
	TaskQueue           string
	WorkerConcurrency   int
	WarmTaskMaxRetry    int
	WorkerMetricsAddr   string
	ShutdownGracePeriod time.Duration

	// Observability.
	LogFormat         string
	LogLevel          string
	MetricsEnabled    bool
	MetricsNamespace  string
	MetricsBucketsMS  string
	TracingEnabled    bool
	TracingExporter   string
	OTLPEndpoint      string
	TracingSampling   float64
	ReadyDBTimeout    time.Duration
	ReadyRedisTimeout time.Duration
	PprofEnabled      bool
	PprofUser         string
	PprofPass         string

	// HTTP hardening.
	BodyLimitBytes        int64
	SecurityHeaders       bool
	HSTSEnabled           bool
	HSTSIncludeSubdomains bool
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AutoMigrate:        parseBoolDefault(k.String("DB_AUTO_MIGRATE"), true),
		DBMaxConns:         parseInt(k.String("DB_MAX_CONNS"), 10),
		DBMinConns:         parseInt(k.String("DB_MIN_CONNS"), 0),

		RootDomain:        strings.ToLower(strings.Trim(strings.TrimSpace(k.String("TENANT_ROOT_DOMAIN")), ".")),
		TenantHeader:      valueOrDefault(k.String("TENANT_HEADER"), "X-Tenant-ID"),
		TrustTenantHeader: parseBool(k.String("TENANT_TRUST_HEADER")),
		DefaultTenantID:   strings.TrimSpace(k.String("TENANT_DEFAULT_ID")),

		PricingCacheTTL: parseDuration(k.String("PRICING_CACHE_TTL"), "10m"),
		DomainCacheTTL:  parseDuration(k.String("DOMAIN_CACHE_TTL"), "30m"),
		DomainMissTTL:   parseDuration(k.String("DOMAIN_MISS_TTL"), "30s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		BreakerMinRequests:  parseInt(k.String("STORE_BREAKER_MIN_REQUESTS"), 20),
		BreakerFailureRatio: parseFloat(k.String("STORE_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:      parseDuration(k.String("STORE_BREAKER_OPEN_FOR"), "10s"),

		RateLimitEnabled: parseBoolDefault(k.String("RATE_LIMIT_ENABLED"), true),
		RateLimitPublic:  valueOrDefault(k.String("RATE_LIMIT_PUBLIC"), "600-M"),
		RateLimitAdmin:   valueOrDefault(k.String("RATE_LIMIT_ADMIN"), "120-M"),

		TaskQueue:           valueOrDefault(k.String("TASK_QUEUE"), "pricing"),
		WorkerConcurrency:   parseInt(k.String("WORKER_CONCURRENCY"), 5),
		WarmTaskMaxRetry:    parseInt(k.String("WARM_TASK_MAX_RETRY"), 5),
		WorkerMetricsAddr:   strings.TrimSpace(k.String("WORKER_METRICS_ADDR")),
		ShutdownGracePeriod: parseDuration(k.String("SHUTDOWN_GRACE_PERIOD"), "10s"),

		LogFormat:         valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:          valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:    parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace:  valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "misproductos"),
		MetricsBucketsMS:  k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:    parseBoolDefault(k.String("OBS_ENABLE_TRACING"), true),
		TracingExporter:   valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:   parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		ReadyDBTimeout:    parseDuration(k.String("HEALTH_READY_DB_TIMEOUT"), "500ms"),
		ReadyRedisTimeout: parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),
		PprofEnabled:      parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),

		BodyLimitBytes:        int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		SecurityHeaders:       parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		HSTSEnabled:           parseBool(k.String("SECURITY_HSTS_ENABLED")),
		HSTSIncludeSubdomains: parseBool(k.String("SECURITY_HSTS_INCLUDE_SUBDOMAINS")),
		PprofUser:             strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:             strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		cfg.DBMinConns = 0
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
