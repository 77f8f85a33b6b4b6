package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/misproductos/backend/internal/obs"
	"github.com/misproductos/backend/internal/tenant"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("misproductos", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204")))
	require.NotZero(t, testutil.CollectAndCount(metrics.ReqDur))
	require.Equal(t, float64(0), testutil.ToFloat64(metrics.InFlight))
}

func TestHTTPMetricsUseChiPattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("misproductos_chi", nil, registry)
	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Put("/api/v1/admin/discounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/v1/admin/discounts/abc", nil))

	require.Equal(t, float64(1), testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPut, "/api/v1/admin/discounts/{id}", "200")))
}

func TestRequestLoggerIncludesTenant(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/pricing", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), "tenant-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "tenant-1", entry["tenant_id"])
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, float64(404), entry["status"])
	require.Equal(t, "/api/v1/settings/pricing", entry["route"])
}

func TestPricingMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterPricingMetrics("misproductos", registry)

	obs.ObservePriceResolution("discounted", "PERCENTAGE")
	obs.ObservePriceResolution("none", "")
	obs.ObserveCartQuote(3, true)

	require.Equal(t, float64(1), testutil.ToFloat64(obs.PriceResolutionsTotal.WithLabelValues("discounted", "PERCENTAGE")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.PriceResolutionsTotal.WithLabelValues("none", "none")))
	require.Equal(t, float64(1), testutil.ToFloat64(obs.CartQuotesTotal.WithLabelValues("true")))
}
