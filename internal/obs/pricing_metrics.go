package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pricingOnce sync.Once

	// PriceResolutionsTotal counts storefront price resolutions by outcome and winning rule kind.
	PriceResolutionsTotal *prometheus.CounterVec
	// CartQuotesTotal counts cart quotes by whether any line received a discount.
	CartQuotesTotal *prometheus.CounterVec
	// CartQuoteLines observes the number of lines per quoted cart.
	CartQuoteLines prometheus.Histogram
	// RuleCacheTotal counts tenant rule/settings cache lookups.
	RuleCacheTotal *prometheus.CounterVec
	// WarmTasksTotal counts pricing cache warm task outcomes.
	WarmTasksTotal *prometheus.CounterVec
)

// MustRegisterPricingMetrics initialises and registers pricing collectors.
func MustRegisterPricingMetrics(namespace string, reg prometheus.Registerer) {
	pricingOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PriceResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_resolutions_total",
			Help:      "Count of price resolutions by outcome and discount kind.",
		}, []string{"outcome", "kind"})
		CartQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_quotes_total",
			Help:      "Count of cart quotes by discount presence.",
		}, []string{"discounted"})
		CartQuoteLines = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_quote_lines",
			Help:      "Number of line items per quoted cart.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		})
		RuleCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_cache_total",
			Help:      "Tenant pricing cache lookups by entry and result.",
		}, []string{"entry", "result"})
		WarmTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_warm_tasks_total",
			Help:      "Pricing cache warm task outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, PriceResolutionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PriceResolutionsTotal = v
			}
		})
		mustRegisterCollector(reg, CartQuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartQuotesTotal = v
			}
		})
		mustRegisterCollector(reg, CartQuoteLines, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				CartQuoteLines = v
			}
		})
		mustRegisterCollector(reg, RuleCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RuleCacheTotal = v
			}
		})
		mustRegisterCollector(reg, WarmTasksTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				WarmTasksTotal = v
			}
		})
	})
}

// ObservePriceResolution records a resolution outcome. Safe before registration.
func ObservePriceResolution(outcome, kind string) {
	if PriceResolutionsTotal == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	PriceResolutionsTotal.WithLabelValues(outcome, kind).Inc()
}

// ObserveCartQuote records a quote and its line count.
func ObserveCartQuote(lines int, discounted bool) {
	if CartQuotesTotal != nil {
		CartQuotesTotal.WithLabelValues(fmt.Sprint(discounted)).Inc()
	}
	if CartQuoteLines != nil {
		CartQuoteLines.Observe(float64(lines))
	}
}

// ObserveCache records a cache hit, miss or error for entry ("rules", "settings").
func ObserveCache(entry, result string) {
	if RuleCacheTotal != nil {
		RuleCacheTotal.WithLabelValues(entry, result).Inc()
	}
}

// ObserveWarmTask records a warm task outcome.
func ObserveWarmTask(result string) {
	if WarmTasksTotal != nil {
		WarmTasksTotal.WithLabelValues(result).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register pricing metric: %w", err))
	}
}
