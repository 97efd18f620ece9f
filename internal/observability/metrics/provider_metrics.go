package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ProviderOutcomeOK        = "ok"
	ProviderOutcomeNotFound  = "not_found"
	ProviderOutcomeHTTPError = "http_error"
	ProviderOutcomeTimeout   = "timeout"
	ProviderOutcomeError     = "error"
)

// ProviderMetrics tracks calls made to the payment provider.
type ProviderMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
}

var (
	providerMetricsOnce sync.Once
	providerMetrics     *ProviderMetrics
)

func Provider() *ProviderMetrics {
	return ProviderWithConfig(Config{})
}

func ProviderWithConfig(cfg Config) *ProviderMetrics {
	providerMetricsOnce.Do(func() {
		providerMetrics = NewProviderMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return providerMetrics
}

func ResetProviderMetricsForTest() {
	providerMetricsOnce = sync.Once{}
	providerMetrics = nil
}

func NewProviderMetrics(registerer prometheus.Registerer, cfg Config) *ProviderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	labels := constLabels(cfg)
	m := &ProviderMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_provider_requests_total",
			Help:        "Payment provider requests by endpoint and outcome.",
			ConstLabels: labels,
		}, []string{"endpoint", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "backoffice_provider_request_duration_seconds",
			Help:        "Payment provider request latency, pacing wait excluded.",
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			ConstLabels: labels,
		}, []string{"endpoint"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "backoffice_provider_customer_cache_total",
			Help:        "Customer lookups served from or missing the local cache.",
			ConstLabels: labels,
		}, []string{"result"}),
	}
	registerer.MustRegister(m.requests, m.duration, m.cache)
	return m
}

func (m *ProviderMetrics) ObserveRequest(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *ProviderMetrics) IncCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
