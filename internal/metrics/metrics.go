package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Provider metrics
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksentinel_provider_calls_total",
			Help: "Total number of upstream provider calls",
		},
		[]string{"provider", "endpoint", "status"}, // status: success|error
	)

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocksentinel_provider_latency_seconds",
			Help:    "Upstream provider call latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
		},
		[]string{"provider", "endpoint"},
	)

	// Fundamentals cache metrics
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksentinel_fundamentals_cache_total",
			Help: "Fundamentals cache lookups by outcome",
		},
		[]string{"outcome"}, // hit|refresh|stale_fallback|empty
	)

	// Analysis metrics
	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksentinel_analyses_total",
			Help: "Completed analyses by market and signal",
		},
		[]string{"market", "signal"},
	)

	AILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocksentinel_ai_latency_seconds",
			Help:    "AI generator latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"model", "status"},
	)

	// Batch metrics
	BatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocksentinel_batch_duration_seconds",
			Help:    "Batch run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"mode"}, // sequential|parallel
	)

	ScheduleFires = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocksentinel_schedule_fires_total",
			Help: "Schedule checks by outcome",
		},
		[]string{"outcome"}, // fired|skipped|error
	)
)

var registerOnce sync.Once

// Init registers all metrics with Prometheus
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ProviderCalls)
		prometheus.MustRegister(ProviderLatency)
		prometheus.MustRegister(CacheLookups)
		prometheus.MustRegister(Analyses)
		prometheus.MustRegister(AILatency)
		prometheus.MustRegister(BatchDuration)
		prometheus.MustRegister(ScheduleFires)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordProviderCall records an upstream API call
func RecordProviderCall(provider, endpoint string, latency time.Duration, err error) {
	ProviderCalls.WithLabelValues(provider, endpoint, status(err)).Inc()
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(latency.Seconds())
}

// RecordAICall records a generator invocation
func RecordAICall(model string, latency time.Duration, err error) {
	AILatency.WithLabelValues(model, status(err)).Observe(latency.Seconds())
}
