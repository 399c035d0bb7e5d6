// Package metrics provides the centralized Prometheus registry for the
// analytics core.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PayoutFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba",
		Name:      "payout_fetches_total",
		Help:      "Total number of payout fetch attempts by outcome",
	}, []string{"outcome"})
	PayoutRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba",
		Name:      "payout_retries_total",
		Help:      "Total number of payout fetch retries after throttling responses",
	})
	BacktestRacesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba",
		Name:      "backtest_races_total",
		Help:      "Total number of races evaluated by the backtest engine",
	})
	RetrainsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba",
		Name:      "retrains_total",
		Help:      "Total number of retraining rounds by outcome",
	}, []string{"outcome"})
	SimulatedRacesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba",
		Name:      "simulated_races_total",
		Help:      "Total number of races settled per ticket kind",
	}, []string{"ticket"})
)

// Gauge metrics
var (
	PayoutCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba",
		Name:      "payout_cache_hit_ratio",
		Help:      "Hit ratio of the shared payout cache",
	})
	FactorCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba",
		Name:      "factor_cache_hit_ratio",
		Help:      "Hit ratio of the backtest factor cache",
	})
	TrainingSamples = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba",
		Name:      "training_samples",
		Help:      "Sample count of the most recent training round",
	})
)

// Histogram metrics
var (
	PayoutFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba",
		Name:      "payout_fetch_latency_seconds",
		Help:      "Latency of payout fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba",
		Name:      "training_duration_seconds",
		Help:      "Duration of model training rounds in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(PayoutFetchesTotal)
		registry.MustRegister(PayoutRetriesTotal)
		registry.MustRegister(BacktestRacesTotal)
		registry.MustRegister(RetrainsTotal)
		registry.MustRegister(SimulatedRacesTotal)

		registry.MustRegister(PayoutCacheHitRatio)
		registry.MustRegister(FactorCacheHitRatio)
		registry.MustRegister(TrainingSamples)

		registry.MustRegister(PayoutFetchLatency)
		registry.MustRegister(TrainingDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
