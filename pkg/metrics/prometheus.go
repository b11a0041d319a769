package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	quotesServed    *prometheus.CounterVec
	refreshOutcomes *prometheus.CounterVec
	activeSymbols   prometheus.Gauge
	listeners       prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		quotesServed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotepulse_quotes_served_total",
				Help: "Total quotes resolved, by data source",
			},
			[]string{"source", "symbol"},
		),
		refreshOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotepulse_refresh_symbols_total",
				Help: "Per-tick refresh outcomes",
			},
			[]string{"result"},
		),
		activeSymbols: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quotepulse_active_symbols",
				Help: "Symbols with at least one listener anywhere in the fleet",
			},
		),
		listeners: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "quotepulse_connected_listeners",
				Help: "Locally connected websocket listeners",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quotepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quotepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordQuote records one resolved quote.
func (r *Recorder) RecordQuote(source, symbol string) {
	r.quotesServed.WithLabelValues(source, symbol).Inc()
}

// RecordRefreshTick records the success/failure split of one tick.
func (r *Recorder) RecordRefreshTick(succeeded, failed int) {
	r.refreshOutcomes.WithLabelValues("ok").Add(float64(succeeded))
	r.refreshOutcomes.WithLabelValues("failed").Add(float64(failed))
}

// RecordActiveSymbols records the fleet-wide active symbol count.
func (r *Recorder) RecordActiveSymbols(n int) {
	r.activeSymbols.Set(float64(n))
}

// RecordListeners records the local listener count.
func (r *Recorder) RecordListeners(n int) {
	r.listeners.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
