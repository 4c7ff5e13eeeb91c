package inference

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "core",
			Name:      "model_loads_total",
			Help:      "Total model loads by format",
		},
		[]string{"format"},
	)

	loadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "core",
			Name:      "model_load_errors_total",
			Help:      "Total failed model loads",
		},
	)

	evictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "core",
			Name:      "cache_evictions_total",
			Help:      "Total cache evictions",
		},
	)

	unloadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "core",
			Name:      "model_unloads_total",
			Help:      "Total explicit model unloads",
		},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "predictd",
			Subsystem: "core",
			Name:      "predictions_total",
			Help:      "Total predictions by outcome",
		},
		[]string{"outcome"},
	)

	predictionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "predictd",
			Subsystem: "core",
			Name:      "prediction_duration_seconds",
			Help:      "Duration of successful predictions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, loadErrorsTotal, evictionsTotal, unloadsTotal, predictionsTotal, predictionDuration)
}

// MetricsPublisher feeds lifecycle events into Prometheus counters. It
// keeps the loader and dispatcher free of direct metrics plumbing; wire it
// as the event publisher to enable domain metrics.
type MetricsPublisher struct {
	next EventPublisher
}

// NewMetricsPublisher wraps next (may be nil) with metrics recording.
func NewMetricsPublisher(next EventPublisher) *MetricsPublisher {
	if next == nil {
		next = noopPublisher{}
	}
	return &MetricsPublisher{next: next}
}

func (p *MetricsPublisher) Publish(e Event) {
	switch e.Name {
	case "load_ready":
		format, _ := e.Fields["format"].(string)
		loadsTotal.WithLabelValues(format).Inc()
	case "load_error":
		loadErrorsTotal.Inc()
	case "evict":
		evictionsTotal.Inc()
	case "unload":
		unloadsTotal.Inc()
	case "predict_ok":
		predictionsTotal.WithLabelValues("success").Inc()
		if ms, ok := e.Fields["dur_ms"].(int64); ok {
			predictionDuration.Observe(float64(ms) / 1000)
		}
	case "predict_error":
		predictionsTotal.WithLabelValues("error").Inc()
	}
	p.next.Publish(e)
}
