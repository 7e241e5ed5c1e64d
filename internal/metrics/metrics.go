package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rateintel"

// Metrics holds the collectors exported by the pipeline. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry prometheus.Gatherer

	observations  *prometheus.CounterVec
	fetchLatency  *prometheus.HistogramVec
	refreshTime   prometheus.Histogram
	refreshErrors prometheus.Counter
	opportunities *prometheus.GaugeVec
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New registers the pipeline collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		observations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "observations_total",
			Help:      "Rate observations produced, by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		fetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of a single rate source fetch.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"outcome"}),
		refreshTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full collect, detect and analyse run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		refreshErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "refresh_errors_total",
			Help:      "Refresh runs aborted before completion.",
		}),
		opportunities: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "opportunities",
			Help:      "Opportunities in the latest cached result, by origin.",
		}, []string{"origin"}),
	}
}

// ObserveFetch records one collector outcome ("live" or "fallback").
func (m *Metrics) ObserveFetch(outcome, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.observations.WithLabelValues(outcome, reason).Inc()
	m.fetchLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveRefresh records a completed or aborted pipeline run.
func (m *Metrics) ObserveRefresh(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.refreshErrors.Inc()
		return
	}
	m.refreshTime.Observe(elapsed.Seconds())
}

// SetOpportunities publishes the size of the cached opportunity list per origin.
func (m *Metrics) SetOpportunities(byOrigin map[string]int) {
	if m == nil {
		return
	}
	m.opportunities.Reset()
	for origin, n := range byOrigin {
		m.opportunities.WithLabelValues(origin).Set(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
