package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"nlevent/internal/model"
)

// Metrics records extraction activity for Prometheus.
type Metrics struct {
	extractions   *prometheus.CounterVec
	fallbacks     prometheus.Counter
	remoteLatency prometheus.Histogram
	descriptions  *prometheus.CounterVec
}

// New registers the extraction collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		extractions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nlevent_extractions_total",
			Help: "Extraction outcomes by tier.",
		}, []string{"tier", "outcome"}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "nlevent_remote_fallbacks_total",
			Help: "Remote extraction failures answered by the heuristic tier.",
		}),
		remoteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "nlevent_remote_request_seconds",
			Help:    "Latency of remote model calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}),
		descriptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nlevent_descriptions_total",
			Help: "Description enhancements by source.",
		}, []string{"source"}),
	}
}

func (m *Metrics) ObserveExtraction(tier string, kind model.Kind) {
	m.extractions.WithLabelValues(tier, kind.String()).Inc()
}

func (m *Metrics) ObserveFallback(error) {
	m.fallbacks.Inc()
}

func (m *Metrics) ObserveRemoteLatency(d time.Duration) {
	m.remoteLatency.Observe(d.Seconds())
}

func (m *Metrics) ObserveDescription(source string) {
	m.descriptions.WithLabelValues(source).Inc()
}
