package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the engine.
type Metrics struct {
	ActiveCalls    prometheus.Gauge
	CallOutcomes   *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	MatcherQueries *prometheus.CounterVec
	TurnLatency    prometheus.Histogram
	InsightPosts   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers the instruments against an explicit registerer.
// Tests pass a fresh registry so repeated construction never collides.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of live call sessions in the registry.",
		}),
		CallOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_outcomes_total",
			Help:      "Terminal call outcomes by kind.",
		}, []string{"outcome"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Collaborator failures by capability.",
		}, []string{"capability"}),
		MatcherQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matcher_queries_total",
			Help:      "Similarity lookups by classification.",
		}, []string{"result"}),
		TurnLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "Webhook turn handling latency in milliseconds.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000},
		}),
		InsightPosts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_posts_total",
			Help:      "Analytics submissions by status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveTurnLatency(d time.Duration) {
	m.TurnLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
