// Package metrics exposes Prometheus metrics of the relay API on a dedicated listener.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves a private Prometheus registry on /metrics.
type MetricsServer struct {
	registry *prometheus.Registry
	srv      *http.Server
	relay    *RelayMetrics
}

// New creates a metrics server listening on listenAddr. Metric names are
// prefixed with namespace.
func New(namespace string, listenAddr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		registry: registry,
		relay:    newRelayMetrics(namespace, registry),
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Relay returns the relay counters registered with this server.
func (m *MetricsServer) Relay() *RelayMetrics {
	return m.relay
}

// Handler returns the /metrics handler, mainly for tests.
func (m *MetricsServer) Handler() http.Handler {
	return m.srv.Handler
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}

// RelayMetrics counts relayed meta-transactions. A nil *RelayMetrics is valid
// and records nothing.
type RelayMetrics struct {
	relayed  *prometheus.CounterVec
	gasUsed  prometheus.Histogram
	duration prometheus.Histogram
}

func newRelayMetrics(namespace string, registerer prometheus.Registerer) *RelayMetrics {
	factory := promauto.With(registerer)
	return &RelayMetrics{
		relayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_requests_total",
			Help:      "Total number of relayed forward requests by outcome",
		}, []string{"outcome"}),
		gasUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relayed_gas_used",
			Help:      "Gas used by relayed transactions",
			Buckets:   prometheus.ExponentialBuckets(25_000, 2, 10),
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_duration_seconds",
			Help:      "Time spent executing relayed requests",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// ObserveRelay records a relay attempt with its outcome label.
func (m *RelayMetrics) ObserveRelay(outcome string, gasUsed uint64, took time.Duration) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(outcome).Inc()
	if gasUsed > 0 {
		m.gasUsed.Observe(float64(gasUsed))
	}
	m.duration.Observe(took.Seconds())
}
