// Package metrics exposes Prometheus counters for blob operations.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/blobvault/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blobvault"

// Metrics implements services.Observer on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	bytes      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Blob operations by name and envelope status code.",
		}, []string{"operation", "status"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Payload bytes moved by direction and storage mode.",
		}, []string{"direction", "mode"}),
	}
	m.registry.MustRegister(
		m.operations,
		m.bytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOperation(op string, status int) {
	m.operations.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ObserveBytes(direction string, mode models.StorageMode, n int64) {
	if n <= 0 {
		return
	}
	m.bytes.WithLabelValues(direction, mode.String()).Add(float64(n))
}

// Handler serves /metrics and a trivial /health probe.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
