package node

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics mirrors the shape of the teacher's gateway/metrics.go
// promauto-declared struct, retargeted from gateway/worker-node
// terminology to the orchestrator's own request kinds and peer fan-out.
type metrics struct {
	registry           *prometheus.Registry
	httpRequestsTotal  *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
	peerRequestsTotal  *prometheus.CounterVec
	peerLatency        *prometheus.HistogramVec
	coordinatorsActive prometheus.Gauge
	admissionRejected  prometheus.Counter
	filesystemsTotal   prometheus.Gauge
}

// newMetrics registers every collector on a registry of the node's own,
// so several nodes can be constructed in one process.
func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "galileo_http_requests_total",
			Help: "Total count of client HTTP requests per endpoint and status code",
		}, []string{"endpoint", "status"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "galileo_http_request_duration_seconds",
			Help:    "Client HTTP request latency in seconds per endpoint",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		peerRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "galileo_peer_requests_total",
			Help: "Requests sent to peer nodes per destination and result",
		}, []string{"peer", "result"}),
		peerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "galileo_peer_request_duration_seconds",
			Help:    "Peer request latency in seconds per destination",
			Buckets: prometheus.DefBuckets,
		}, []string{"peer"}),
		coordinatorsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "galileo_coordinators_active",
			Help: "Number of in-flight fan-out coordinators",
		}),
		admissionRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "galileo_admission_rejected_total",
			Help: "Requests rejected by the admission-control rate limiter",
		}),
		filesystemsTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "galileo_filesystems_total",
			Help: "Number of registered filesystems on this node",
		}),
	}
}
