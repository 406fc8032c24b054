package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "db3"

const (
	ResultAccept = "accept"
	ResultReject = "reject"
	ResultError  = "error"
)

// Metrics gathers the node's counters in a private registry
type Metrics struct {
	registry *prometheus.Registry

	checkedTxs     *prometheus.CounterVec
	deliveredTxs   *prometheus.CounterVec
	committed      prometheus.Counter
	height         prometheus.Gauge
	commitDuration prometheus.Histogram
	rpcRequests    *prometheus.CounterVec
}

// New returns a new Metrics with all collectors registered
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checkedTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "check_tx_total",
			Help:      "Number of transactions pre-validated for the mempool, by result.",
		}, []string{"result"}),
		deliveredTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "deliver_tx_total",
			Help:      "Number of transactions delivered in blocks, by result.",
		}, []string{"result"}),
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "blocks_committed_total",
			Help:      "Number of blocks committed to the authenticated store.",
		}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "height",
			Help:      "Last committed block height.",
		}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "abci",
			Name:      "commit_duration_seconds",
			Help:      "Time spent writing a block to the authenticated store.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Number of RPC requests served, by transport, method and result.",
		}, []string{"transport", "method", "result"}),
	}
	m.registry.MustRegister(m.checkedTxs)
	m.registry.MustRegister(m.deliveredTxs)
	m.registry.MustRegister(m.committed)
	m.registry.MustRegister(m.height)
	m.registry.MustRegister(m.commitDuration)
	m.registry.MustRegister(m.rpcRequests)
	return m
}

func (m *Metrics) CheckedTx(result string) {
	m.checkedTxs.WithLabelValues(result).Inc()
}

func (m *Metrics) DeliveredTx(result string) {
	m.deliveredTxs.WithLabelValues(result).Inc()
}

func (m *Metrics) Committed(height int64, took time.Duration) {
	m.committed.Inc()
	m.height.Set(float64(height))
	m.commitDuration.Observe(took.Seconds())
}

func (m *Metrics) RPCRequest(transport, method, result string) {
	m.rpcRequests.WithLabelValues(transport, method, result).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
