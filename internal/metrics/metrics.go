// Package metrics exposes worker and storage observations as Prometheus
// metrics. A Metrics value implements worker.Hooks and the embedded store's
// metrics hook, so one instance is passed to both.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzbill/inferq/internal/worker"
)

const namespace = "inferq"

type Metrics struct {
	registry *prometheus.Registry

	jobs           *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	inferDuration  *prometheus.HistogramVec
	retries        *prometheus.CounterVec
	inFlight       prometheus.Gauge
	storageLatency *prometheus.HistogramVec
	storageBytes   *prometheus.CounterVec
}

var _ worker.Hooks = (*Metrics)(nil)

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Messages processed, by outcome and final state.",
		}, []string{"outcome", "state"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Time from dequeue to final state.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"outcome"}),
		inferDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Backend call latency, including timeouts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_retries_total",
			Help:      "Stream operations retried after a transport error.",
		}, []string{"op"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Messages currently being processed.",
		}),
		storageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "op_duration_seconds",
			Help:      "Embedded store operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{"op"}),
		storageBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "bytes_total",
			Help:      "Bytes moved by the embedded store.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.jobs, m.jobDuration, m.inferDuration, m.retries, m.inFlight,
		m.storageLatency, m.storageBytes,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) JobDone(outcome worker.Outcome, state worker.State, elapsed time.Duration) {
	m.jobs.WithLabelValues(string(outcome), state.String()).Inc()
	m.jobDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (m *Metrics) InferenceDone(outcome worker.Outcome, elapsed time.Duration) {
	m.inferDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

func (m *Metrics) TransportRetry(op string) { m.retries.WithLabelValues(op).Inc() }
func (m *Metrics) InFlight(delta int)       { m.inFlight.Add(float64(delta)) }

func (m *Metrics) ObserveWrite(elapsed time.Duration, bytes int) {
	m.observeStorage("write", elapsed, bytes)
}

func (m *Metrics) ObserveRead(elapsed time.Duration, bytes int) {
	m.observeStorage("read", elapsed, bytes)
}

func (m *Metrics) ObserveBatchCommit(elapsed time.Duration, _ int, bytes int) {
	m.observeStorage("commit", elapsed, bytes)
}

func (m *Metrics) observeStorage(op string, elapsed time.Duration, bytes int) {
	m.storageLatency.WithLabelValues(op).Observe(elapsed.Seconds())
	m.storageBytes.WithLabelValues(op).Add(float64(bytes))
}
