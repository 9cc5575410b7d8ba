package stream

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the streaming counters. They are registered on the
// registerer passed to NewMetrics so tests can use a private registry.
type Metrics struct {
	jobsSubmitted    *prometheus.CounterVec
	jobsFailed       *prometheus.CounterVec
	resultsDiscarded prometheus.Counter
	queueFull        prometheus.Counter
	chunksFailed     prometheus.Counter
	chunksLoaded     prometheus.Gauge
	gpuMeshes        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "jobs_submitted_total",
			Help:      "Jobs handed to the worker pool.",
		}, []string{"kind"}),
		jobsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "jobs_failed_total",
			Help:      "Jobs that returned an error or panicked.",
		}, []string{"kind"}),
		resultsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "results_discarded_total",
			Help:      "Results dropped because their chunk was evicted or re-requested.",
		}),
		queueFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "queue_full_total",
			Help:      "Submissions rejected because the job queue was full.",
		}),
		chunksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "chunks_failed_total",
			Help:      "Chunks that exhausted their retries.",
		}),
		chunksLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "chunks_loaded",
			Help:      "Chunks with an uploaded mesh.",
		}),
		gpuMeshes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "blockcraft",
			Subsystem: "stream",
			Name:      "gpu_meshes",
			Help:      "Live GPU mesh allocations owned by the stream manager.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.jobsSubmitted, m.jobsFailed, m.resultsDiscarded, m.queueFull,
			m.chunksFailed, m.chunksLoaded, m.gpuMeshes)
	}
	return m
}
