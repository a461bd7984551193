package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	activeRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docsynth_active_runs",
		Help: "Number of synthesis runs in progress",
	})

	totalRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsynth_runs_total",
		Help: "Total number of synthesis runs",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docsynth_run_duration_seconds",
		Help:    "Duration of complete synthesis runs in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	// Chunking metrics
	chunksProduced = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docsynth_chunks_per_run",
		Help:    "Number of text chunks produced per run",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 250},
	})

	// Provider metrics
	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsynth_provider_requests_total",
		Help: "Total number of synthesis provider requests",
	}, []string{"provider", "status"})

	synthesisLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docsynth_synthesis_latency_seconds",
		Help:    "Per-chunk synthesis latency in seconds",
		Buckets: []float64{0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 90.0},
	}, []string{"provider"})

	// Assembly metrics
	assemblyOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docsynth_assembly_operations_total",
		Help: "Total number of audio tool invocations",
	}, []string{"op", "status"})

	// Audio metrics
	audioBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docsynth_audio_bytes_total",
		Help: "Total audio fragment bytes written",
	})
)

// RunMetrics tracks metrics for a single synthesis run.
type RunMetrics struct {
	provider  string
	startTime time.Time
}

// NewRunMetrics creates a metrics tracker for one run.
func NewRunMetrics(provider string) *RunMetrics {
	return &RunMetrics{
		provider:  provider,
		startTime: time.Now(),
	}
}

// RecordRunStart records the start of a synthesis run.
func (m *RunMetrics) RecordRunStart() {
	activeRuns.Inc()
}

// RecordRunEnd records the end of a synthesis run.
func (m *RunMetrics) RecordRunEnd(success bool) {
	activeRuns.Dec()
	runDuration.Observe(time.Since(m.startTime).Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	totalRuns.WithLabelValues(status).Inc()
}

// RecordChunks records the chunk count produced by the chunker.
func (m *RunMetrics) RecordChunks(n int) {
	chunksProduced.Observe(float64(n))
}

// RecordSynthesis records one provider call with its observed latency.
// Callers measure elapsed time themselves, so concurrent workers never
// share timing state.
func (m *RunMetrics) RecordSynthesis(elapsed time.Duration, success bool) {
	synthesisLatency.WithLabelValues(m.provider).Observe(elapsed.Seconds())

	status := "success"
	if !success {
		status = "error"
	}
	providerRequests.WithLabelValues(m.provider, status).Inc()
}

// RecordAssemblyOp records one audio tool invocation.
func (m *RunMetrics) RecordAssemblyOp(op string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	assemblyOps.WithLabelValues(op, status).Inc()
}

// RecordAudioBytes records fragment bytes written to disk.
func (m *RunMetrics) RecordAudioBytes(bytes int64) {
	audioBytesWritten.Add(float64(bytes))
}
