package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "attribution"

// Ingest outcomes
const (
	OutcomeAccepted        = "accepted"
	OutcomeMalformed       = "malformed"
	OutcomeUnknownCampaign = "unknown_campaign"
	OutcomeDuplicate       = "duplicate"
	OutcomeError           = "error"
)

// Pipeline run outcomes
const (
	RunSuccess = "success"
	RunFailure = "failure"
)

// ROI read sources
const (
	SourceStore     = "store"
	SourceRecompute = "recompute"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	ingestedEvents   *prometheus.CounterVec
	persistedEvents  prometheus.Counter
	retriedEvents    prometheus.Counter
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	itemErrors       *prometheus.CounterVec
	roiReads         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ingestedEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ingested_events_total",
				Help:      "Attribution events submitted for ingestion, by method and outcome.",
			},
			[]string{"method", "outcome"},
		),
		persistedEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "persisted_events_total",
				Help:      "Attribution events written to the event store by the consumer.",
			},
		),
		retriedEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retried_events_total",
				Help:      "Attribution events handed back to the queue after a failed store write.",
			},
		),
		pipelineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_runs_total",
				Help:      "Campaign recompute runs, by outcome.",
			},
			[]string{"outcome"},
		),
		pipelineDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_run_duration_seconds",
				Help:      "Duration of campaign recompute runs in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		itemErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_item_errors_total",
				Help:      "Paths or clusters skipped because of invariant violations, by kind.",
			},
			[]string{"kind"},
		),
		roiReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "roi_reads_total",
				Help:      "Campaign ROI reads, by whether they were served from the store or recomputed.",
			},
			[]string{"source"},
		),
	}

	reg.MustRegister(
		m.ingestedEvents,
		m.persistedEvents,
		m.retriedEvents,
		m.pipelineRuns,
		m.pipelineDuration,
		m.itemErrors,
		m.roiReads,
	)
	return m
}

// NewNop returns metrics registered with a throwaway registry
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// IngestedEvent counts one ingestion attempt
func (m *Metrics) IngestedEvent(method, outcome string) {
	m.ingestedEvents.WithLabelValues(method, outcome).Inc()
}

// PersistedEvents counts events written by the consumer
func (m *Metrics) PersistedEvents(n int) {
	m.persistedEvents.Add(float64(n))
}

// RetriedEvents counts events the consumer returned to the queue
func (m *Metrics) RetriedEvents(n int) {
	m.retriedEvents.Add(float64(n))
}

// PipelineRun records a finished recompute run
func (m *Metrics) PipelineRun(outcome string, took time.Duration) {
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineDuration.Observe(took.Seconds())
}

// ItemErrors counts skipped paths or clusters
func (m *Metrics) ItemErrors(kind string, n int) {
	if n > 0 {
		m.itemErrors.WithLabelValues(kind).Add(float64(n))
	}
}

// ROIRead counts a campaign ROI read
func (m *Metrics) ROIRead(source string) {
	m.roiReads.WithLabelValues(source).Inc()
}
