// Package metrics provides Prometheus metrics for the question-answering backend
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StageExtract  = "extract"
	StageSplit    = "split"
	StageEmbed    = "embed"
	StageIndex    = "index"
	StageRetrieve = "retrieve"
	StageComplete = "complete"

	StatusOK       = "ok"
	StatusError    = "error"
	StatusNotReady = "not_ready"
)

// Metrics holds all Prometheus metrics for the backend
type Metrics struct {
	registry *prometheus.Registry

	IngestTotal    *prometheus.CounterVec
	AskTotal       *prometheus.CounterVec
	ChunksCreated  prometheus.Counter
	StageDuration  *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge
}

// New creates all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfqa_ingest_total",
			Help: "Total number of PDF ingest requests by outcome",
		}, []string{"status"}),
		AskTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfqa_ask_total",
			Help: "Total number of questions by outcome",
		}, []string{"status"}),
		ChunksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "pdfqa_chunks_created_total",
			Help: "Total number of chunks created",
		}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdfqa_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
		}, []string{"stage"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pdfqa_sessions_active",
			Help: "Number of document sessions held in memory",
		}),
	}
}

// ObserveStage records how long a stage took since start
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
