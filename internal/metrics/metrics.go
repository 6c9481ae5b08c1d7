// Package metrics holds the prometheus collectors exported at /metrics
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Pipeline stage metrics
	StageItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsmill_stage_items_total",
			Help: "Items advanced by each pipeline stage",
		},
		[]string{"stage"},
	)

	ScrapeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsmill_scrape_results_total",
			Help: "Source scrapes by source type and outcome",
		},
		[]string{"source_type", "status"},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsmill_pipeline_runs_total",
			Help: "Completed pipeline runs by status",
		},
		[]string{"status"},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsmill_pipeline_run_duration_seconds",
			Help:    "Wall time of one project pipeline run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800},
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsmill_events_published_total",
			Help: "Run events published by sink and status",
		},
		[]string{"sink", "status"},
	)

	EventStreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "newsmill_event_stream_connections_active",
			Help: "Number of connected run event websocket clients",
		},
	)
)

// Stage labels
const (
	StageScrape  = "scrape"
	StageIngest  = "ingest"
	StageExtract = "extract"
	StageJudge   = "judge"
	StageDedupe  = "dedupe"
	StageRetire  = "retire"
	StageCleanup = "cleanup"
)

// AddStageItems records n items advanced by a stage
func AddStageItems(stage string, n int) {
	if n > 0 {
		StageItemsTotal.WithLabelValues(stage).Add(float64(n))
	}
}

// ScrapeOutcome classifies a scrape status line into a small label set
func ScrapeOutcome(status string) string {
	switch {
	case status == "ok":
		return "ok"
	case strings.HasPrefix(status, "auth_required"):
		return "auth_required"
	case strings.HasPrefix(status, "unknown"):
		return "unknown_type"
	default:
		return "error"
	}
}
