// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus instruments updated by the pipeline
// and served by the schedule command.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paperwatch"

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeNew     = "new"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeEmpty   = "empty"
)

// Metrics holds the pipeline instruments.
type Metrics struct {
	// RunsTotal counts pipeline runs by outcome.
	RunsTotal *prometheus.CounterVec

	// RunDuration observes pipeline run duration in seconds.
	RunDuration prometheus.Histogram

	// SearchesTotal counts searches by source and outcome.
	SearchesTotal *prometheus.CounterVec

	// EntriesDropped counts response entries the parser rejected.
	EntriesDropped prometheus.Counter

	// PapersTotal counts papers by outcome (new, updated, skipped, failed).
	PapersTotal *prometheus.CounterVec

	// DownloadsTotal counts document downloads by outcome.
	DownloadsTotal *prometheus.CounterVec

	// DownloadBytes counts bytes written by successful downloads.
	DownloadBytes prometheus.Counter

	// PreviewsTotal counts previews by outcome (ok, empty, failed).
	PreviewsTotal *prometheus.CounterVec
}

// New creates the instruments and registers them with reg. A nil reg creates
// unregistered instruments.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		SearchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches against a literature index",
		}, []string{"source", "outcome"}),
		EntriesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_dropped_total",
			Help:      "Total number of response entries dropped as malformed",
		}),
		PapersTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_total",
			Help:      "Total number of papers processed, by outcome",
		}, []string{"outcome"}),
		DownloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Total number of document downloads, by outcome",
		}, []string{"outcome"}),
		DownloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes written by document downloads",
		}),
		PreviewsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "previews_total",
			Help:      "Total number of preview extractions, by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
