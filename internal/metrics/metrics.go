// Package metrics records run outcomes in a private prometheus registry
// that can be exported to a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/scanfill/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "scanfill"

// Run collects the metrics of one command invocation.
type Run struct {
	registry     *prometheus.Registry
	filesTotal   *prometheus.CounterVec
	ocrTotal     *prometheus.CounterVec
	fileDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
	lastRun      prometheus.Gauge
}

// NewRun creates a registry with every scanfill collector registered.
func NewRun() *Run {
	registry := prometheus.NewRegistry()

	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Documents processed by outcome.",
		},
		[]string{"status"},
	)
	ocrTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_total",
			Help:      "OCR attempts by result.",
		},
		[]string{"result"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent on one document by outcome.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Run state transitions.",
		},
		[]string{"state"},
	)
	lastRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last recorded run transition.",
		},
	)

	registry.MustRegister(filesTotal, ocrTotal, fileDuration, runsTotal, lastRun)

	return &Run{
		registry:     registry,
		filesTotal:   filesTotal,
		ocrTotal:     ocrTotal,
		fileDuration: fileDuration,
		runsTotal:    runsTotal,
		lastRun:      lastRun,
	}
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.registry
}

// RecordFile counts one processed document.
func (r *Run) RecordFile(outcome string, duration time.Duration) {
	r.filesTotal.WithLabelValues(outcome).Inc()
	r.fileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordOCR counts one OCR attempt.
func (r *Run) RecordOCR(outcome string) {
	r.ocrTotal.WithLabelValues(outcome).Inc()
}

// RecordRun counts a state transition.
func (r *Run) RecordRun(state model.RunState) {
	r.runsTotal.WithLabelValues(string(state)).Inc()
	r.lastRun.SetToCurrentTime()
}

// WriteTextfile exports the registry in the node_exporter textfile format.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
