// Package metrics holds the Prometheus collectors of the upload client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fileupload"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics is a set of upload collectors bound to their own registry.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal    *prometheus.CounterVec
	UploadDuration  *prometheus.HistogramVec
	BytesUploaded   *prometheus.CounterVec
	SegmentsTotal   *prometheus.CounterVec
	SegmentDuration prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total uploads by transfer strategy and outcome.",
		}, []string{"strategy", "outcome"}),

		UploadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Upload duration in seconds by transfer strategy.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"strategy"}),

		BytesUploaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Total bytes of successfully uploaded files by transfer strategy.",
		}, []string{"strategy"}),

		SegmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Total segment requests by outcome.",
		}, []string{"outcome"}),

		SegmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "segment_duration_seconds",
			Help:      "Duration of a single segment request in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
		}),
	}

	m.registry.MustRegister(
		m.UploadsTotal,
		m.UploadDuration,
		m.BytesUploaded,
		m.SegmentsTotal,
		m.SegmentDuration,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveUpload records a finished upload.
func (m *Metrics) ObserveUpload(strategy string, took time.Duration, size int64, err error) {
	if m == nil {
		return
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.UploadsTotal.WithLabelValues(strategy, outcome).Inc()
	m.UploadDuration.WithLabelValues(strategy).Observe(took.Seconds())
	if err == nil {
		m.BytesUploaded.WithLabelValues(strategy).Add(float64(size))
	}
}

// ObserveSegment records one segment request.
func (m *Metrics) ObserveSegment(took time.Duration, err error) {
	if m == nil {
		return
	}

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.SegmentsTotal.WithLabelValues(outcome).Inc()
	m.SegmentDuration.Observe(took.Seconds())
}

// WriteTextfile writes the current values in the Prometheus text format, for the node
// exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
