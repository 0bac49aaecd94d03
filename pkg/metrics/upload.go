package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gallery"

// Upload outcomes recorded by UploadMetrics.
const (
	OutcomeSuccess       = "success"
	OutcomeUploadFailed  = "upload_failed"
	OutcomeUploadTimeout = "upload_timeout"
	OutcomeStorageFailed = "storage_failed"
)

// UploadMetrics tracks the upload-then-persist flow.
type UploadMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	orphans  prometheus.Counter
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
// A nil registerer yields a collector whose methods are no-ops.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "requests_total",
		Help:      "Image uploads by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "provider_duration_seconds",
		Help:      "Time spent waiting on the media provider.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"provider"})
	orphans := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "upload",
		Name:      "orphaned_objects_total",
		Help:      "Remote objects uploaded without a persisted images row.",
	})
	reg.MustRegister(total, duration, orphans)
	return &UploadMetrics{
		total:    total,
		duration: duration,
		orphans:  orphans,
	}
}

// IncOutcome counts one finished upload request.
func (u *UploadMetrics) IncOutcome(outcome string) {
	if u == nil || u.total == nil {
		return
	}
	u.total.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveProvider records how long the provider call took.
func (u *UploadMetrics) ObserveProvider(provider string, duration time.Duration) {
	if u == nil || u.duration == nil {
		return
	}
	u.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncOrphan counts a remote object left without metadata.
func (u *UploadMetrics) IncOrphan() {
	if u == nil || u.orphans == nil {
		return
	}
	u.orphans.Inc()
}
