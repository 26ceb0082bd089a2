package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the verification pipeline.
type Metrics struct {
	Submissions      *prometheus.CounterVec
	Verifications    prometheus.Counter
	SubmitDuration   prometheus.Histogram
	ExternalChecks   *prometheus.CounterVec
	CheckCacheHits   prometheus.Counter
	CheckCacheMisses prometheus.Counter
}

// New creates and registers the verification metrics.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deeproof_kyc_submissions_total",
			Help: "KYC proof submissions by outcome.",
		}, []string{"outcome"}),
		Verifications: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deeproof_kyc_verifications_total",
			Help: "Records that reached VERIFIED.",
		}),
		SubmitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "deeproof_kyc_submit_duration_seconds",
			Help:    "Wall time of the transactional submit path.",
			Buckets: prometheus.DefBuckets,
		}),
		ExternalChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "deeproof_protocol_checks_total",
			Help: "External protocol checks by result.",
		}, []string{"result"}),
		CheckCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deeproof_protocol_check_cache_hits_total",
			Help: "Protocol check responses served from cache.",
		}),
		CheckCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "deeproof_protocol_check_cache_misses_total",
			Help: "Protocol check responses that required a store read.",
		}),
	}
}

// RecordSubmission counts one submission with its outcome label.
func (m *Metrics) RecordSubmission(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

// RecordVerification counts a transition to VERIFIED.
func (m *Metrics) RecordVerification() {
	if m == nil {
		return
	}
	m.Verifications.Inc()
}

// ObserveSubmit records the duration of one submit call.
func (m *Metrics) ObserveSubmit(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SubmitDuration.Observe(elapsed.Seconds())
}

// RecordExternalCheck counts one protocol check by result.
func (m *Metrics) RecordExternalCheck(result string) {
	if m == nil {
		return
	}
	m.ExternalChecks.WithLabelValues(result).Inc()
}

// RecordCacheHit counts a cache-served protocol check.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CheckCacheHits.Inc()
}

// RecordCacheMiss counts a store-served protocol check.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CheckCacheMisses.Inc()
}
