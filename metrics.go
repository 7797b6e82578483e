package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricSignupSuccess counts accounts created through Signup.
	MetricSignupSuccess MetricID = iota
	// MetricSignupDuplicate counts signups rejected for a taken email.
	MetricSignupDuplicate
	// MetricLoginSuccess counts successful password logins.
	MetricLoginSuccess
	// MetricLoginFailure counts logins rejected for bad credentials.
	MetricLoginFailure
	// MetricFederatedLogin counts successful federated logins, including
	// first-contact account creation.
	MetricFederatedLogin
	// MetricOTPIssued counts challenge codes generated and queued.
	MetricOTPIssued
	// MetricEmailConfirmed counts successful email confirmations.
	MetricEmailConfirmed
	// MetricCodeRejected counts OTP verifications that failed on a
	// mismatch, an expiry, or an open ban.
	MetricCodeRejected
	// MetricPairIssued counts access/refresh pairs signed.
	MetricPairIssued
	// MetricVerifySuccess counts tokens that passed full verification.
	MetricVerifySuccess
	// MetricVerifyFailure counts tokens rejected at any verification step.
	MetricVerifyFailure
	// MetricTokenRevoked counts pairs written to the revocation ledger.
	MetricTokenRevoked
	// MetricRefreshSuccess counts successful pair rotations.
	MetricRefreshSuccess
	// MetricLogoutAll counts credential-change stamps that invalidated all
	// outstanding tokens at once.
	MetricLogoutAll
	// MetricPasswordResetRequest counts reset codes requested.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts passwords replaced through the
	// reset flow.
	MetricPasswordResetSuccess
	// MetricAccountDeleted counts accounts soft-deleted.
	MetricAccountDeleted
	// MetricVerifyLatency indexes the token verification latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters. All methods are safe for
// concurrent use and free when metrics are disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics sized for the engine's counter set.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a verification latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
