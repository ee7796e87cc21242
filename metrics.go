package greenauth

import "sync/atomic"

// MetricID defines a public type used by greenauth APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint8

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure
	// MetricReuseDetected counts family revocations triggered by a replayed
	// refresh token. A non-zero value is a theft signal worth alerting on.
	MetricReuseDetected
	// MetricLogout is an exported constant or variable used by the authentication engine.
	MetricLogout

	metricCount
)

// Metrics is a fixed set of process-local counters. Cheap enough to stay on
// the hot path; scraped via [Metrics.Snapshot].
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics may return an error when input validation, dependency calls, or security checks fail.
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc increments a counter. No-op when metrics are disabled.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter. Counters are read individually, not under
// a lock; the snapshot is consistent per counter, not across counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
