package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. One instance per dashboard.
type Metrics struct {
	// Counters
	snapshotsLoaded atomic.Uint64
	pagesAppended   atomic.Uint64
	ticksApplied    atomic.Uint64
	ticksDiscarded  atomic.Uint64
	parseFailures   atomic.Uint64
	fetchErrors     atomic.Uint64

	// Latency tracking (snapshot fetches)
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	streamOpen        atomic.Int32 // 1 = open, 0 = not open
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordFetch records a completed snapshot fetch with its latency.
func (m *Metrics) RecordFetch(latency time.Duration) {
	m.latencySumNs.Add(latency.Nanoseconds())
	m.latencyCount.Add(1)
}

// RecordSnapshot records a full list replacement.
func (m *Metrics) RecordSnapshot() {
	m.snapshotsLoaded.Add(1)
}

// RecordPage records an appended pagination page.
func (m *Metrics) RecordPage() {
	m.pagesAppended.Add(1)
}

// RecordTick records a ticker event; applied is false when no row matched.
func (m *Metrics) RecordTick(applied bool) {
	if applied {
		m.ticksApplied.Add(1)
	} else {
		m.ticksDiscarded.Add(1)
	}
}

// RecordParseFailure records a dropped malformed stream frame.
func (m *Metrics) RecordParseFailure() {
	m.parseFailures.Add(1)
}

// RecordFetchError records a failed snapshot or page fetch.
func (m *Metrics) RecordFetchError() {
	m.fetchErrors.Add(1)
}

// IncrementConnections increments active browser connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active browser connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// SetStreamOpen sets the upstream stream state gauge.
func (m *Metrics) SetStreamOpen(open bool) {
	if open {
		m.streamOpen.Store(1)
	} else {
		m.streamOpen.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	SnapshotsLoaded   uint64    `json:"snapshots_loaded"`
	PagesAppended     uint64    `json:"pages_appended"`
	TicksApplied      uint64    `json:"ticks_applied"`
	TicksDiscarded    uint64    `json:"ticks_discarded"`
	ParseFailures     uint64    `json:"parse_failures"`
	FetchErrors       uint64    `json:"fetch_errors"`
	AvgFetchLatencyNs int64     `json:"avg_fetch_latency_ns"`
	ActiveConnections int32     `json:"active_connections"`
	StreamOpen        bool      `json:"stream_open"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		SnapshotsLoaded:   m.snapshotsLoaded.Load(),
		PagesAppended:     m.pagesAppended.Load(),
		TicksApplied:      m.ticksApplied.Load(),
		TicksDiscarded:    m.ticksDiscarded.Load(),
		ParseFailures:     m.parseFailures.Load(),
		FetchErrors:       m.fetchErrors.Load(),
		AvgFetchLatencyNs: avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		StreamOpen:        m.streamOpen.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.snapshotsLoaded.Store(0)
	m.pagesAppended.Store(0)
	m.ticksApplied.Store(0)
	m.ticksDiscarded.Store(0)
	m.parseFailures.Store(0)
	m.fetchErrors.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.streamOpen.Store(0)
}
