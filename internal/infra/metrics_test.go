package infra

import (
	"testing"
	"time"
)

func TestMetrics_RecordFetch(t *testing.T) {
	m := NewMetrics()

	m.RecordFetch(1000 * time.Nanosecond)
	m.RecordFetch(2000 * time.Nanosecond)
	m.RecordFetch(3000 * time.Nanosecond)

	snap := m.Snapshot()

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgFetchLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgFetchLatencyNs)
	}
}

func TestMetrics_Ticks(t *testing.T) {
	m := NewMetrics()

	m.RecordTick(true)
	m.RecordTick(true)
	m.RecordTick(false)
	m.RecordParseFailure()

	snap := m.Snapshot()
	if snap.TicksApplied != 2 {
		t.Errorf("Expected 2 applied ticks, got %d", snap.TicksApplied)
	}
	if snap.TicksDiscarded != 1 {
		t.Errorf("Expected 1 discarded tick, got %d", snap.TicksDiscarded)
	}
	if snap.ParseFailures != 1 {
		t.Errorf("Expected 1 parse failure, got %d", snap.ParseFailures)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := NewMetrics()

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_StreamState(t *testing.T) {
	m := NewMetrics()

	if m.Snapshot().StreamOpen {
		t.Error("Expected stream closed initially")
	}

	m.SetStreamOpen(true)
	if !m.Snapshot().StreamOpen {
		t.Error("Expected stream open")
	}

	m.SetStreamOpen(false)
	if m.Snapshot().StreamOpen {
		t.Error("Expected stream closed")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()

	m.RecordSnapshot()
	m.RecordPage()
	m.RecordFetchError()
	m.IncrementConnections()

	m.Reset()
	snap := m.Snapshot()

	if snap.SnapshotsLoaded != 0 || snap.PagesAppended != 0 {
		t.Error("Expected 0 loads after reset")
	}
	if snap.FetchErrors != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.ActiveConnections != 0 {
		t.Error("Expected 0 connections after reset")
	}
}
