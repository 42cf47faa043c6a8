package event

import (
	"crypto_dash/internal/domain"
)

// Type identifies an event kind on the loop inbox.
type Type int

const (
	TypeRefreshStarted Type = iota + 1
	TypeSnapshotLoaded
	TypeRefreshFailed
	TypePageLoaded
	TypePageFailed
	TypeTicker
	TypeStreamState
	TypeScroll
)

// String returns the string representation of Type
func (t Type) String() string {
	switch t {
	case TypeRefreshStarted:
		return "refresh_started"
	case TypeSnapshotLoaded:
		return "snapshot_loaded"
	case TypeRefreshFailed:
		return "refresh_failed"
	case TypePageLoaded:
		return "page_loaded"
	case TypePageFailed:
		return "page_failed"
	case TypeTicker:
		return "ticker"
	case TypeStreamState:
		return "stream_state"
	case TypeScroll:
		return "scroll"
	default:
		return "unknown"
	}
}

// Event is anything posted to the loop inbox.
type Event interface {
	GetType() Type
	GetTs() int64
}

// BaseEvent carries the posting time (unix millis).
type BaseEvent struct {
	Ts int64 `json:"ts"`
}

func (e BaseEvent) GetTs() int64 { return e.Ts }

// RefreshStarted marks the start of refresh generation Gen.
type RefreshStarted struct {
	BaseEvent
	Gen uint64
}

func (e *RefreshStarted) GetType() Type { return TypeRefreshStarted }

// SnapshotLoaded delivers page 1 for refresh generation Gen.
type SnapshotLoaded struct {
	BaseEvent
	Gen     uint64
	Records []domain.AssetRecord
}

func (e *SnapshotLoaded) GetType() Type { return TypeSnapshotLoaded }

// RefreshFailed reports a failed refresh generation.
type RefreshFailed struct {
	BaseEvent
	Gen uint64
	Err error
}

func (e *RefreshFailed) GetType() Type { return TypeRefreshFailed }

// PageLoaded delivers an additional page requested during pagination epoch Epoch.
type PageLoaded struct {
	BaseEvent
	Epoch   uint64
	Page    int
	Records []domain.AssetRecord
}

func (e *PageLoaded) GetType() Type { return TypePageLoaded }

// PageFailed reports a failed page request.
type PageFailed struct {
	BaseEvent
	Epoch uint64
	Page  int
	Err   error
}

func (e *PageFailed) GetType() Type { return TypePageFailed }

// TickerEvent wraps one stream update. Pooled, see AcquireTickerEvent.
type TickerEvent struct {
	BaseEvent
	Ticker domain.TickerEvent
}

func (e *TickerEvent) GetType() Type { return TypeTicker }

// StreamStateChanged reports a stream lifecycle transition.
type StreamStateChanged struct {
	BaseEvent
	State domain.StreamState
	Err   error
}

func (e *StreamStateChanged) GetType() Type { return TypeStreamState }

// Scroll forwards a scroll position from the Presentation Layer.
type Scroll struct {
	BaseEvent
	Signal domain.ScrollSignal
}

func (e *Scroll) GetType() Type { return TypeScroll }
