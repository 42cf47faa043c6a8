package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/service"
)

// Loop is the single-threaded event processor. Every completion (refresh and
// page results, ticker events, stream transitions, scroll signals) is posted to
// its inbox and handled to completion before the next one.
// Only this goroutine mutates the Store and the Paginator.
type Loop struct {
	inbox   chan event.Event
	done    chan struct{}
	closeMu sync.Once

	store   *service.Store
	pager   *service.Paginator
	metrics *infra.Metrics
	quote   string // Stream pairs are "<symbol><quote>", e.g. BTCUSDT
	logger  *slog.Logger

	// Refresh generations, loop goroutine only
	refreshStarted uint64
	refreshApplied uint64
	processed      uint64
}

// NewLoop creates a new loop instance. metrics may be nil.
func NewLoop(inboxSize int, store *service.Store, metrics *infra.Metrics, quote string) *Loop {
	if inboxSize <= 0 {
		inboxSize = 1024
	}
	return &Loop{
		inbox:   make(chan event.Event, inboxSize),
		done:    make(chan struct{}),
		store:   store,
		metrics: metrics,
		quote:   quote,
		logger:  slog.Default().With("module", "loop"),
	}
}

// SetPaginator attaches the Pagination Controller. Call before Run.
func (l *Loop) SetPaginator(p *service.Paginator) {
	l.pager = p
}

// Post enqueues ev. It blocks while the inbox is full and returns false
// once the loop has stopped, so late completions after teardown are dropped.
func (l *Loop) Post(ev event.Event) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.inbox <- ev:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("Loop started")
	defer l.closeMu.Do(func() { close(l.done) })

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			l.DumpState("panic_dump.json")
			// Halt after dump
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Loop stopping...", slog.Uint64("processed", l.processed))
			return
		case ev := <-l.inbox:
			l.processEvent(ev)
		}
	}
}

func (l *Loop) processEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.RefreshStarted:
		l.handleRefreshStarted(e)
	case *event.SnapshotLoaded:
		l.handleSnapshot(e)
	case *event.RefreshFailed:
		l.handleRefreshFailed(e)
	case *event.PageLoaded:
		l.handlePageLoaded(e)
	case *event.PageFailed:
		l.handlePageFailed(e)
	case *event.TickerEvent:
		l.handleTicker(e)
		event.ReleaseTickerEvent(e)
	case *event.StreamStateChanged:
		l.handleStreamState(e)
	case *event.Scroll:
		if l.pager != nil {
			l.pager.OnScroll(e.Signal)
		}
	default:
		l.logger.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	l.processed++
}

func (l *Loop) handleRefreshStarted(e *event.RefreshStarted) {
	if e.Gen <= l.refreshApplied {
		return
	}
	if e.Gen > l.refreshStarted {
		l.refreshStarted = e.Gen
	}
	l.store.UpdateStatus(func(s *domain.Status) { s.Loading = true })
}

// handleSnapshot applies a refresh result unless a newer one was applied already.
func (l *Loop) handleSnapshot(e *event.SnapshotLoaded) {
	if e.Gen <= l.refreshApplied {
		l.logger.Debug("Discarding superseded snapshot", slog.Uint64("gen", e.Gen), slog.Uint64("applied", l.refreshApplied))
		return
	}
	l.refreshApplied = e.Gen

	n := l.store.LoadInitial(e.Records)
	if l.pager != nil {
		l.pager.Reset()
	}
	settled := e.Gen >= l.refreshStarted
	l.store.UpdateStatus(func(s *domain.Status) {
		s.Error = ""
		if settled {
			s.Loading = false
		}
	})
	if l.metrics != nil {
		l.metrics.RecordSnapshot()
	}
	l.logger.Info("Snapshot loaded", slog.Uint64("gen", e.Gen), slog.Int("records", n))
}

// handleRefreshFailed raises the error flag. The list is left as it was.
func (l *Loop) handleRefreshFailed(e *event.RefreshFailed) {
	if e.Gen <= l.refreshApplied {
		return
	}
	settled := e.Gen >= l.refreshStarted
	l.store.UpdateStatus(func(s *domain.Status) {
		s.Error = e.Err.Error()
		if settled {
			s.Loading = false
		}
	})
}

func (l *Loop) handlePageLoaded(e *event.PageLoaded) {
	if l.pager == nil {
		return
	}
	if added := l.pager.OnPageLoaded(e); added >= 0 && l.metrics != nil {
		l.metrics.RecordPage()
	}
}

func (l *Loop) handlePageFailed(e *event.PageFailed) {
	if l.pager == nil {
		return
	}
	l.pager.OnPageFailed(e)
}

// handleTicker patches the matching row. Unknown symbols are ignored.
func (l *Loop) handleTicker(e *event.TickerEvent) {
	key := e.Ticker.BaseSymbol(l.quote)
	applied := l.store.Patch(key, e.Ticker.Patch())
	if l.metrics != nil {
		l.metrics.RecordTick(applied)
	}
}

func (l *Loop) handleStreamState(e *event.StreamStateChanged) {
	if e.Err != nil {
		l.logger.Warn("Stream state changed", slog.String("state", e.State.String()), slog.Any("error", e.Err))
	} else {
		l.logger.Info("Stream state changed", slog.String("state", e.State.String()))
	}
	l.store.UpdateStatus(func(s *domain.Status) { s.Stream = e.State })
}

// Processed returns the number of handled events. Loop goroutine only.
func (l *Loop) Processed() uint64 {
	return l.processed
}

// DumpState writes the entire view state to a file (for post-mortem).
func (l *Loop) DumpState(filename string) {
	l.logger.Info("Dumping internal state...", slog.String("file", filename))

	view := l.store.View()
	data := struct {
		Processed      uint64               `json:"processed"`
		RefreshStarted uint64               `json:"refresh_started"`
		RefreshApplied uint64               `json:"refresh_applied"`
		Status         domain.Status        `json:"status"`
		Version        uint64               `json:"version"`
		Records        []domain.AssetRecord `json:"records"`
		DumpedAt       time.Time            `json:"dumped_at"`
	}{
		Processed:      l.processed,
		RefreshStarted: l.refreshStarted,
		RefreshApplied: l.refreshApplied,
		Status:         view.Status,
		Version:        view.Version,
		Records:        view.Records,
		DumpedAt:       time.Now(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		l.logger.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		l.logger.Error("Failed to write state dump", slog.Any("error", err))
	}
}
