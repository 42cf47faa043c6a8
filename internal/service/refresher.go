package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
)

// DefaultRefreshInterval is how often page 1 is reloaded.
const DefaultRefreshInterval = 60 * time.Second

// Refresher is the Periodic Refresh Driver: every interval it fetches page 1
// and posts the result for a full reload of the Store.
//
// Each cycle carries a generation number. The loop applies a result only if
// no newer generation has been applied yet.
type Refresher struct {
	source   domain.SnapshotSource
	post     Poster
	pageSize int
	interval time.Duration
	logger   *slog.Logger

	gen     atomic.Uint64
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped bool
}

// NewRefresher creates a driver. Zero values fall back to the defaults.
func NewRefresher(source domain.SnapshotSource, pageSize int, interval time.Duration, post Poster) *Refresher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		source:   source,
		post:     post,
		pageSize: pageSize,
		interval: interval,
		logger:   slog.Default().With("module", "refresher"),
	}
}

// Start runs the initial load immediately and then one cycle per interval.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	r.ctx, r.cancel = context.WithCancel(ctx)
	ctx = r.ctx
	r.mu.Unlock()

	// Fetch immediately on start
	r.Refresh()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Refresh timer panic recovered", slog.Any("panic", rec))
			}
		}()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				r.logger.Info("Refresh timer stopped")
				return
			case <-ticker.C:
				r.Refresh()
			}
		}
	}()

	return nil
}

// Refresh starts one fetch-then-load cycle in the background and returns its generation.
// It returns 0 when the driver is not running.
func (r *Refresher) Refresh() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx == nil || r.stopped || r.ctx.Err() != nil {
		return 0
	}

	gen := r.gen.Add(1)
	ctx := r.ctx
	r.wg.Add(1)
	go r.cycle(ctx, gen)
	return gen
}

func (r *Refresher) cycle(ctx context.Context, gen uint64) {
	defer r.wg.Done()

	r.post(&event.RefreshStarted{BaseEvent: now(), Gen: gen})

	start := time.Now()
	records, err := r.source.FetchMarkets(ctx, 1, r.pageSize)
	if ctx.Err() != nil {
		// Torn down while fetching
		return
	}
	if err != nil {
		r.logger.Warn("Refresh failed", slog.Uint64("gen", gen), slog.Any("error", err))
		r.post(&event.RefreshFailed{BaseEvent: now(), Gen: gen, Err: err})
		return
	}

	r.logger.Debug("Refresh fetched", slog.Uint64("gen", gen), slog.Int("records", len(records)), slog.Duration("took", time.Since(start)))
	r.post(&event.SnapshotLoaded{BaseEvent: now(), Gen: gen, Records: records})
}

// Stop cancels the timer and any in-flight cycle and waits for them to exit.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}

// Interval returns the refresh period.
func (r *Refresher) Interval() time.Duration { return r.interval }

func now() event.BaseEvent {
	return event.BaseEvent{Ts: time.Now().UnixMilli()}
}
