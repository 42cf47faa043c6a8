package service

import (
	"context"
	"sync"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
)

type fetchCall struct {
	page, perPage int
}

// fakeSource answers FetchMarkets from a per-page table. When gate is set,
// every call blocks until a value is sent on it (or ctx ends).
type fakeSource struct {
	mu     sync.Mutex
	pages  map[int][]domain.AssetRecord
	errs   map[int]error
	calls  []fetchCall
	gate   chan struct{}
	called chan fetchCall
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:  make(map[int][]domain.AssetRecord),
		errs:   make(map[int]error),
		called: make(chan fetchCall, 64),
	}
}

func (f *fakeSource) FetchMarkets(ctx context.Context, page, perPage int) ([]domain.AssetRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{page, perPage})
	gate := f.gate
	f.mu.Unlock()
	f.called <- fetchCall{page, perPage}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// collector is a Poster that records events.
type collector struct {
	ch chan event.Event
}

func newCollector() *collector {
	return &collector{ch: make(chan event.Event, 64)}
}

func (c *collector) post(ev event.Event) bool {
	c.ch <- ev
	return true
}

func (c *collector) next(timeout time.Duration) event.Event {
	select {
	case ev := <-c.ch:
		return ev
	case <-time.After(timeout):
		return nil
	}
}
