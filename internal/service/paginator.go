package service

import (
	"context"
	"log/slog"
	"sync"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/event"
)

// DefaultPageSize is the number of assets requested per page.
const DefaultPageSize = 30

// Poster delivers a completion to the engine loop. It returns false once the loop is gone.
type Poster func(event.Event) bool

// Paginator is the Pagination Controller. It turns "scrolled to the end" signals
// into page requests and appends the results to the Store.
//
// OnScroll, OnPageLoaded, OnPageFailed and Reset must be called from the loop goroutine.
// Fetches run on their own goroutines and report back through post.
type Paginator struct {
	source   domain.SnapshotSource
	store    *Store
	post     Poster
	pageSize int
	logger   *slog.Logger

	cursor   int    // Last page requested (or loaded); 1 after a full load
	epoch    uint64 // Bumped on every full reload; older page results are stale
	inFlight bool   // Re-entrancy guard: at most one outstanding page request

	cancelReq context.CancelFunc // Cancels the outstanding request

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPaginator creates a controller with the cursor at page 1.
func NewPaginator(source domain.SnapshotSource, store *Store, pageSize int, post Poster) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{
		source:   source,
		store:    store,
		post:     post,
		pageSize: pageSize,
		logger:   slog.Default().With("module", "paginator"),
		cursor:   1,
	}
}

// Start scopes page fetches to ctx. Scroll signals before Start are ignored.
func (p *Paginator) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
}

// Stop cancels outstanding page requests and waits for their goroutines.
// Their completions are dropped and never reach the loop.
func (p *Paginator) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// OnScroll requests the next page when sig shows the end of the content.
// Returns true when a request was issued.
func (p *Paginator) OnScroll(sig domain.ScrollSignal) bool {
	if !sig.AtEnd() {
		return false
	}
	if p.inFlight {
		p.logger.Debug("Page request already outstanding", slog.Int("page", p.cursor))
		return false
	}
	if p.ctx == nil || p.ctx.Err() != nil {
		return false
	}
	// Nothing rendered yet: the initial load owns page 1
	if p.store.Len() == 0 {
		return false
	}

	p.inFlight = true
	p.cursor++
	page, epoch := p.cursor, p.epoch

	p.store.UpdateStatus(func(s *domain.Status) {
		s.PageLoading = true
		s.Page = page
	})

	reqCtx, cancel := context.WithCancel(p.ctx)
	p.cancelReq = cancel

	p.wg.Add(1)
	go p.fetch(p.ctx, reqCtx, cancel, page, epoch)
	return true
}

// fetch runs one page request. A request cancelled by Reset still reports back
// so the guard is released; one cut short by Stop reports nothing.
func (p *Paginator) fetch(life, ctx context.Context, cancel context.CancelFunc, page int, epoch uint64) {
	defer p.wg.Done()
	defer cancel()

	records, err := p.source.FetchMarkets(ctx, page, p.pageSize)
	if life.Err() != nil {
		return
	}
	if err != nil {
		p.post(&event.PageFailed{BaseEvent: now(), Epoch: epoch, Page: page, Err: err})
		return
	}
	p.post(&event.PageLoaded{BaseEvent: now(), Epoch: epoch, Page: page, Records: records})
}

// OnPageLoaded appends a page result. Stale results (from before the last Reset) are ignored.
// Returns the number of rows added, or -1 when the result was stale.
func (p *Paginator) OnPageLoaded(ev *event.PageLoaded) int {
	if p.settleStale(ev.Epoch, ev.Page) {
		return -1
	}
	p.release()

	added := p.store.Append(ev.Records)
	p.store.UpdateStatus(func(s *domain.Status) {
		s.PageLoading = false
		s.PageError = ""
	})
	return added
}

// OnPageFailed releases the guard, rolls the cursor back so the same page is
// retried on the next trigger, and raises the page error flag.
// Returns false when the result was stale.
func (p *Paginator) OnPageFailed(ev *event.PageFailed) bool {
	if p.settleStale(ev.Epoch, ev.Page) {
		return false
	}
	p.release()
	p.cursor--

	p.logger.Warn("Page fetch failed", slog.Int("page", ev.Page), slog.Any("error", ev.Err))
	cursor := p.cursor
	p.store.UpdateStatus(func(s *domain.Status) {
		s.PageLoading = false
		s.PageError = ev.Err.Error()
		s.Page = cursor
	})
	return true
}

// settleStale handles a completion from before the last Reset. When it belongs to
// the outstanding request the guard is released, but nothing is appended and no
// error is raised. Reports whether the completion was stale.
func (p *Paginator) settleStale(epoch uint64, page int) bool {
	if epoch == p.epoch && p.inFlight {
		return false
	}
	p.logger.Debug("Discarding stale page", slog.Int("page", page), slog.Uint64("epoch", epoch))
	if p.inFlight && epoch != p.epoch {
		p.release()
		p.store.UpdateStatus(func(s *domain.Status) { s.PageLoading = false })
	}
	return true
}

func (p *Paginator) release() {
	p.inFlight = false
	p.cancelReq = nil
}

// Reset follows a full reload: the list holds page 1 again, so the cursor returns
// to 1 and any outstanding page result becomes stale. The outstanding request is
// cancelled, but the guard stays held until its completion arrives.
func (p *Paginator) Reset() {
	p.epoch++
	p.cursor = 1
	if p.cancelReq != nil {
		p.cancelReq()
	}
	p.store.UpdateStatus(func(s *domain.Status) { s.Page = 1 })
}

// Cursor returns the current page cursor.
func (p *Paginator) Cursor() int { return p.cursor }

// InFlight reports whether a page request is outstanding.
func (p *Paginator) InFlight() bool { return p.inFlight }
