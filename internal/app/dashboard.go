package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/event"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/binance"
	"crypto_dash/internal/infra/coingecko"
	"crypto_dash/internal/infra/storage"
	"crypto_dash/internal/service"

	"golang.org/x/sync/errgroup"
)

// iconConcurrency limits parallel icon downloads.
const iconConcurrency = 5

// StreamFactory builds the stream subscriber wired to the dashboard callbacks.
type StreamFactory func(onTicker binance.TickerHandler, onState binance.StateHandler, metrics *infra.Metrics) domain.StreamWorker

// Deps overrides the provider adapters. Zero fields use the configured providers.
type Deps struct {
	Snapshots domain.SnapshotSource
	Charts    domain.ChartSource
	NewStream StreamFactory
	Metrics   *infra.Metrics
}

// Dashboard owns every resource scoped to one dashboard lifetime: the store and
// its loop, the refresh timer, the stream, the metadata cache and the icon dir.
type Dashboard struct {
	Config     *infra.Config
	Metrics    *infra.Metrics
	Storage    *storage.Storage
	Downloader *infra.IconDownloader
	Store      *service.Store
	Loop       *engine.Loop
	Pager      *service.Paginator
	Refresher  *service.Refresher
	Charts     *service.ChartService
	Stream     domain.StreamWorker

	iconDir string
	logger  *slog.Logger

	listenersMu sync.RWMutex
	listeners   []func(service.Change)

	syncCh   chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopOnce sync.Once
}

// NewDashboard wires all components. Nothing runs until Start.
func NewDashboard(cfg *infra.Config, deps Deps) (_ *Dashboard, err error) {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = infra.NewMetrics()
	}

	d := &Dashboard{
		Config:  cfg,
		Metrics: metrics,
		logger:  slog.Default().With("module", "dashboard"),
		syncCh:  make(chan struct{}, 1),
	}

	// Release whatever was acquired if wiring fails halfway
	defer func() {
		if err != nil {
			d.release()
		}
	}()

	d.Storage, err = storage.NewStorage(storage.MemoryDSN)
	if err != nil {
		return nil, err
	}

	d.iconDir, err = os.MkdirTemp("", "crypto_dash_icons_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create icon dir: %w", err)
	}
	d.Downloader, err = infra.NewIconDownloader(d.iconDir)
	if err != nil {
		return nil, err
	}

	snapshots, charts := deps.Snapshots, deps.Charts
	if snapshots == nil || charts == nil {
		client := coingecko.NewClientFromConfig(cfg, metrics)
		if snapshots == nil {
			snapshots = client
		}
		if charts == nil {
			charts = client
		}
	}

	pageSize := cfg.Dashboard.PageSize
	d.Store = service.NewStore(d.dispatch)
	d.Loop = engine.NewLoop(cfg.Dashboard.InboxSize, d.Store, metrics, cfg.API.Binance.Quote)
	d.Pager = service.NewPaginator(snapshots, d.Store, pageSize, d.Loop.Post)
	d.Loop.SetPaginator(d.Pager)
	d.Refresher = service.NewRefresher(snapshots, pageSize, time.Duration(cfg.Dashboard.RefreshIntervalSec)*time.Second, d.Loop.Post)
	d.Charts = service.NewChartService(charts, time.Duration(cfg.Dashboard.ChartTTLSec)*time.Second)

	newStream := deps.NewStream
	if newStream == nil {
		newStream = func(onTicker binance.TickerHandler, onState binance.StateHandler, m *infra.Metrics) domain.StreamWorker {
			return binance.NewStream(binance.Config{
				URL:       cfg.API.Binance.WSURL,
				Symbols:   cfg.API.Binance.Symbols,
				Reconnect: cfg.API.Binance.Reconnect,
			}, onTicker, onState, m)
		}
	}
	d.Stream = newStream(d.onTicker, d.onStreamState, metrics)

	return d, nil
}

// Start launches the loop, the initial load with its refresh timer, the stream
// and the metadata sync.
func (d *Dashboard) Start(ctx context.Context) error {
	ctx, d.cancel = context.WithCancel(ctx)
	d.started = true

	go d.Loop.Run(ctx)
	d.Pager.Start(ctx)

	d.wg.Add(1)
	go d.syncLoop(ctx)

	if err := d.Refresher.Start(ctx); err != nil {
		return err
	}

	if err := d.Stream.Connect(ctx); err != nil {
		d.logger.Error("Failed to connect stream", slog.Any("error", err))
		d.Loop.Post(&event.StreamStateChanged{State: domain.StreamErrored, Err: err})
	}

	d.logger.Info("✨ Dashboard started",
		slog.Int("page_size", d.Config.Dashboard.PageSize),
		slog.Duration("refresh", d.Refresher.Interval()),
	)
	return nil
}

// Stop tears the dashboard down. Safe to call more than once and on a
// dashboard that never started.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("👋 Stopping dashboard...")

		d.Refresher.Stop()
		d.Pager.Stop()
		d.Stream.Disconnect()

		if d.cancel != nil {
			d.cancel()
		}
		if d.started {
			<-d.Loop.Done()
		}
		d.wg.Wait()

		d.Charts.Clear()
		d.release()
	})
}

// release frees the metadata cache and the icon directory.
func (d *Dashboard) release() {
	if d.Storage != nil {
		if err := d.Storage.Close(); err != nil {
			d.logger.Warn("Failed to close metadata cache", slog.Any("error", err))
		}
	}
	if d.iconDir != "" {
		if err := os.RemoveAll(d.iconDir); err != nil {
			d.logger.Warn("Failed to remove icon dir", slog.Any("error", err))
		}
	}
}

// Subscribe registers a render callback. It runs on the loop goroutine and must not block.
func (d *Dashboard) Subscribe(fn func(service.Change)) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()
	d.listeners = append(d.listeners, fn)
}

func (d *Dashboard) dispatch(ch service.Change) {
	d.listenersMu.RLock()
	listeners := d.listeners
	d.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ch)
	}

	// New rows may bring new metadata
	if ch.Kind == service.ChangeLoad || ch.Kind == service.ChangeAppend {
		select {
		case d.syncCh <- struct{}{}:
		default:
		}
	}
}

func (d *Dashboard) onTicker(t domain.TickerEvent) {
	ev := event.AcquireTickerEvent()
	ev.Ts = time.Now().UnixMilli()
	ev.Ticker = t
	if !d.Loop.Post(ev) {
		event.ReleaseTickerEvent(ev)
	}
}

func (d *Dashboard) onStreamState(state domain.StreamState, err error) {
	d.Loop.Post(&event.StreamStateChanged{
		BaseEvent: event.BaseEvent{Ts: time.Now().UnixMilli()},
		State:     state,
		Err:       err,
	})
}

// View returns the current list, flags and version.
func (d *Dashboard) View() service.View {
	return d.Store.View()
}

// Scroll forwards a scroll position to the Pagination Controller.
func (d *Dashboard) Scroll(sig domain.ScrollSignal) bool {
	return d.Loop.Post(&event.Scroll{
		BaseEvent: event.BaseEvent{Ts: time.Now().UnixMilli()},
		Signal:    sig,
	})
}

// Refresh starts an out-of-band refresh cycle. Returns 0 when not running.
func (d *Dashboard) Refresh() uint64 {
	return d.Refresher.Refresh()
}

// Trend returns the chart data for an asset id.
func (d *Dashboard) Trend(ctx context.Context, id string) (domain.Trend, error) {
	return d.Charts.Trend(ctx, id)
}

// Icon resolves the local icon for id. When no file is cached yet it returns
// the remote image ref instead. ok is false for unknown ids.
func (d *Dashboard) Icon(id string) (path, imageRef string, ok bool) {
	coin, err := d.Storage.GetCoin(id)
	if err != nil {
		d.logger.Warn("Metadata lookup failed", slog.String("id", id), slog.Any("error", err))
	}
	if coin != nil {
		return coin.IconPath, coin.ImageRef, true
	}
	if rec, found := d.Store.Get(id); found {
		return "", rec.ImageRef, true
	}
	return "", "", false
}

func (d *Dashboard) syncLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.syncCh:
			if err := d.SyncAssets(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn("Asset sync failed", slog.Any("error", err))
			}
		}
	}
}

// SyncAssets records metadata for the displayed rows, drops rows that left the
// list and downloads missing icons.
func (d *Dashboard) SyncAssets(ctx context.Context) error {
	list := d.Store.CurrentList()
	coins := make([]*domain.CoinInfo, 0, len(list))
	shown := make(map[string]struct{}, len(list))
	for _, r := range list {
		coins = append(coins, domain.CoinInfoFromAsset(r))
		shown[r.ID] = struct{}{}
	}
	if err := d.Storage.UpsertCoins(coins); err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	if err := d.pruneCache(shown); err != nil {
		return fmt.Errorf("prune metadata: %w", err)
	}

	missing, err := d.Storage.CoinsMissingIcon()
	if err != nil {
		return fmt.Errorf("list missing icons: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(iconConcurrency)
	for _, c := range missing {
		c := c
		g.Go(func() error {
			path, err := d.Downloader.DownloadIcon(gctx, c.ID, c.ImageRef)
			if err != nil {
				// One bad icon must not cancel the others
				d.logger.Debug("Failed to download icon", slog.String("id", c.ID), slog.Any("error", err))
				return nil
			}
			return d.Storage.SetIconPath(c.ID, path)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	d.logger.Debug("Asset sync completed", slog.Int("coins", len(coins)), slog.Int("icons", len(missing)))
	return nil
}

// pruneCache removes cached metadata and icon files for ids no longer listed.
func (d *Dashboard) pruneCache(shown map[string]struct{}) error {
	cached, err := d.Storage.GetAllCoins()
	if err != nil {
		return err
	}
	for _, c := range cached {
		if _, ok := shown[c.ID]; ok {
			continue
		}
		if err := d.Storage.DeleteCoin(c.ID); err != nil {
			return err
		}
		if c.IconPath != "" {
			if err := os.Remove(c.IconPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				d.logger.Debug("Failed to remove icon", slog.String("id", c.ID), slog.Any("error", err))
			}
		}
	}
	return nil
}
