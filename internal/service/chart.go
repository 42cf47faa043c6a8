package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"crypto_dash/internal/domain"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultChartTTL is how long a fetched trend is served from cache.
	DefaultChartTTL = 5 * time.Minute
	// ChartWindow is the span covered by the trend chart.
	ChartWindow = 24 * time.Hour
)

// ChartService serves the per-row trend chart. Only the current window is kept.
type ChartService struct {
	source domain.ChartSource
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]domain.Trend
	group singleflight.Group
}

// NewChartService creates a chart cache over source.
func NewChartService(source domain.ChartSource, ttl time.Duration) *ChartService {
	if ttl <= 0 {
		ttl = DefaultChartTTL
	}
	return &ChartService{
		source: source,
		ttl:    ttl,
		logger: slog.Default().With("module", "chart"),
		now:    time.Now,
		cache:  make(map[string]domain.Trend),
	}
}

// Trend returns the last 24h of prices for id, fetching at most once per TTL.
// Concurrent misses for the same id share one request.
func (c *ChartService) Trend(ctx context.Context, id string) (domain.Trend, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Trend{}, fmt.Errorf("%w: empty asset id", domain.ErrInvalidSymbol)
	}

	if t, ok := c.cached(id); ok {
		return t, nil
	}

	v, err, shared := c.group.Do(id, func() (interface{}, error) {
		to := c.now()
		points, err := c.source.FetchMarketChart(ctx, id, to.Add(-ChartWindow), to)
		if err != nil {
			return nil, err
		}
		t := domain.Trend{
			ID:        id,
			Points:    points,
			Direction: domain.TrendDirection(points),
			FetchedAt: to,
		}
		c.mu.Lock()
		c.cache[id] = t
		c.mu.Unlock()
		return t, nil
	})
	if err != nil {
		c.logger.Warn("Chart fetch failed", slog.String("id", id), slog.Any("error", err))
		return domain.Trend{}, err
	}
	if shared {
		c.logger.Debug("Chart fetch shared", slog.String("id", id))
	}
	return v.(domain.Trend), nil
}

func (c *ChartService) cached(id string) (domain.Trend, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.cache[id]
	if !ok {
		return domain.Trend{}, false
	}
	if c.now().Sub(t.FetchedAt) >= c.ttl {
		delete(c.cache, id)
		return domain.Trend{}, false
	}
	return t, true
}

// Purge drops expired entries and returns how many were removed.
func (c *ChartService) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for id, t := range c.cache {
		if now.Sub(t.FetchedAt) >= c.ttl {
			delete(c.cache, id)
			removed++
		}
	}
	return removed
}

// Clear empties the cache (dashboard teardown).
func (c *ChartService) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]domain.Trend)
}

// Len returns the number of cached trends.
func (c *ChartService) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
