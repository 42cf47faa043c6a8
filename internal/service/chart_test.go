package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crypto_dash/internal/domain"

	"github.com/shopspring/decimal"
)

type fakeChartSource struct {
	calls  atomic.Int32
	points []domain.ChartPoint
	err    error
	delay  time.Duration
}

func (f *fakeChartSource) FetchMarketChart(ctx context.Context, id string, from, to time.Time) ([]domain.ChartPoint, error) {
	f.calls.Add(1)
	if to.Sub(from) != ChartWindow {
		return nil, errors.New("unexpected window")
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.points, f.err
}

func points(prices ...int64) []domain.ChartPoint {
	out := make([]domain.ChartPoint, len(prices))
	for i, p := range prices {
		out[i] = domain.ChartPoint{Time: time.Unix(int64(i), 0), Price: decimal.NewFromInt(p)}
	}
	return out
}

func TestChartService_CachesWithinTTL(t *testing.T) {
	src := &fakeChartSource{points: points(100, 110)}
	svc := NewChartService(src, time.Minute)

	clock := time.Unix(1700000000, 0)
	svc.now = func() time.Time { return clock }

	trend, err := svc.Trend(context.Background(), "bitcoin")
	if err != nil {
		t.Fatalf("Trend failed: %v", err)
	}
	if trend.Direction != "up" || len(trend.Points) != 2 {
		t.Errorf("Unexpected trend %+v", trend)
	}

	svc.Trend(context.Background(), "bitcoin")
	if src.calls.Load() != 1 {
		t.Errorf("Expected cached result, got %d calls", src.calls.Load())
	}

	// Expire
	clock = clock.Add(time.Minute)
	svc.Trend(context.Background(), "bitcoin")
	if src.calls.Load() != 2 {
		t.Errorf("Expected refetch after TTL, got %d calls", src.calls.Load())
	}

	clock = clock.Add(2 * time.Minute)
	if removed := svc.Purge(); removed != 1 || svc.Len() != 0 {
		t.Errorf("Expected expired entry purged, removed %d", removed)
	}
}

func TestChartService_SharesConcurrentMisses(t *testing.T) {
	src := &fakeChartSource{points: points(100, 90), delay: 50 * time.Millisecond}
	svc := NewChartService(src, 0)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trend, err := svc.Trend(context.Background(), "ethereum")
			if err != nil || trend.Direction != "down" {
				t.Errorf("Unexpected result %+v, %v", trend, err)
			}
		}()
	}
	wg.Wait()

	if src.calls.Load() != 1 {
		t.Errorf("Expected one shared fetch, got %d", src.calls.Load())
	}
}

func TestChartService_Errors(t *testing.T) {
	src := &fakeChartSource{err: domain.ErrFetchFailure}
	svc := NewChartService(src, time.Minute)

	if _, err := svc.Trend(context.Background(), " "); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Errorf("Expected ErrInvalidSymbol, got %v", err)
	}
	if _, err := svc.Trend(context.Background(), "bitcoin"); !errors.Is(err, domain.ErrFetchFailure) {
		t.Errorf("Expected ErrFetchFailure, got %v", err)
	}
	if svc.Len() != 0 {
		t.Error("Failures must not be cached")
	}

	src.err = nil
	src.points = nil
	trend, _ := svc.Trend(context.Background(), "bitcoin")
	if trend.Direction != "flat" {
		t.Errorf("Empty window should be flat, got %s", trend.Direction)
	}
	svc.Clear()
	if svc.Len() != 0 {
		t.Error("Clear should empty the cache")
	}
}
