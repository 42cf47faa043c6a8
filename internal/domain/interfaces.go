package domain

import (
	"context"
	"time"
)

// SnapshotSource fetches ranked pages of assets from a market-data provider.
type SnapshotSource interface {
	FetchMarkets(ctx context.Context, page, perPage int) ([]AssetRecord, error)
}

// ChartSource fetches the price history used by the trend chart.
type ChartSource interface {
	FetchMarketChart(ctx context.Context, id string, from, to time.Time) ([]ChartPoint, error)
}

// StreamWorker defines the interface for the streaming ticker connector
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	State() StreamState
}
