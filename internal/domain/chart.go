package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChartPoint is one sample of the trend chart.
type ChartPoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Trend is the small per-row chart: the sampled window plus its direction.
type Trend struct {
	ID        string       `json:"id"`
	Points    []ChartPoint `json:"points"`
	Direction string       `json:"direction"` // "up", "down" or "flat"
	FetchedAt time.Time    `json:"fetched_at"`
}

// TrendDirection compares the last sample against the first.
func TrendDirection(points []ChartPoint) string {
	if len(points) == 0 {
		return "flat"
	}
	first := points[0].Price
	last := points[len(points)-1].Price
	switch {
	case last.GreaterThan(first):
		return "up"
	case last.LessThan(first):
		return "down"
	default:
		return "flat"
	}
}
