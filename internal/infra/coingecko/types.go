package coingecko

import (
	"crypto_dash/internal/domain"

	"github.com/shopspring/decimal"
)

// marketResponse is one row of /coins/markets.
// Numeric fields are pointers: the provider sends null for fresh listings.
type marketResponse struct {
	ID                       string           `json:"id"`
	Symbol                   string           `json:"symbol"`
	Name                     string           `json:"name"`
	Image                    string           `json:"image"`
	CurrentPrice             *decimal.Decimal `json:"current_price"`
	MarketCap                *decimal.Decimal `json:"market_cap"`
	MarketCapRank            *int             `json:"market_cap_rank"`
	PriceChangePercentage24h *decimal.Decimal `json:"price_change_percentage_24h"`
}

// toAsset normalizes a provider row at the boundary.
func (m marketResponse) toAsset() domain.AssetRecord {
	return domain.AssetRecord{
		ID:             m.ID,
		Symbol:         m.Symbol,
		Name:           m.Name,
		ImageRef:       m.Image,
		CurrentPrice:   nonNegative(m.CurrentPrice),
		MarketCap:      nonNegative(m.MarketCap),
		PriceChange24h: orZero(m.PriceChangePercentage24h),
	}
}

// marketChartResponse is /coins/{id}/market_chart/range. Each entry is [unix_ms, value].
type marketChartResponse struct {
	Prices [][2]decimal.Decimal `json:"prices"`
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func nonNegative(d *decimal.Decimal) decimal.Decimal {
	v := orZero(d)
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
