package server

import (
	"strings"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/service"
)

// AssetView is one table row as rendered by the browser.
type AssetView struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"` // Upper-cased for display
	Name          string `json:"name"`
	Icon          string `json:"icon"` // Served by GET /icons/:id
	Price         string `json:"price"`
	PriceText     string `json:"price_text"`
	MarketCap     string `json:"market_cap"`
	MarketCapText string `json:"market_cap_text"`
	Change24h     string `json:"change_24h"`
	ChangeText    string `json:"change_text"`
	Direction     string `json:"direction"` // positive, negative, neutral
}

// ViewResponse is the payload of GET /api/assets and of every push message.
type ViewResponse struct {
	Type    string        `json:"type"`
	Kind    string        `json:"kind,omitempty"` // Mutation that produced this version
	Version uint64        `json:"version"`
	Status  domain.Status `json:"status"`
	Assets  []AssetView   `json:"assets"`
}

func newAssetView(r domain.AssetRecord) AssetView {
	return AssetView{
		ID:            r.ID,
		Symbol:        strings.ToUpper(r.Symbol),
		Name:          r.Name,
		Icon:          "/icons/" + r.ID,
		Price:         r.CurrentPrice.String(),
		PriceText:     domain.FormatNumber(r.CurrentPrice),
		MarketCap:     r.MarketCap.String(),
		MarketCapText: domain.FormatNumber(r.MarketCap),
		Change24h:     r.PriceChange24h.String(),
		ChangeText:    domain.FormatPercent(r.PriceChange24h),
		Direction:     r.ChangeDirection(),
	}
}

// NewViewResponse converts a store view into the browser DTO.
func NewViewResponse(v service.View, kind string) ViewResponse {
	assets := make([]AssetView, 0, len(v.Records))
	for _, r := range v.Records {
		assets = append(assets, newAssetView(r))
	}
	return ViewResponse{
		Type:    "view",
		Kind:    kind,
		Version: v.Version,
		Status:  v.Status,
		Assets:  assets,
	}
}
