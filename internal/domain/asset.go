package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AssetRecord is one displayed row of the dashboard.
// Created only from a snapshot page, mutated in place by ticker patches.
type AssetRecord struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	ImageRef       string          `json:"image"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	MarketCap      decimal.Decimal `json:"market_cap"`
	PriceChange24h decimal.Decimal `json:"price_change_24h"` // Signed percentage
}

// AssetPatch carries the fields a ticker update knows about.
// Nil fields are left untouched.
type AssetPatch struct {
	CurrentPrice   *decimal.Decimal
	MarketCap      *decimal.Decimal
	PriceChange24h *decimal.Decimal
}

// IsEmpty reports whether the patch carries no field at all.
func (p AssetPatch) IsEmpty() bool {
	return p.CurrentPrice == nil && p.MarketCap == nil && p.PriceChange24h == nil
}

// Apply overwrites the fields present in p.
func (a *AssetRecord) Apply(p AssetPatch) {
	if p.CurrentPrice != nil {
		a.CurrentPrice = *p.CurrentPrice
	}
	if p.MarketCap != nil {
		a.MarketCap = *p.MarketCap
	}
	if p.PriceChange24h != nil {
		a.PriceChange24h = *p.PriceChange24h
	}
}

// Matches reports whether key identifies this record, either by id or
// case-insensitively by symbol.
func (a *AssetRecord) Matches(key string) bool {
	if a.ID == key {
		return true
	}
	return a.Symbol != "" && strings.EqualFold(a.Symbol, key)
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (a *AssetRecord) ChangeDirection() string {
	if a.PriceChange24h.IsPositive() {
		return "positive"
	}
	if a.PriceChange24h.IsNegative() {
		return "negative"
	}
	return "neutral"
}
