package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAssetRecord_Matches(t *testing.T) {
	a := AssetRecord{ID: "bitcoin", Symbol: "btc"}

	tests := []struct {
		key  string
		want bool
	}{
		{"bitcoin", true},
		{"btc", true},
		{"BTC", true},
		{"Bitcoin", false},
		{"eth", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := a.Matches(tt.key); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestAssetRecord_Apply(t *testing.T) {
	a := AssetRecord{
		ID:             "btc",
		CurrentPrice:   decimal.NewFromInt(60000),
		MarketCap:      decimal.NewFromInt(1000),
		PriceChange24h: decimal.NewFromFloat(1.5),
	}

	price := decimal.NewFromInt(61000)
	a.Apply(AssetPatch{CurrentPrice: &price})

	if !a.CurrentPrice.Equal(price) {
		t.Errorf("Expected price %v, got %v", price, a.CurrentPrice)
	}
	if !a.MarketCap.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Market cap should be untouched, got %v", a.MarketCap)
	}
	if !a.PriceChange24h.Equal(decimal.NewFromFloat(1.5)) {
		t.Errorf("Change should be untouched, got %v", a.PriceChange24h)
	}
}

func TestAssetRecord_ChangeDirection(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		a := AssetRecord{PriceChange24h: decimal.NewFromFloat(0.1)}
		if a.ChangeDirection() != "positive" {
			t.Errorf("Expected positive, got %s", a.ChangeDirection())
		}
	})

	t.Run("negative", func(t *testing.T) {
		a := AssetRecord{PriceChange24h: decimal.NewFromFloat(-2)}
		if a.ChangeDirection() != "negative" {
			t.Errorf("Expected negative, got %s", a.ChangeDirection())
		}
	})

	t.Run("absent change is neutral", func(t *testing.T) {
		a := AssetRecord{}
		if a.ChangeDirection() != "neutral" {
			t.Errorf("Expected neutral, got %s", a.ChangeDirection())
		}
	})
}

func TestScrollSignal_AtEnd(t *testing.T) {
	tests := []struct {
		name string
		sig  ScrollSignal
		want bool
	}{
		{"top of page", ScrollSignal{0, 800, 3000}, false},
		{"exactly at end", ScrollSignal{2200, 800, 3000}, true},
		{"overscrolled", ScrollSignal{2300, 800, 3000}, true},
		{"content shorter than viewport", ScrollSignal{0, 800, 500}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sig.AtEnd(); got != tt.want {
				t.Errorf("AtEnd() = %v, want %v", got, tt.want)
			}
		})
	}
}
