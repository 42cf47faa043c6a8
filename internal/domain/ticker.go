package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TickerEvent is one parsed push update from the streaming feed.
type TickerEvent struct {
	Symbol     string           `json:"symbol"`      // Exchange pair (e.g., "BTCUSDT")
	Price      decimal.Decimal  `json:"price"`       // Last price
	ChangeRate *decimal.Decimal `json:"change_rate"` // 24h change (%), nil when the frame omits it
	EventTime  int64            `json:"event_time"`  // Unix millis from the exchange
}

// BaseSymbol strips the quote asset from the pair, e.g. "BTCUSDT" -> "BTC".
func (t *TickerEvent) BaseSymbol(quote string) string {
	sym := strings.ToUpper(t.Symbol)
	quote = strings.ToUpper(quote)
	if quote != "" && len(sym) > len(quote) && strings.HasSuffix(sym, quote) {
		return sym[:len(sym)-len(quote)]
	}
	return sym
}

// Patch converts the event into a field-level patch for the store.
func (t *TickerEvent) Patch() AssetPatch {
	price := t.Price
	p := AssetPatch{CurrentPrice: &price}
	if t.ChangeRate != nil {
		rate := *t.ChangeRate
		p.PriceChange24h = &rate
	}
	return p
}

// StreamState is the lifecycle state of the streaming connection.
type StreamState int

const (
	StreamConnecting StreamState = iota + 1
	StreamOpen
	StreamClosed
	StreamErrored
)

// String returns the string representation of StreamState
func (s StreamState) String() string {
	switch s {
	case StreamConnecting:
		return "connecting"
	case StreamOpen:
		return "open"
	case StreamClosed:
		return "closed"
	case StreamErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// MarshalText lets the state render as its name in JSON.
func (s StreamState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
