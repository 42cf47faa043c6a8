package binance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"crypto_dash/internal/domain"

	"github.com/shopspring/decimal"
)

// subscribeRequest is the control frame sent right after the socket opens.
type subscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// tickerFrame represents a Binance 24hr ticker payload (only the fields we use)
// Reference: https://developers.binance.com/docs/binance-spot-api-docs/web-socket-streams
type tickerFrame struct {
	EventType          string `json:"e"` // 24hrTicker
	EventTime          int64  `json:"E"` // Event time (ms)
	Symbol             string `json:"s"` // BTCUSDT
	LastPrice          string `json:"c"` // Last price
	PriceChangePercent string `json:"P"` // 24h change (%)

	// Declared so their keys are not folded onto "c" and "P" by case-insensitive matching
	PriceChange string `json:"p"`
	CloseTime   int64  `json:"C"`

	// Control frames
	Result json.RawMessage `json:"result"`
	ID     *int64          `json:"id"`
	Error  *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`

	// Combined stream envelope: {"stream":"btcusdt@ticker","data":{...}}
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// StreamNames builds the subscribe params: lower-cased symbol + "@ticker".
func StreamNames(symbols []string) []string {
	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		names = append(names, s+"@ticker")
	}
	return names
}

// ParseFrame decodes one inbound message: a single object or an array of objects.
// Control frames (subscribe acks) yield no events and no error.
// Any malformed element fails the whole frame with domain.ErrParseFailure.
func ParseFrame(data []byte) ([]domain.TickerEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty frame", domain.ErrParseFailure)
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
		}
		events := make([]domain.TickerEvent, 0, len(items))
		for _, item := range items {
			ev, ok, err := parseObject(item)
			if err != nil {
				return nil, err
			}
			if ok {
				events = append(events, ev)
			}
		}
		return events, nil
	}

	ev, ok, err := parseObject(trimmed)
	if err != nil || !ok {
		return nil, err
	}
	return []domain.TickerEvent{ev}, nil
}

func parseObject(raw []byte) (domain.TickerEvent, bool, error) {
	var f tickerFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.TickerEvent{}, false, fmt.Errorf("%w: %w", domain.ErrParseFailure, err)
	}

	if len(f.Data) > 0 {
		return parseObject(f.Data)
	}

	if f.Error != nil {
		return domain.TickerEvent{}, false, fmt.Errorf("%w: stream error %d: %s", domain.ErrSubscriptionFailure, f.Error.Code, f.Error.Msg)
	}

	// Subscribe ack: {"result":null,"id":1}
	if f.ID != nil && f.Symbol == "" {
		return domain.TickerEvent{}, false, nil
	}

	if f.Symbol == "" || f.LastPrice == "" {
		return domain.TickerEvent{}, false, fmt.Errorf("%w: missing symbol or price", domain.ErrParseFailure)
	}

	price, err := decimal.NewFromString(f.LastPrice)
	if err != nil || price.IsNegative() {
		return domain.TickerEvent{}, false, fmt.Errorf("%w: bad price %q", domain.ErrParseFailure, f.LastPrice)
	}

	ev := domain.TickerEvent{
		Symbol:    strings.ToUpper(f.Symbol),
		Price:     price,
		EventTime: f.EventTime,
	}
	if f.PriceChangePercent != "" {
		rate, err := decimal.NewFromString(f.PriceChangePercent)
		if err != nil {
			return domain.TickerEvent{}, false, fmt.Errorf("%w: bad change %q", domain.ErrParseFailure, f.PriceChangePercent)
		}
		ev.ChangeRate = &rate
	}
	return ev, true, nil
}
