package event

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Ticker events are the only high-frequency allocation on the inbox path.
//
// Usage:
//
//	ev := AcquireTickerEvent()
//	ev.Ticker = t
//	if !loop.Post(ev) {
//		ReleaseTickerEvent(ev) // Loop stopped, nobody will release it
//	}
var tickerPool = sync.Pool{
	New: func() interface{} {
		return &TickerEvent{}
	},
}

// AcquireTickerEvent gets a TickerEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireTickerEvent() *TickerEvent {
	return tickerPool.Get().(*TickerEvent)
}

// ReleaseTickerEvent returns a TickerEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseTickerEvent(ev *TickerEvent) {
	if ev == nil {
		return
	}
	ev.Ts = 0
	ev.Ticker.Symbol = ""
	ev.Ticker.Price = decimal.Zero
	ev.Ticker.ChangeRate = nil
	ev.Ticker.EventTime = 0

	tickerPool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*TickerEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireTickerEvent())
	}
	for _, ev := range evs {
		ReleaseTickerEvent(ev)
	}
}
