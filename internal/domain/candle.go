package domain

import "time"

// Tick is a single normalized market data observation taken from one raw feed
// message. Ticks are transient: the ingester consumes them to build candles
// and they are not retained afterwards.
type Tick struct {
	Symbol    string
	EventTime time.Time
	Close     float64
}

// Minute returns the tick's event time truncated to minute granularity, which
// is the key used to bucket ticks into candles.
func (t Tick) Minute() time.Time {
	return t.EventTime.Truncate(time.Minute)
}

// Candle is the closing price observed for one minute bucket. A candle is
// created once, when the first tick of the following minute arrives, and is
// never mutated afterwards.
type Candle struct {
	Minute time.Time
	Close  float64
}

// PriceHistory is an ordered, minute-deduplicated, bounded series of closed
// candles. Entries are strictly increasing by timestamp; insertion order is
// chronological order. It is owned by the single trading goroutine and is not
// safe for concurrent use.
type PriceHistory struct {
	candles []Candle
	seen    map[int64]struct{} // unix minute -> present
	maxLen  int
}

// NewPriceHistory creates a PriceHistory that retains at most maxLen candles.
// A maxLen of zero or less means unbounded retention.
func NewPriceHistory(maxLen int) *PriceHistory {
	return &PriceHistory{
		seen:   make(map[int64]struct{}),
		maxLen: maxLen,
	}
}

// Append inserts a closed candle at the end of the series. It returns false
// without modifying the history when a candle for the same minute is already
// present (feed replays) or when the candle would break chronological order.
func (h *PriceHistory) Append(c Candle) bool {
	key := c.Minute.Truncate(time.Minute).Unix()
	if _, dup := h.seen[key]; dup {
		return false
	}
	if n := len(h.candles); n > 0 && !h.candles[n-1].Minute.Before(c.Minute) {
		return false
	}
	h.candles = append(h.candles, c)
	h.seen[key] = struct{}{}
	h.trim()
	return true
}

// trim drops the oldest candles until the series fits within maxLen.
func (h *PriceHistory) trim() {
	if h.maxLen <= 0 || len(h.candles) <= h.maxLen {
		return
	}
	drop := len(h.candles) - h.maxLen
	for _, c := range h.candles[:drop] {
		delete(h.seen, c.Minute.Truncate(time.Minute).Unix())
	}
	h.candles = append(h.candles[:0], h.candles[drop:]...)
}

// Len returns the number of retained candles.
func (h *PriceHistory) Len() int { return len(h.candles) }

// Closes returns the retained closing prices in chronological order. The
// returned slice is a copy and safe to mutate.
func (h *PriceHistory) Closes() []float64 {
	out := make([]float64, len(h.candles))
	for i, c := range h.candles {
		out[i] = c.Close
	}
	return out
}

// Candles returns a copy of the retained candles in chronological order.
func (h *PriceHistory) Candles() []Candle {
	out := make([]Candle, len(h.candles))
	copy(out, h.candles)
	return out
}

// Last returns the most recent closed candle, or false when the history is
// empty.
func (h *PriceHistory) Last() (Candle, bool) {
	if len(h.candles) == 0 {
		return Candle{}, false
	}
	return h.candles[len(h.candles)-1], true
}

// Has reports whether a candle for the given minute is retained.
func (h *PriceHistory) Has(minute time.Time) bool {
	_, ok := h.seen[minute.Truncate(time.Minute).Unix()]
	return ok
}
