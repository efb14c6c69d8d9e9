// Package feed turns the raw exchange market-data stream into normalized
// ticks and discrete candle-close events for the trading loop.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

// klineMessage is the wire shape of one kline stream event.
type klineMessage struct {
	Symbol    string `json:"s"`
	EventTime int64  `json:"E"` // milliseconds since epoch
	Kline     struct {
		Close string `json:"c"`
	} `json:"k"`
}

// Ingester normalizes raw feed messages into ticks and detects minute
// rollover. It keeps the last seen minute key and price; a candle-close event
// fires only when a message arrives for a later minute, and never for the
// very first message of a session (there is no completed prior candle yet).
//
// The ingester is driven by a single goroutine and is not safe for concurrent
// use.
type Ingester struct {
	lastMinute time.Time
	lastPrice  float64
	primed     bool
	logger     *slog.Logger
}

// NewIngester creates an Ingester.
func NewIngester(logger *slog.Logger) *Ingester {
	return &Ingester{
		logger: logger.With(slog.String("component", "ingester")),
	}
}

// Observe consumes one raw feed message in arrival order. It returns the
// normalized tick and, when the message's minute key is later than the
// previous one, the candle that just closed: the previous minute valued at
// its last-seen price. A parse failure returns an error wrapping
// domain.ErrMalformedTick and emits no close event.
func (in *Ingester) Observe(raw []byte) (domain.Tick, *domain.Candle, error) {
	tick, err := parseTick(raw)
	if err != nil {
		return domain.Tick{}, nil, err
	}

	minute := tick.Minute()
	if in.primed && minute.Before(in.lastMinute) {
		// Stale replay from before the current minute; the candle for it has
		// already closed.
		return tick, nil, nil
	}

	var closed *domain.Candle
	if in.primed && minute.After(in.lastMinute) {
		closed = &domain.Candle{Minute: in.lastMinute, Close: in.lastPrice}
	}

	in.lastMinute = minute
	in.lastPrice = tick.Close
	in.primed = true
	return tick, closed, nil
}

// parseTick extracts symbol, event time, and close price from a raw kline
// stream message.
func parseTick(raw []byte) (domain.Tick, error) {
	var msg klineMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return domain.Tick{}, fmt.Errorf("feed: %w: %v", domain.ErrMalformedTick, err)
	}
	if msg.Symbol == "" || msg.EventTime <= 0 {
		return domain.Tick{}, fmt.Errorf("feed: %w: missing symbol or event time", domain.ErrMalformedTick)
	}
	close, err := strconv.ParseFloat(msg.Kline.Close, 64)
	if err != nil {
		return domain.Tick{}, fmt.Errorf("feed: %w: close price %q", domain.ErrMalformedTick, msg.Kline.Close)
	}
	return domain.Tick{
		Symbol:    msg.Symbol,
		EventTime: time.UnixMilli(msg.EventTime).UTC(),
		Close:     close,
	}, nil
}
