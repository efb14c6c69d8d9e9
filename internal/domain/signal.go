package domain

import "time"

// Signal is the verdict a strategy produces for one closed candle. It is
// computed fresh per close and never cached across candles.
type Signal int

const (
	SignalNone Signal = iota
	SignalBuy
	SignalSell
)

// String returns the lowercase name used in logs and the audit trail.
func (s Signal) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	default:
		return "none"
	}
}

// ParseSignal is the inverse of String. Unknown names map to SignalNone.
func ParseSignal(s string) Signal {
	switch s {
	case "buy":
		return SignalBuy
	case "sell":
		return SignalSell
	default:
		return SignalNone
	}
}

// DecisionAction is what the state machine resolved to do for a candle.
type DecisionAction string

const (
	DecisionNone DecisionAction = ""
	DecisionBuy  DecisionAction = "buy"
	DecisionSell DecisionAction = "sell"
)

// Decision records the trading verdict reached for a single closed candle.
// At most one decision is made per candle; once the candle has closed the
// decision is never re-evaluated.
type Decision struct {
	Symbol      string
	CandleIndex int
	Candle      Candle
	Signal      Signal
	Action      DecisionAction
	StopLoss    bool // the action was forced by the stop-loss, not the signal
	Deferred    bool // evaluation skipped because an order was in flight
	DecidedAt   time.Time
}
