// Package trader contains the per-symbol trading session: the Flat/Long
// position state machine with stop-loss and cooldown discipline, and the
// single-consumer loop that drives it from the market data stream.
package trader

import (
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

// SessionConfig holds the risk parameters of one trading session.
type SessionConfig struct {
	Symbol            string
	Quantity          float64
	StopLossThreshold float64 // fraction, e.g. 0.02 for 2%
	TrailingStop      bool    // trail the high-water mark instead of the entry price
	CooldownCandles   int     // candles to block re-entry after a stop-loss exit
}

// Intent is what the state machine resolved to do for one candle, before the
// order attempt. StopLoss marks a sell forced by the stop rather than the
// strategy signal.
type Intent struct {
	Action   domain.DecisionAction
	StopLoss bool
}

// Session is the position state machine for one symbol. State changes only on
// Commit with a confirmed order outcome, so a failed order leaves the session
// exactly as it was before the attempt.
//
// Session is owned by the trading goroutine and is not safe for concurrent
// use.
type Session struct {
	cfg   SessionConfig
	pos   domain.Position
	index int // count of closed candles seen this session
}

// NewSession creates a session starting flat with no cooldown.
func NewSession(cfg SessionConfig) *Session {
	return &Session{cfg: cfg, pos: domain.NewPosition()}
}

// Position returns a copy of the current position state.
func (s *Session) Position() domain.Position { return s.pos }

// CandleIndex returns the number of closed candles seen so far.
func (s *Session) CandleIndex() int { return s.index }

// Advance registers one closed candle: it bumps the candle index and, while
// long, raises the high-water mark to the new close before any stop-loss
// evaluation for this candle. It returns the new index.
func (s *Session) Advance(close float64) int {
	s.index++
	if s.pos.IsLong() && close > s.pos.HighWaterMark {
		s.pos.HighWaterMark = close
	}
	return s.index
}

// stopLossHit reports whether the closed price breaches the stop threshold
// below the stop reference (high-water mark or entry price).
func (s *Session) stopLossHit(close float64) bool {
	if !s.pos.IsLong() || s.cfg.StopLossThreshold <= 0 {
		return false
	}
	ref := s.pos.StopReference(s.cfg.TrailingStop)
	return close <= (1-s.cfg.StopLossThreshold)*ref
}

// Decide arbitrates between the strategy signal, the stop-loss condition, and
// the cooldown window for the candle last registered via Advance. It returns
// the no-op intent when nothing should happen.
func (s *Session) Decide(sig domain.Signal, close float64) Intent {
	if s.pos.IsLong() {
		stop := s.stopLossHit(close)
		if sig == domain.SignalSell || stop {
			return Intent{Action: domain.DecisionSell, StopLoss: stop}
		}
		return Intent{}
	}

	if sig == domain.SignalBuy && s.index >= s.pos.CooldownUntil {
		return Intent{Action: domain.DecisionBuy}
	}
	return Intent{}
}

// Commit applies one order outcome. Failed outcomes change nothing; the next
// candle's decision is computed from the unchanged state. On a confirmed
// stop-loss exit the cooldown is armed relative to the candle that triggered
// the sell — a failed stop-loss sell arms no cooldown.
func (s *Session) Commit(out domain.OrderOutcome) {
	if !out.Succeeded {
		return
	}
	switch out.Request.Side {
	case domain.OrderSideBuy:
		s.pos.Status = domain.PositionStatusLong
		s.pos.EntryPrice = out.Request.ExpectedPrice
		s.pos.HighWaterMark = out.Request.ExpectedPrice
	case domain.OrderSideSell:
		s.pos.Status = domain.PositionStatusFlat
		s.pos.EntryPrice = 0
		s.pos.HighWaterMark = 0
		if out.Request.StopLoss {
			s.pos.CooldownUntil = out.Request.CandleIndex + s.cfg.CooldownCandles
		}
	}
}

// Snapshot exports the restartable session state.
func (s *Session) Snapshot(sessionID string, candles []domain.Candle) domain.SessionSnapshot {
	return domain.SessionSnapshot{
		Symbol:      s.cfg.Symbol,
		SessionID:   sessionID,
		Position:    s.pos,
		CandleIndex: s.index,
		Candles:     candles,
		SavedAt:     time.Now().UTC(),
	}
}

// Restore loads a previously saved snapshot into the session.
func (s *Session) Restore(snap domain.SessionSnapshot) {
	s.pos = snap.Position
	s.index = snap.CandleIndex
}
