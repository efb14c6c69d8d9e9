package strategy

import "github.com/minutebar/candlebot/internal/domain"

// BreakoutRSI is the threshold-RSI strategy with price direction
// confirmation: the RSI must have crossed its threshold on the prior closed
// candle, and the latest close must already be moving in the signalled
// direction. The RSI is computed excluding the latest close, so the crossing
// is always confirmed by a fully closed candle.
type BreakoutRSI struct {
	base *ThresholdRSI
}

// NewBreakoutRSI validates cfg and creates the strategy.
func NewBreakoutRSI(cfg Config) (*BreakoutRSI, error) {
	base, err := NewThresholdRSI(cfg)
	if err != nil {
		return nil, err
	}
	return &BreakoutRSI{base: base}, nil
}

// Name returns the strategy identifier.
func (s *BreakoutRSI) Name() string { return "rsi_breakout" }

// RequiredLookback needs one candle more than the plain threshold strategy,
// since the indicator is evaluated one candle back.
func (s *BreakoutRSI) RequiredLookback() int { return s.base.RequiredLookback() + 1 }

// ComputeSignal evaluates the prior candle's RSI plus direction confirmation.
func (s *BreakoutRSI) ComputeSignal(closes []float64, pos domain.Position) domain.Signal {
	if len(closes) < s.RequiredLookback() {
		return domain.SignalNone
	}

	cur := closes[len(closes)-1]
	prev := closes[len(closes)-2]
	prevRSI, ok := RSI(closes[:len(closes)-1], s.base.period)
	if !ok {
		return domain.SignalNone
	}

	switch {
	case pos.IsLong() && prevRSI >= s.base.overbought && cur < prev:
		return domain.SignalSell
	case !pos.IsLong() && prevRSI <= s.base.oversold && cur > prev:
		return domain.SignalBuy
	default:
		return domain.SignalNone
	}
}
