package strategy

import (
	"fmt"

	"github.com/minutebar/candlebot/internal/domain"
)

// RSI computes the Relative Strength Index of the final close using Wilder's
// smoothing: average gain and loss are seeded with the simple average of the
// first period changes, then updated with
// avg = (avg*(period-1) + value) / period for every later change.
// It returns false when closes holds fewer than period+1 entries.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50, true
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// ThresholdRSI buys when flat and the RSI is at or below the oversold
// threshold, and sells when long and the RSI is at or above the overbought
// threshold.
type ThresholdRSI struct {
	period     int
	overbought float64
	oversold   float64
}

// NewThresholdRSI validates cfg and creates the strategy.
func NewThresholdRSI(cfg Config) (*ThresholdRSI, error) {
	if cfg.RSIPeriod <= 1 {
		return nil, fmt.Errorf("strategy: rsi period must be > 1, got %d", cfg.RSIPeriod)
	}
	if cfg.Oversold >= cfg.Overbought {
		return nil, fmt.Errorf("strategy: oversold %.1f must be below overbought %.1f",
			cfg.Oversold, cfg.Overbought)
	}
	return &ThresholdRSI{
		period:     cfg.RSIPeriod,
		overbought: cfg.Overbought,
		oversold:   cfg.Oversold,
	}, nil
}

// Name returns the strategy identifier.
func (s *ThresholdRSI) Name() string { return "rsi" }

// RequiredLookback is the RSI period plus two, so the indicator always has a
// fully seeded smoothing window plus one confirmed change.
func (s *ThresholdRSI) RequiredLookback() int { return s.period + 2 }

// ComputeSignal evaluates the RSI of the latest closed candle.
func (s *ThresholdRSI) ComputeSignal(closes []float64, pos domain.Position) domain.Signal {
	if len(closes) < s.RequiredLookback() {
		return domain.SignalNone
	}
	rsi, ok := RSI(closes, s.period)
	if !ok {
		return domain.SignalNone
	}
	switch {
	case pos.IsLong() && rsi >= s.overbought:
		return domain.SignalSell
	case !pos.IsLong() && rsi <= s.oversold:
		return domain.SignalBuy
	default:
		return domain.SignalNone
	}
}
