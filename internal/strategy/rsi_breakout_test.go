package strategy

import (
	"testing"

	"github.com/minutebar/candlebot/internal/domain"
)

func TestBreakoutRSIRequiresDirectionConfirmation(t *testing.T) {
	strat, err := NewBreakoutRSI(Config{RSIPeriod: 14, Overbought: 70, Oversold: 30})
	if err != nil {
		t.Fatalf("NewBreakoutRSI: %v", err)
	}

	flat := domain.NewPosition()
	long := domain.Position{Status: domain.PositionStatusLong, EntryPrice: 100, HighWaterMark: 100}

	// Falling series drives the prior RSI to 0 (oversold). The final close
	// decides whether the reversal is confirmed.
	oversold := falling(40)
	reversalUp := append(append([]float64{}, oversold...), oversold[len(oversold)-1]+1)
	continuedDown := append(append([]float64{}, oversold...), oversold[len(oversold)-1]-1)

	if got := strat.ComputeSignal(reversalUp, flat); got != domain.SignalBuy {
		t.Fatalf("confirmed oversold reversal = %v, want buy", got)
	}
	if got := strat.ComputeSignal(continuedDown, flat); got != domain.SignalNone {
		t.Fatalf("unconfirmed oversold = %v, want none", got)
	}

	overbought := rising(40)
	reversalDown := append(append([]float64{}, overbought...), overbought[len(overbought)-1]-1)
	continuedUp := append(append([]float64{}, overbought...), overbought[len(overbought)-1]+1)

	if got := strat.ComputeSignal(reversalDown, long); got != domain.SignalSell {
		t.Fatalf("confirmed overbought reversal = %v, want sell", got)
	}
	if got := strat.ComputeSignal(continuedUp, long); got != domain.SignalNone {
		t.Fatalf("unconfirmed overbought = %v, want none", got)
	}
}

func TestBreakoutRSIExcludesLatestCloseFromIndicator(t *testing.T) {
	strat, err := NewBreakoutRSI(Config{RSIPeriod: 14, Overbought: 70, Oversold: 30})
	if err != nil {
		t.Fatalf("NewBreakoutRSI: %v", err)
	}

	// A single large upward spike at the end of a falling series would push
	// the full-series RSI off the oversold threshold; the strategy must read
	// the indicator from the candle before the spike and still buy.
	closes := falling(40)
	closes = append(closes, closes[len(closes)-1]+50)

	if got := strat.ComputeSignal(closes, domain.NewPosition()); got != domain.SignalBuy {
		t.Fatalf("ComputeSignal = %v, want buy from prior-candle RSI", got)
	}
}

func TestBreakoutRSILookback(t *testing.T) {
	strat, err := NewBreakoutRSI(Config{RSIPeriod: 14, Overbought: 70, Oversold: 30})
	if err != nil {
		t.Fatalf("NewBreakoutRSI: %v", err)
	}
	if got := strat.RequiredLookback(); got != 17 {
		t.Fatalf("RequiredLookback = %d, want 17", got)
	}
	short := falling(strat.RequiredLookback() - 1)
	if got := strat.ComputeSignal(short, domain.NewPosition()); got != domain.SignalNone {
		t.Fatalf("short history produced %v, want none", got)
	}
}
