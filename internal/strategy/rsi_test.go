package strategy

import (
	"testing"

	"github.com/minutebar/candlebot/internal/domain"
)

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func falling(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 - float64(i)
	}
	return out
}

func TestRSIConvergesOnMonotonicSeries(t *testing.T) {
	rsi, ok := RSI(rising(40), 14)
	if !ok {
		t.Fatalf("RSI reported insufficient data")
	}
	if rsi != 100 {
		t.Fatalf("RSI on monotonically increasing series = %.4f, want 100", rsi)
	}

	rsi, ok = RSI(falling(40), 14)
	if !ok {
		t.Fatalf("RSI reported insufficient data")
	}
	if rsi != 0 {
		t.Fatalf("RSI on monotonically decreasing series = %.4f, want 0", rsi)
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, ok := RSI(rising(14), 14); ok {
		t.Fatalf("RSI accepted a series shorter than period+1")
	}
	if _, ok := RSI(rising(15), 14); !ok {
		t.Fatalf("RSI rejected a series of exactly period+1")
	}
}

func TestRSIWilderSmoothing(t *testing.T) {
	// Hand-computed with period 3:
	// closes: 10, 11, 10.5, 11.5, 12
	// changes: +1, -0.5, +1, +0.5
	// seed over first 3 changes: avgGain=(1+0+1)/3, avgLoss=(0+0.5+0)/3
	// smoothed with +0.5: avgGain=(2/3*2+0.5)/3, avgLoss=(1/6*2)/3
	closes := []float64{10, 11, 10.5, 11.5, 12}
	avgGain := (2.0/3.0*2 + 0.5) / 3
	avgLoss := (1.0 / 6.0 * 2) / 3
	want := 100 - 100/(1+avgGain/avgLoss)

	got, ok := RSI(closes, 3)
	if !ok {
		t.Fatalf("RSI reported insufficient data")
	}
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("RSI = %.10f, want %.10f", got, want)
	}
}

func TestThresholdRSISignals(t *testing.T) {
	strat, err := NewThresholdRSI(Config{RSIPeriod: 14, Overbought: 70, Oversold: 30})
	if err != nil {
		t.Fatalf("NewThresholdRSI: %v", err)
	}

	flat := domain.NewPosition()
	long := domain.Position{Status: domain.PositionStatusLong, EntryPrice: 100, HighWaterMark: 100}

	tests := []struct {
		name   string
		closes []float64
		pos    domain.Position
		want   domain.Signal
	}{
		{"oversold while flat buys", falling(40), flat, domain.SignalBuy},
		{"oversold while long holds", falling(40), long, domain.SignalNone},
		{"overbought while long sells", rising(40), long, domain.SignalSell},
		{"overbought while flat holds", rising(40), flat, domain.SignalNone},
		{"short history holds", rising(10), flat, domain.SignalNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strat.ComputeSignal(tt.closes, tt.pos); got != tt.want {
				t.Fatalf("ComputeSignal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThresholdRSIConfigValidation(t *testing.T) {
	if _, err := NewThresholdRSI(Config{RSIPeriod: 1, Overbought: 70, Oversold: 30}); err == nil {
		t.Fatalf("expected error for period 1")
	}
	if _, err := NewThresholdRSI(Config{RSIPeriod: 14, Overbought: 30, Oversold: 70}); err == nil {
		t.Fatalf("expected error for inverted thresholds")
	}
}
