package strategy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/minutebar/candlebot/internal/domain"
)

// stubModel predicts a fixed normalized value regardless of input.
type stubModel struct {
	lookback int
	out      float64
}

func (m stubModel) Lookback() int { return m.lookback }
func (m stubModel) Horizon() int  { return 5 }
func (m stubModel) Predict(window []float64) (float64, error) {
	return m.out, nil
}

func flatWindow(n int, last, prev float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
	}
	out[n-2] = prev
	out[n-1] = last
	return out
}

func TestForecastSignals(t *testing.T) {
	flat := domain.NewPosition()
	long := domain.Position{Status: domain.PositionStatusLong, EntryPrice: 100, HighWaterMark: 100}

	tests := []struct {
		name   string
		model  stubModel
		closes []float64
		pos    domain.Position
		want   domain.Signal
	}{
		{
			// mean ~100, prediction 1.10 -> forecast ~110 vs close 101.
			name:   "strong upward forecast with rising price buys",
			model:  stubModel{lookback: 120, out: 1.10},
			closes: flatWindow(120, 101, 100),
			pos:    flat,
			want:   domain.SignalBuy,
		},
		{
			name:   "upward forecast without rising price holds",
			model:  stubModel{lookback: 120, out: 1.10},
			closes: flatWindow(120, 99, 100),
			pos:    flat,
			want:   domain.SignalNone,
		},
		{
			name:   "strong downward forecast with falling price sells",
			model:  stubModel{lookback: 120, out: 0.90},
			closes: flatWindow(120, 99, 100),
			pos:    long,
			want:   domain.SignalSell,
		},
		{
			name:   "downward forecast while flat holds",
			model:  stubModel{lookback: 120, out: 0.90},
			closes: flatWindow(120, 99, 100),
			pos:    flat,
			want:   domain.SignalNone,
		},
		{
			name:   "forecast within thresholds holds",
			model:  stubModel{lookback: 120, out: 1.005},
			closes: flatWindow(120, 101, 100),
			pos:    flat,
			want:   domain.SignalNone,
		},
		{
			name:   "short history holds",
			model:  stubModel{lookback: 120, out: 1.10},
			closes: flatWindow(60, 101, 100),
			pos:    flat,
			want:   domain.SignalNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strat, err := NewForecast(Config{BuyPercent: 0.02, SellPercent: 0.02}, tt.model)
			if err != nil {
				t.Fatalf("NewForecast: %v", err)
			}
			if got := strat.ComputeSignal(tt.closes, tt.pos); got != tt.want {
				t.Fatalf("ComputeSignal = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadLinearModel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	weights := make([]float64, 120)
	weights[119] = 1 // identity on the latest normalized close
	raw, err := json.Marshal(LinearModel{
		WindowLen:   120,
		HorizonMins: 5,
		Weights:     weights,
		Bias:        0.01,
	})
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}

	m, err := LoadLinearModel(path)
	if err != nil {
		t.Fatalf("LoadLinearModel: %v", err)
	}
	if m.Lookback() != 120 || m.Horizon() != 5 {
		t.Fatalf("unexpected model dims: lookback=%d horizon=%d", m.Lookback(), m.Horizon())
	}

	window := make([]float64, 120)
	window[119] = 1.02
	got, err := m.Predict(window)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := 1.02 + 0.01
	if diff := got - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("Predict = %v, want %v", got, want)
	}

	if _, err := m.Predict(window[:10]); err == nil {
		t.Fatalf("expected error for wrong window length")
	}
}

func TestLoadLinearModelRejectsBadShapes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	raw, _ := json.Marshal(LinearModel{WindowLen: 120, HorizonMins: 5, Weights: []float64{1, 2}})
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if _, err := LoadLinearModel(path); err == nil {
		t.Fatalf("expected shape mismatch error")
	}
	if _, err := LoadLinearModel(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected read error for missing file")
	}
}
