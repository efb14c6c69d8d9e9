package strategy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/minutebar/candlebot/internal/domain"
)

// Forecaster predicts a mean-normalized price some minutes ahead from a
// mean-normalized window of closes. Implementations are pre-trained offline;
// training is out of scope here.
type Forecaster interface {
	// Lookback is the window length the model was trained on.
	Lookback() int
	// Horizon is how many minutes ahead the prediction targets.
	Horizon() int
	// Predict takes a window of exactly Lookback normalized closes and
	// returns the predicted normalized close Horizon minutes ahead.
	Predict(window []float64) (float64, error)
}

// Forecast signals when the model's price forecast deviates from the current
// close by more than the configured buy/sell percentages, in the direction
// already implied by the most recent price delta: a buy needs a rising last
// close, a sell needs a falling one.
type Forecast struct {
	model       Forecaster
	buyPercent  float64
	sellPercent float64
}

// NewForecast validates cfg and wraps the given pre-trained model.
func NewForecast(cfg Config, model Forecaster) (*Forecast, error) {
	if model == nil {
		return nil, fmt.Errorf("strategy: forecast requires a model")
	}
	if cfg.BuyPercent <= 0 || cfg.SellPercent <= 0 {
		return nil, fmt.Errorf("strategy: forecast thresholds must be positive, got buy=%.4f sell=%.4f",
			cfg.BuyPercent, cfg.SellPercent)
	}
	return &Forecast{
		model:       model,
		buyPercent:  cfg.BuyPercent,
		sellPercent: cfg.SellPercent,
	}, nil
}

// Name returns the strategy identifier.
func (s *Forecast) Name() string { return "forecast" }

// RequiredLookback is the model's training window.
func (s *Forecast) RequiredLookback() int { return s.model.Lookback() }

// ComputeSignal normalizes the most recent window by its mean, runs the
// model, denormalizes the forecast, and compares it against the latest close.
func (s *Forecast) ComputeSignal(closes []float64, pos domain.Position) domain.Signal {
	n := s.model.Lookback()
	if len(closes) < n || n < 2 {
		return domain.SignalNone
	}

	window := closes[len(closes)-n:]
	var mean float64
	for _, c := range window {
		mean += c
	}
	mean /= float64(n)
	if mean == 0 {
		return domain.SignalNone
	}

	normalized := make([]float64, n)
	for i, c := range window {
		normalized[i] = c / mean
	}

	predicted, err := s.model.Predict(normalized)
	if err != nil {
		return domain.SignalNone
	}
	forecast := predicted * mean

	cur := window[n-1]
	prev := window[n-2]

	switch {
	case !pos.IsLong() && cur > prev && forecast >= cur*(1+s.buyPercent):
		return domain.SignalBuy
	case pos.IsLong() && cur < prev && forecast <= cur*(1-s.sellPercent):
		return domain.SignalSell
	default:
		return domain.SignalNone
	}
}

// LinearModel is a Forecaster backed by a single linear layer exported from
// offline training: prediction = dot(weights, window) + bias.
type LinearModel struct {
	WindowLen    int       `json:"lookback"`
	HorizonMins  int       `json:"horizon"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
}

// LoadLinearModel reads model weights from a JSON file.
func LoadLinearModel(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy: read model %s: %w", path, err)
	}
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("strategy: decode model %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("strategy: model %s: %w", path, err)
	}
	return &m, nil
}

func (m *LinearModel) validate() error {
	if m.WindowLen < 2 {
		return fmt.Errorf("lookback must be >= 2, got %d", m.WindowLen)
	}
	if m.HorizonMins <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", m.HorizonMins)
	}
	if len(m.Weights) != m.WindowLen {
		return fmt.Errorf("expected %d weights, got %d", m.WindowLen, len(m.Weights))
	}
	return nil
}

// Lookback is the window length the model was trained on.
func (m *LinearModel) Lookback() int { return m.WindowLen }

// Horizon is how many minutes ahead the prediction targets.
func (m *LinearModel) Horizon() int { return m.HorizonMins }

// Predict applies the linear layer to the normalized window.
func (m *LinearModel) Predict(window []float64) (float64, error) {
	if len(window) != m.WindowLen {
		return 0, fmt.Errorf("strategy: model expects window of %d, got %d", m.WindowLen, len(window))
	}
	out := m.Bias
	for i, w := range m.Weights {
		out += w * window[i]
	}
	return out, nil
}
