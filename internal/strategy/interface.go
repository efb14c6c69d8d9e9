// Package strategy implements the pluggable signal engines that decide when
// the trading session should enter or exit a position. Every variant exposes
// the same single capability so the position state machine never needs to know
// which one is active.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/minutebar/candlebot/internal/domain"
)

// Strategy computes a trading signal from the closed-candle history. Exactly
// one of Buy, Sell, or None is returned per invocation; implementations must
// not cache signals across candles.
type Strategy interface {
	Name() string
	// RequiredLookback is the number of closed candles the history must
	// retain for ComputeSignal to be meaningful. Callers size the price
	// history's retention window from this.
	RequiredLookback() int
	// ComputeSignal evaluates the chronological closes against the current
	// position. It returns SignalNone while the history is shorter than
	// RequiredLookback.
	ComputeSignal(closes []float64, pos domain.Position) domain.Signal
}

// Config holds the parameters shared by the strategy constructors.
type Config struct {
	RSIPeriod    int
	Overbought   float64
	Oversold     float64
	ModelPath    string  // forecast: path to the trained model weights
	BuyPercent   float64 // forecast: min upward deviation before buying
	SellPercent  float64 // forecast: min downward deviation before selling
}

// Factory builds a strategy instance from the shared config.
type Factory func(cfg Config) (Strategy, error)

// Registry maps strategy names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any previous registration.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build constructs the strategy registered under name.
func (r *Registry) Build(name string, cfg Config) (Strategy, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy: unknown strategy %q", name)
	}
	return f(cfg)
}

// List returns the registered strategy names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry returns a registry with all built-in strategies registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("rsi", func(cfg Config) (Strategy, error) {
		return NewThresholdRSI(cfg)
	})
	r.Register("rsi_breakout", func(cfg Config) (Strategy, error) {
		return NewBreakoutRSI(cfg)
	})
	r.Register("forecast", func(cfg Config) (Strategy, error) {
		model, err := LoadLinearModel(cfg.ModelPath)
		if err != nil {
			return nil, err
		}
		return NewForecast(cfg, model)
	})
	return r
}
