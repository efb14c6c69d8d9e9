package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/minutebar/candlebot/internal/platform/binance"
)

const (
	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// BinanceWSFeed connects to the exchange kline stream for one symbol and
// forwards every raw message, in arrival order, to a single output channel.
// It reconnects with exponential backoff on disconnect.
type BinanceWSFeed struct {
	wsHost   string
	symbol   string
	interval string
	out      chan<- []byte
	logger   *slog.Logger
}

// NewBinanceWSFeed creates a feed that sends raw stream messages to out.
func NewBinanceWSFeed(wsHost, symbol, interval string, out chan<- []byte, logger *slog.Logger) *BinanceWSFeed {
	return &BinanceWSFeed{
		wsHost:   wsHost,
		symbol:   symbol,
		interval: interval,
		out:      out,
		logger:   logger.With(slog.String("component", "binance_ws_feed")),
	}
}

// Run connects and forwards messages until ctx is cancelled, reconnecting
// with backoff after each disconnect.
func (f *BinanceWSFeed) Run(ctx context.Context) error {
	delay := reconnectDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := time.Now()
		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(started) > maxReconnectDelay {
			// The connection held for a while; start backoff over.
			delay = reconnectDelay
		}
		f.logger.Warn("kline stream disconnected, reconnecting",
			slog.String("symbol", f.symbol),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runConnection runs one connection until it drops or ctx is cancelled.
func (f *BinanceWSFeed) runConnection(ctx context.Context) error {
	client := binance.NewWSClient(f.wsHost, f.symbol, f.interval)
	defer client.Close()

	client.OnMessage(func(raw []byte) {
		// Copy: the websocket library may reuse the read buffer.
		msg := make([]byte, len(raw))
		copy(msg, raw)
		select {
		case f.out <- msg:
		case <-ctx.Done():
		}
	})

	if err := client.Connect(ctx); err != nil {
		return err
	}
	f.logger.Info("kline stream connected",
		slog.String("symbol", f.symbol),
		slog.String("url", client.StreamURL()),
	)
	return client.Wait(ctx)
}
