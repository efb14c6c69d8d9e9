package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minutebar/candlebot/internal/crypto"
	"github.com/minutebar/candlebot/internal/domain"
	"github.com/minutebar/candlebot/internal/executor"
	"github.com/minutebar/candlebot/internal/feed"
	"github.com/minutebar/candlebot/internal/metrics"
	"github.com/minutebar/candlebot/internal/notify"
	"github.com/minutebar/candlebot/internal/platform/binance"
	"github.com/minutebar/candlebot/internal/strategy"
	"github.com/minutebar/candlebot/internal/trader"
)

// TradeMode runs the full pipeline against the real exchange: WS feed, candle
// aggregation, strategy decisions, and live order placement.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	secret, err := crypto.LoadSecret(crypto.SecretConfig{
		RawSecret:           a.cfg.Exchange.ApiSecret,
		EncryptedSecretPath: a.cfg.Exchange.EncryptedSecretPath,
		Password:            a.cfg.Exchange.SecretPassword,
	})
	if err != nil {
		return fmt.Errorf("trade mode: %w", err)
	}
	client := binance.NewClient(a.cfg.Exchange.RestHost, &crypto.HMACAuth{
		Key:    a.cfg.Exchange.ApiKey,
		Secret: secret,
	})

	return a.runTrading(ctx, deps, executor.NewExchangePlacer(client), client)
}

// PaperMode runs the same pipeline with simulated fills against an in-memory
// account. The real WS feed still drives candle aggregation, and when a REST
// host is configured the simulated account is valued with live prices.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode",
		slog.Float64("base_balance", a.cfg.Trading.PaperBaseBalance),
		slog.Float64("quote_balance", a.cfg.Trading.PaperQuoteBalance),
	)

	var prices executor.PriceSource
	if a.cfg.Exchange.RestHost != "" {
		// Public endpoints only; no credentials needed.
		prices = binance.NewClient(a.cfg.Exchange.RestHost, nil)
	}
	placer := executor.NewPaperPlacer(
		a.cfg.Trading.BaseAsset, a.cfg.Trading.PaperBaseBalance,
		a.cfg.Trading.QuoteAsset, a.cfg.Trading.PaperQuoteBalance,
		prices, a.logger,
	)

	return a.runTrading(ctx, deps, placer, placer)
}

// MonitorMode runs the feed and decision loop without an execution adapter.
// Every order request is answered with a failed outcome so the session never
// opens a position; the decisions still land in the audit trail and metrics.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	msgCh := make(chan []byte, 256)
	reqCh := make(chan domain.OrderRequest, 1)
	outCh := make(chan domain.OrderOutcome, 1)

	tr, err := a.buildTrader(ctx, deps, msgCh, reqCh, outCh)
	if err != nil {
		return fmt.Errorf("monitor mode: %w", err)
	}

	wsFeed := feed.NewBinanceWSFeed(
		a.cfg.Exchange.WsHost, a.cfg.Trading.Symbol, a.cfg.Trading.Interval, msgCh, a.logger,
	)
	g.Go(func() error {
		return wsFeed.Run(ctx)
	})
	g.Go(func() error {
		return tr.Run(ctx)
	})

	// Observe order requests without placing anything.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case req := <-reqCh:
				a.logger.InfoContext(ctx, "order suppressed in monitor mode",
					slog.String("order_id", req.ID),
					slog.String("side", string(req.Side)),
					slog.Float64("price", req.ExpectedPrice),
				)
				out := domain.OrderOutcome{
					Request:  req,
					Err:      "monitor mode: orders are not placed",
					PlacedAt: time.Now().UTC(),
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case outCh <- out:
				}
			}
		}
	})

	a.startObservers(ctx, g, deps)
	a.notifyStartup(ctx, deps)
	defer a.notifyShutdown(deps)

	return g.Wait()
}

// runTrading wires the shared feed -> trader -> executor pipeline and blocks
// until a component fails or the context is cancelled.
func (a *App) runTrading(ctx context.Context, deps *Dependencies, placer executor.OrderPlacer, account executor.AccountReader) error {
	g, ctx := errgroup.WithContext(ctx)

	// reqCh and outCh carry at most one in-flight order between the trading
	// loop and the executor.
	msgCh := make(chan []byte, 256)
	reqCh := make(chan domain.OrderRequest, 1)
	outCh := make(chan domain.OrderOutcome, 1)

	tr, err := a.buildTrader(ctx, deps, msgCh, reqCh, outCh)
	if err != nil {
		return err
	}

	var recorder executor.OrderRecorder
	if deps.AuditLog != nil {
		recorder = deps.AuditLog
	}
	exec := executor.New(
		executor.Config{
			Symbol:         a.cfg.Trading.Symbol,
			BaseAsset:      a.cfg.Trading.BaseAsset,
			QuoteAsset:     a.cfg.Trading.QuoteAsset,
			QuoteUSDSymbol: a.cfg.Trading.QuoteUSDSymbol,
		},
		reqCh, outCh, placer, account, recorder, deps.Orders, deps.Notifier,
		tr.SessionID(), a.logger,
	)

	wsFeed := feed.NewBinanceWSFeed(
		a.cfg.Exchange.WsHost, a.cfg.Trading.Symbol, a.cfg.Trading.Interval, msgCh, a.logger,
	)

	g.Go(func() error {
		return wsFeed.Run(ctx)
	})
	g.Go(func() error {
		return tr.Run(ctx)
	})
	g.Go(func() error {
		return exec.Run(ctx)
	})

	a.startObservers(ctx, g, deps)
	a.notifyStartup(ctx, deps)
	defer a.notifyShutdown(deps)

	return g.Wait()
}

// buildTrader constructs the strategy and the trading loop, restoring any
// persisted session snapshot before it starts.
func (a *App) buildTrader(
	ctx context.Context,
	deps *Dependencies,
	msgCh chan []byte,
	reqCh chan domain.OrderRequest,
	outCh chan domain.OrderOutcome,
) (*trader.Trader, error) {
	strat, err := strategy.DefaultRegistry().Build(a.cfg.Strategy.Name, strategy.Config{
		RSIPeriod:   a.cfg.Strategy.RSIPeriod,
		Overbought:  a.cfg.Strategy.Overbought,
		Oversold:    a.cfg.Strategy.Oversold,
		ModelPath:   a.cfg.Strategy.ModelPath,
		BuyPercent:  a.cfg.Strategy.BuyPercent,
		SellPercent: a.cfg.Strategy.SellPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("build strategy: %w", err)
	}

	var recorder trader.CandleRecorder
	if deps.AuditLog != nil {
		recorder = deps.AuditLog
	}
	tr := trader.New(
		trader.SessionConfig{
			Symbol:            a.cfg.Trading.Symbol,
			Quantity:          a.cfg.Trading.Quantity,
			StopLossThreshold: a.cfg.Trading.StopLossThreshold,
			TrailingStop:      a.cfg.Trading.TrailingStop,
			CooldownCandles:   a.cfg.Trading.CooldownCandles,
		},
		strat, msgCh, reqCh, outCh, recorder,
		trader.Stores{
			Candles:   deps.Candles,
			Decisions: deps.Decisions,
			Snapshots: deps.Snapshots,
		},
		a.logger,
	)

	if err := tr.Restore(ctx); err != nil {
		a.logger.WarnContext(ctx, "session restore failed, starting fresh",
			slog.String("error", err.Error()),
		)
	}
	return tr, nil
}

// startObservers adds the metrics endpoint and the archiver loop to the given
// errgroup when they are enabled.
func (a *App) startObservers(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if a.cfg.Metrics.Enabled {
		srv := metrics.Serve(a.cfg.Metrics.Addr)
		a.logger.InfoContext(ctx, "metrics endpoint listening",
			slog.String("addr", a.cfg.Metrics.Addr),
		)
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	if deps.Archiver != nil {
		retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
		interval := a.cfg.Archive.Interval.Duration
		g.Go(func() error {
			return deps.Archiver.Run(ctx, interval, retention)
		})
	}
}

func (a *App) notifyStartup(ctx context.Context, deps *Dependencies) {
	err := deps.Notifier.Notify(ctx, notify.EventStartup, "Bot started",
		fmt.Sprintf("mode=%s symbol=%s strategy=%s",
			a.cfg.Mode, a.cfg.Trading.Symbol, a.cfg.Strategy.Name),
	)
	if err != nil {
		a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
	}
}

func (a *App) notifyShutdown(deps *Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := deps.Notifier.Notify(ctx, notify.EventShutdown, "Bot stopped",
		fmt.Sprintf("mode=%s symbol=%s", a.cfg.Mode, a.cfg.Trading.Symbol),
	)
	if err != nil {
		a.logger.Warn("shutdown notification failed", slog.String("error", err.Error()))
	}
}
