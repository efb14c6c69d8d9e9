// Package executor turns order requests from the trading loop into exchange
// calls and reports every attempt back as an outcome. It runs on its own
// goroutine so that order latency never blocks candle aggregation.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
	"github.com/minutebar/candlebot/internal/metrics"
	"github.com/minutebar/candlebot/internal/notify"
)

// OrderPlacer submits one order to the exchange (or to a simulator).
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error)
}

// AccountReader supplies the post-trade balance lookups used to enrich the
// audit trail. Implementations are queried best-effort after a confirmed
// order; failures never affect the order itself.
type AccountReader interface {
	FreeBalance(ctx context.Context, asset string) (float64, error)
	AvgPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderRecorder appends an order row to the audit log.
type OrderRecorder interface {
	RecordOrder(out domain.OrderOutcome) error
}

// Config identifies the traded pair for balance snapshots. QuoteUSDSymbol is
// the pair used to value the quote asset in USD (e.g. "BTCUSDT"); empty means
// the quote asset is treated as USD-equivalent.
type Config struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	QuoteUSDSymbol string
}

// Executor consumes order requests from reqCh, places each exactly once, and
// publishes the outcome on outCh. There is no internal retry: the next candle
// decision is the retry mechanism.
type Executor struct {
	cfg       Config
	reqCh     <-chan domain.OrderRequest
	outCh     chan<- domain.OrderOutcome
	placer    OrderPlacer
	account   AccountReader // optional
	recorder  OrderRecorder // optional
	orders    domain.OrderStore
	notifier  *notify.Notifier
	sessionID string
	logger    *slog.Logger
}

// New creates an Executor. account, recorder, orders, and notifier may be nil;
// the corresponding enrichment step is skipped.
func New(
	cfg Config,
	reqCh <-chan domain.OrderRequest,
	outCh chan<- domain.OrderOutcome,
	placer OrderPlacer,
	account AccountReader,
	recorder OrderRecorder,
	orders domain.OrderStore,
	notifier *notify.Notifier,
	sessionID string,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		cfg:       cfg,
		reqCh:     reqCh,
		outCh:     outCh,
		placer:    placer,
		account:   account,
		recorder:  recorder,
		orders:    orders,
		notifier:  notifier,
		sessionID: sessionID,
		logger:    logger.With(slog.String("component", "executor"), slog.String("symbol", cfg.Symbol)),
	}
}

// Run processes order requests until the context is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor started")
	defer e.logger.Info("executor stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-e.reqCh:
			if !ok {
				return nil
			}
			out := e.process(ctx, req)
			select {
			case e.outCh <- out:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// process places one order and assembles the outcome, including best-effort
// fill and balance detail for confirmed orders.
func (e *Executor) process(ctx context.Context, req domain.OrderRequest) domain.OrderOutcome {
	log := e.logger.With(
		slog.String("id", req.ID),
		slog.String("side", string(req.Side)),
		slog.Float64("quantity", req.Quantity),
		slog.Float64("expected_price", req.ExpectedPrice),
	)

	out := domain.OrderOutcome{Request: req, PlacedAt: time.Now().UTC()}

	ack, err := e.placer.PlaceOrder(ctx, req)
	if err != nil {
		out.Err = err.Error()
		log.Error("order placement failed", slog.String("error", out.Err))
		metrics.OrdersTotal.WithLabelValues(e.cfg.Symbol, string(req.Side), "failed").Inc()
		e.notify(ctx, notify.EventOrderFailed, "Order failed",
			fmt.Sprintf("%s %s: %s", req.Symbol, req.Side, out.Err))
		e.persist(ctx, out)
		return out
	}

	out.Succeeded = true
	out.OrderID = ack.OrderID
	if len(ack.Fills) > 0 {
		// First fill only, matching the single-row audit format. Multi-fill
		// market orders are rare at the quantities this bot trades.
		f := ack.Fills[0]
		out.Fill = &f
	} else {
		log.Warn("order confirmed without fill detail", slog.String("order_id", ack.OrderID))
	}
	out.Balances = e.collectBalances(ctx, log)

	log.Info("order placed", slog.String("order_id", ack.OrderID))
	metrics.OrdersTotal.WithLabelValues(e.cfg.Symbol, string(req.Side), "ok").Inc()

	event := notify.EventOrderFilled
	title := "Order filled"
	if req.StopLoss {
		event = notify.EventStopLoss
		title = "Stop-loss triggered"
	}
	e.notify(ctx, event, title, fillSummary(out))

	e.persist(ctx, out)
	return out
}

// collectBalances gathers the post-trade balance snapshot. Each lookup fails
// independently: a missing value is logged and left at zero, and totals are
// only computed from values that were actually obtained.
func (e *Executor) collectBalances(ctx context.Context, log *slog.Logger) *domain.BalanceSnapshot {
	if e.account == nil {
		return nil
	}
	snap := &domain.BalanceSnapshot{}

	baseOK, quoteOK := true, true
	base, err := e.account.FreeBalance(ctx, e.cfg.BaseAsset)
	if err != nil {
		baseOK = false
		log.Warn("base balance lookup failed", slog.String("asset", e.cfg.BaseAsset), slog.String("error", err.Error()))
	} else {
		snap.BaseFree = base
	}
	quote, err := e.account.FreeBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		quoteOK = false
		log.Warn("quote balance lookup failed", slog.String("asset", e.cfg.QuoteAsset), slog.String("error", err.Error()))
	} else {
		snap.QuoteFree = quote
	}

	if baseOK && quoteOK {
		price, err := e.account.AvgPrice(ctx, e.cfg.Symbol)
		if err != nil {
			log.Warn("avg price lookup failed", slog.String("symbol", e.cfg.Symbol), slog.String("error", err.Error()))
		} else {
			snap.TotalQuote = snap.QuoteFree + snap.BaseFree*price
			snap.TotalUSD = snap.TotalQuote
			if e.cfg.QuoteUSDSymbol != "" {
				usd, err := e.account.AvgPrice(ctx, e.cfg.QuoteUSDSymbol)
				if err != nil {
					log.Warn("quote USD price lookup failed", slog.String("symbol", e.cfg.QuoteUSDSymbol), slog.String("error", err.Error()))
					snap.TotalUSD = 0
				} else {
					snap.TotalUSD = snap.TotalQuote * usd
				}
			}
		}
	}
	return snap
}

// persist writes the outcome to the audit log and the order store. Both are
// best-effort sinks: a write failure is logged and the outcome still reaches
// the trading loop.
func (e *Executor) persist(ctx context.Context, out domain.OrderOutcome) {
	if e.recorder != nil {
		if err := e.recorder.RecordOrder(out); err != nil {
			e.logger.Warn("audit order row failed", slog.String("error", err.Error()))
		}
	}
	if e.orders != nil {
		if err := e.orders.Insert(ctx, e.sessionID, out); err != nil {
			e.logger.Warn("order insert failed", slog.String("error", err.Error()))
		}
	}
}

func (e *Executor) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.Warn("notification failed", slog.String("error", err.Error()))
	}
}

func fillSummary(out domain.OrderOutcome) string {
	if out.Fill != nil {
		return fmt.Sprintf("%s %s id=%s @ %g", out.Request.Symbol, out.Request.Side, out.OrderID, out.Fill.Price)
	}
	return fmt.Sprintf("%s %s id=%s", out.Request.Symbol, out.Request.Side, out.OrderID)
}
