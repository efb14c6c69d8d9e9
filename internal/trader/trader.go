package trader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/minutebar/candlebot/internal/domain"
	"github.com/minutebar/candlebot/internal/feed"
	"github.com/minutebar/candlebot/internal/metrics"
	"github.com/minutebar/candlebot/internal/strategy"
)

// CandleRecorder appends one audit row per closed candle.
type CandleRecorder interface {
	RecordCandle(c domain.Candle, action domain.DecisionAction) error
}

// Stores bundles the optional persistence hooks of the trading loop. Any nil
// field is skipped; persistence failures are logged and never stall trading.
type Stores struct {
	Candles   domain.CandleStore
	Decisions domain.DecisionStore
	Snapshots domain.SnapshotCache
}

// Trader is the single consumer of the market data stream for one symbol. It
// owns the ingester, price history, and session state machine; all mutations
// happen on the Run goroutine, which makes the in-order, one-decision-per-
// candle guarantee an explicit contract.
//
// Order execution is handed off through a channel so candle aggregation keeps
// running while an order is in flight; while one is, candle closes are
// recorded but no new decision is made until the outcome arrives.
type Trader struct {
	cfg       SessionConfig
	sessionID string

	msgCh <-chan []byte
	reqCh chan<- domain.OrderRequest
	outCh <-chan domain.OrderOutcome

	ingester *feed.Ingester
	history  *domain.PriceHistory
	session  *Session
	strat    strategy.Strategy

	audit  CandleRecorder
	stores Stores

	pending *domain.OrderRequest
	logger  *slog.Logger
}

// New creates a Trader. The history retention window is sized from the
// strategy's required lookback. msgCh delivers raw feed messages in arrival
// order; reqCh/outCh connect the trader to the execution adapter.
func New(
	cfg SessionConfig,
	strat strategy.Strategy,
	msgCh <-chan []byte,
	reqCh chan<- domain.OrderRequest,
	outCh <-chan domain.OrderOutcome,
	audit CandleRecorder,
	stores Stores,
	logger *slog.Logger,
) *Trader {
	return &Trader{
		cfg:       cfg,
		sessionID: uuid.New().String(),
		msgCh:     msgCh,
		reqCh:     reqCh,
		outCh:     outCh,
		ingester:  feed.NewIngester(logger),
		history:   domain.NewPriceHistory(strat.RequiredLookback()),
		session:   NewSession(cfg),
		strat:     strat,
		audit:     audit,
		stores:    stores,
		logger:    logger.With(slog.String("component", "trader"), slog.String("symbol", cfg.Symbol)),
	}
}

// SessionID returns the identifier correlating this session's audit records.
func (t *Trader) SessionID() string { return t.sessionID }

// Restore loads the last saved snapshot, if any, so position and cooldown
// state survive a restart. Missing snapshots are not an error.
func (t *Trader) Restore(ctx context.Context) error {
	if t.stores.Snapshots == nil {
		return nil
	}
	snap, err := t.stores.Snapshots.Load(ctx, t.cfg.Symbol)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil
		}
		return fmt.Errorf("trader: load snapshot: %w", err)
	}
	t.session.Restore(snap)
	for _, c := range snap.Candles {
		t.history.Append(c)
	}
	t.logger.Info("session state restored",
		slog.String("status", string(snap.Position.Status)),
		slog.Int("candle_index", snap.CandleIndex),
		slog.Int("candles", len(snap.Candles)),
		slog.Time("saved_at", snap.SavedAt),
	)
	return nil
}

// Run processes messages and order outcomes until ctx is cancelled. Message
// handling errors are logged and never propagate: the loop is expected to run
// indefinitely against a persistent feed.
func (t *Trader) Run(ctx context.Context) error {
	t.logger.Info("trading loop started",
		slog.String("session_id", t.sessionID),
		slog.String("strategy", t.strat.Name()),
		slog.Int("lookback", t.strat.RequiredLookback()),
	)
	defer t.logger.Info("trading loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-t.outCh:
			t.handleOutcome(ctx, out)
		case raw := <-t.msgCh:
			t.handleMessage(ctx, raw)
		}
	}
}

// handleMessage feeds one raw message through the ingester and, on minute
// rollover, runs the candle-close path.
func (t *Trader) handleMessage(ctx context.Context, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("panic in message processing", slog.Any("panic", r))
		}
	}()

	tick, closed, err := t.ingester.Observe(raw)
	if err != nil {
		metrics.FeedErrors.WithLabelValues(t.cfg.Symbol).Inc()
		t.logger.Warn("dropping malformed feed message", slog.String("error", err.Error()))
		return
	}
	metrics.TicksTotal.WithLabelValues(t.cfg.Symbol).Inc()
	metrics.LastPrice.WithLabelValues(t.cfg.Symbol).Set(tick.Close)

	if closed == nil {
		return
	}
	t.handleCandleClose(ctx, *closed)
}

// handleCandleClose appends the candle, makes at most one decision for it,
// and hands any resulting order to the execution adapter.
func (t *Trader) handleCandleClose(ctx context.Context, c domain.Candle) {
	if !t.history.Append(c) {
		// Replayed minute: the candle was already closed and decided once.
		t.logger.Debug("ignoring replayed candle", slog.Time("minute", c.Minute))
		return
	}
	index := t.session.Advance(c.Close)
	metrics.CandlesTotal.WithLabelValues(t.cfg.Symbol).Inc()

	decision := domain.Decision{
		Symbol:      t.cfg.Symbol,
		CandleIndex: index,
		Candle:      c,
		DecidedAt:   time.Now().UTC(),
	}

	if t.pending != nil {
		// An order is still in flight: aggregation continues, but the
		// decision for this candle is forfeited to keep at most one order
		// attempt outstanding.
		decision.Deferred = true
		t.logger.Info("order in flight, deferring decision",
			slog.Time("minute", c.Minute),
			slog.String("pending_id", t.pending.ID),
		)
	} else {
		decision.Signal = t.strat.ComputeSignal(t.history.Closes(), t.session.Position())
		intent := t.session.Decide(decision.Signal, c.Close)
		decision.Action = intent.Action
		decision.StopLoss = intent.StopLoss

		if intent.Action != domain.DecisionNone {
			req := t.buildRequest(intent, c, index)
			t.pending = &req
			select {
			case t.reqCh <- req:
				t.logger.Info("order request dispatched",
					slog.String("id", req.ID),
					slog.String("side", string(req.Side)),
					slog.Float64("expected_price", req.ExpectedPrice),
					slog.Bool("stop_loss", req.StopLoss),
				)
			case <-ctx.Done():
				t.pending = nil
				return
			}
		}
	}

	metrics.DecisionsTotal.WithLabelValues(t.cfg.Symbol, decisionLabel(decision)).Inc()
	t.recordCandle(ctx, decision)
	t.saveSnapshot(ctx)
}

// buildRequest turns an intent into a one-shot order request.
func (t *Trader) buildRequest(intent Intent, c domain.Candle, index int) domain.OrderRequest {
	side := domain.OrderSideBuy
	if intent.Action == domain.DecisionSell {
		side = domain.OrderSideSell
	}
	return domain.OrderRequest{
		ID:            uuid.New().String(),
		Symbol:        t.cfg.Symbol,
		Side:          side,
		Type:          domain.OrderTypeMarket,
		Quantity:      t.cfg.Quantity,
		ExpectedPrice: c.Close,
		CandleIndex:   index,
		StopLoss:      intent.StopLoss,
		RequestedAt:   time.Now().UTC(),
	}
}

// handleOutcome applies the resolved order attempt to the session.
func (t *Trader) handleOutcome(ctx context.Context, out domain.OrderOutcome) {
	if t.pending == nil || t.pending.ID != out.Request.ID {
		t.logger.Warn("outcome for unknown order", slog.String("id", out.Request.ID))
		return
	}
	t.pending = nil
	t.session.Commit(out)

	if out.Succeeded {
		t.logger.Info("position updated",
			slog.String("side", string(out.Request.Side)),
			slog.String("status", string(t.session.Position().Status)),
			slog.Bool("stop_loss", out.Request.StopLoss),
		)
	} else {
		t.logger.Warn("order attempt failed, position unchanged",
			slog.String("side", string(out.Request.Side)),
			slog.String("error", out.Err),
		)
	}
	metrics.SetPositionStatus(t.cfg.Symbol, t.session.Position().IsLong())
	t.saveSnapshot(ctx)
}

// recordCandle writes the per-candle audit row and persists the candle and
// decision. All sinks are best-effort.
func (t *Trader) recordCandle(ctx context.Context, d domain.Decision) {
	if t.audit != nil {
		if err := t.audit.RecordCandle(d.Candle, d.Action); err != nil {
			t.logger.Warn("audit candle row failed", slog.String("error", err.Error()))
		}
	}
	if t.stores.Candles != nil {
		if err := t.stores.Candles.Insert(ctx, t.cfg.Symbol, d.Candle); err != nil {
			t.logger.Warn("candle insert failed", slog.String("error", err.Error()))
		}
	}
	if t.stores.Decisions != nil {
		if err := t.stores.Decisions.Insert(ctx, t.sessionID, d); err != nil {
			t.logger.Warn("decision insert failed", slog.String("error", err.Error()))
		}
	}
}

// saveSnapshot persists the restartable session state, best-effort.
func (t *Trader) saveSnapshot(ctx context.Context) {
	if t.stores.Snapshots == nil {
		return
	}
	snap := t.session.Snapshot(t.sessionID, t.history.Candles())
	if err := t.stores.Snapshots.Save(ctx, snap); err != nil {
		t.logger.Warn("snapshot save failed", slog.String("error", err.Error()))
	}
}

func decisionLabel(d domain.Decision) string {
	switch {
	case d.Deferred:
		return "deferred"
	case d.Action == domain.DecisionNone:
		return "none"
	default:
		return string(d.Action)
	}
}
