package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/minutebar/candlebot/internal/domain"
	"github.com/minutebar/candlebot/internal/platform/binance"
)

// ExchangePlacer places real orders through the exchange REST client.
type ExchangePlacer struct {
	client *binance.Client
}

func NewExchangePlacer(client *binance.Client) *ExchangePlacer {
	return &ExchangePlacer{client: client}
}

func (p *ExchangePlacer) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	return p.client.CreateOrder(ctx, req.Symbol, req.Side, req.Type, req.Quantity)
}

// PaperPlacer simulates fills at the expected price without touching the
// exchange. It also acts as an AccountReader over an in-memory balance book,
// priced through an optional real price source.
type PaperPlacer struct {
	mu       sync.Mutex
	balances map[string]float64

	baseAsset  string
	quoteAsset string
	prices     PriceSource // optional, for AvgPrice passthrough
	logger     *slog.Logger
}

// PriceSource supplies live prices for valuing the simulated account.
type PriceSource interface {
	AvgPrice(ctx context.Context, symbol string) (float64, error)
}

// NewPaperPlacer seeds the simulated account with the given free balances.
// prices may be nil, in which case AvgPrice reports the last simulated fill
// price per symbol is unavailable and returns zero without error.
func NewPaperPlacer(baseAsset string, baseFree float64, quoteAsset string, quoteFree float64, prices PriceSource, logger *slog.Logger) *PaperPlacer {
	return &PaperPlacer{
		balances:   map[string]float64{baseAsset: baseFree, quoteAsset: quoteFree},
		baseAsset:  baseAsset,
		quoteAsset: quoteAsset,
		prices:     prices,
		logger:     logger.With(slog.String("component", "paper")),
	}
}

func (p *PaperPlacer) PlaceOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cost := req.Quantity * req.ExpectedPrice
	switch req.Side {
	case domain.OrderSideBuy:
		if p.balances[p.quoteAsset] < cost {
			return domain.OrderAck{}, domain.ErrOrderRejected
		}
		p.balances[p.quoteAsset] -= cost
		p.balances[p.baseAsset] += req.Quantity
	case domain.OrderSideSell:
		if p.balances[p.baseAsset] < req.Quantity {
			return domain.OrderAck{}, domain.ErrOrderRejected
		}
		p.balances[p.baseAsset] -= req.Quantity
		p.balances[p.quoteAsset] += cost
	}

	ack := domain.OrderAck{
		OrderID: "paper-" + uuid.New().String(),
		Fills:   []domain.Fill{{Price: req.ExpectedPrice, Quantity: req.Quantity}},
	}
	p.logger.Info("simulated fill",
		slog.String("side", string(req.Side)),
		slog.Float64("price", req.ExpectedPrice),
		slog.Float64("quantity", req.Quantity),
	)
	return ack, nil
}

func (p *PaperPlacer) FreeBalance(ctx context.Context, asset string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[asset], nil
}

func (p *PaperPlacer) AvgPrice(ctx context.Context, symbol string) (float64, error) {
	if p.prices == nil {
		return 0, nil
	}
	return p.prices.AvgPrice(ctx, symbol)
}

var (
	_ OrderPlacer   = (*ExchangePlacer)(nil)
	_ OrderPlacer   = (*PaperPlacer)(nil)
	_ AccountReader = (*PaperPlacer)(nil)
)
