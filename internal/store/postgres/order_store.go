package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minutebar/candlebot/internal/domain"
)

// OrderStore implements domain.OrderStore.
type OrderStore struct {
	pool *pgxpool.Pool
}

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Insert stores one order attempt, keyed by the client-side request ID.
// Fill and balance columns stay NULL when enrichment was not collected.
func (s *OrderStore) Insert(ctx context.Context, sessionID string, o domain.OrderOutcome) error {
	var fillPrice, fillQty, fillCommission *float64
	if o.Fill != nil {
		fillPrice = &o.Fill.Price
		fillQty = &o.Fill.Quantity
		fillCommission = &o.Fill.Commission
	}
	var baseFree, quoteFree, totalUSD, totalQuote *float64
	if o.Balances != nil {
		baseFree = &o.Balances.BaseFree
		quoteFree = &o.Balances.QuoteFree
		totalUSD = &o.Balances.TotalUSD
		totalQuote = &o.Balances.TotalQuote
	}

	const query = `
		INSERT INTO orders (
			id, session_id, symbol, side, order_type,
			quantity, expected_price, candle_index, stop_loss,
			succeeded, exchange_order_id,
			fill_price, fill_quantity, fill_commission,
			base_free, quote_free, total_usd, total_quote,
			error, requested_at, placed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14,
			$15, $16, $17, $18,
			$19, $20, $21
		) ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		o.Request.ID, sessionID, o.Request.Symbol, string(o.Request.Side), string(o.Request.Type),
		o.Request.Quantity, o.Request.ExpectedPrice, o.Request.CandleIndex, o.Request.StopLoss,
		o.Succeeded, o.OrderID,
		fillPrice, fillQty, fillCommission,
		baseFree, quoteFree, totalUSD, totalQuote,
		o.Err, o.Request.RequestedAt, o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

// ListBefore returns order attempts placed strictly before cutoff, oldest first.
func (s *OrderStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OrderOutcome, error) {
	const query = `
		SELECT id, symbol, side, order_type,
			quantity, expected_price, candle_index, stop_loss,
			succeeded, exchange_order_id,
			fill_price, fill_quantity, fill_commission,
			base_free, quote_free, total_usd, total_quote,
			error, requested_at, placed_at
		FROM orders
		WHERE placed_at < $1
		ORDER BY placed_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders before: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// DeleteBefore removes order attempts older than cutoff.
func (s *OrderStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE placed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete orders before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOrders(rows pgx.Rows) ([]domain.OrderOutcome, error) {
	var outcomes []domain.OrderOutcome
	for rows.Next() {
		var (
			o            domain.OrderOutcome
			side, typ    string
			fillPrice    *float64
			fillQty      *float64
			fillComm     *float64
			baseFree     *float64
			quoteFree    *float64
			totalUSD     *float64
			totalQuote   *float64
		)
		if err := rows.Scan(
			&o.Request.ID, &o.Request.Symbol, &side, &typ,
			&o.Request.Quantity, &o.Request.ExpectedPrice, &o.Request.CandleIndex, &o.Request.StopLoss,
			&o.Succeeded, &o.OrderID,
			&fillPrice, &fillQty, &fillComm,
			&baseFree, &quoteFree, &totalUSD, &totalQuote,
			&o.Err, &o.Request.RequestedAt, &o.PlacedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		o.Request.Side = domain.OrderSide(side)
		o.Request.Type = domain.OrderType(typ)
		if fillPrice != nil {
			o.Fill = &domain.Fill{Price: *fillPrice}
			if fillQty != nil {
				o.Fill.Quantity = *fillQty
			}
			if fillComm != nil {
				o.Fill.Commission = *fillComm
			}
		}
		if baseFree != nil || quoteFree != nil || totalUSD != nil || totalQuote != nil {
			o.Balances = &domain.BalanceSnapshot{}
			if baseFree != nil {
				o.Balances.BaseFree = *baseFree
			}
			if quoteFree != nil {
				o.Balances.QuoteFree = *quoteFree
			}
			if totalUSD != nil {
				o.Balances.TotalUSD = *totalUSD
			}
			if totalQuote != nil {
				o.Balances.TotalQuote = *totalQuote
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

var _ domain.OrderStore = (*OrderStore)(nil)
