package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minutebar/candlebot/internal/domain"
)

// CandleStore implements domain.CandleStore.
type CandleStore struct {
	pool *pgxpool.Pool
}

func NewCandleStore(pool *pgxpool.Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

// Insert stores one closed candle. Re-inserting the same (symbol, minute) is
// a silent no-op so feed replays after a restore cannot duplicate rows.
func (s *CandleStore) Insert(ctx context.Context, symbol string, c domain.Candle) error {
	const query = `
		INSERT INTO candles (symbol, minute, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol, minute) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, symbol, c.Minute, c.Close); err != nil {
		return fmt.Errorf("postgres: insert candle: %w", err)
	}
	return nil
}

// ListRecent returns up to limit candles for symbol, oldest first.
func (s *CandleStore) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	const query = `
		SELECT minute, close FROM (
			SELECT minute, close FROM candles
			WHERE symbol = $1
			ORDER BY minute DESC
			LIMIT $2
		) recent
		ORDER BY minute ASC`
	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent candles: %w", err)
	}
	defer rows.Close()
	return scanCandles(rows)
}

// ListBefore returns all candles closed strictly before cutoff, oldest first.
func (s *CandleStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Candle, error) {
	const query = `
		SELECT minute, close FROM candles
		WHERE minute < $1
		ORDER BY minute ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list candles before: %w", err)
	}
	defer rows.Close()
	return scanCandles(rows)
}

// DeleteBefore removes candles older than cutoff, returning the rows removed.
func (s *CandleStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM candles WHERE minute < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete candles before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCandles(rows pgx.Rows) ([]domain.Candle, error) {
	var candles []domain.Candle
	for rows.Next() {
		var c domain.Candle
		if err := rows.Scan(&c.Minute, &c.Close); err != nil {
			return nil, fmt.Errorf("postgres: scan candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

var _ domain.CandleStore = (*CandleStore)(nil)
