package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minutebar/candlebot/internal/domain"
)

// DecisionStore implements domain.DecisionStore.
type DecisionStore struct {
	pool *pgxpool.Pool
}

func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

// Insert stores one per-candle decision. A decision is immutable once made,
// so replays of the same (session, candle index) are silently skipped.
func (s *DecisionStore) Insert(ctx context.Context, sessionID string, d domain.Decision) error {
	const query = `
		INSERT INTO decisions (
			session_id, candle_index, symbol, minute, close,
			signal, action, stop_loss, deferred, decided_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, candle_index) DO NOTHING`
	_, err := s.pool.Exec(ctx, query,
		sessionID, d.CandleIndex, d.Symbol, d.Candle.Minute, d.Candle.Close,
		d.Signal.String(), string(d.Action), d.StopLoss, d.Deferred, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision: %w", err)
	}
	return nil
}

// ListBefore returns decisions for candles strictly before cutoff, oldest first.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Decision, error) {
	const query = `
		SELECT candle_index, symbol, minute, close,
			signal, action, stop_loss, deferred, decided_at
		FROM decisions
		WHERE minute < $1
		ORDER BY minute ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions before: %w", err)
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// DeleteBefore removes decisions older than cutoff.
func (s *DecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM decisions WHERE minute < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete decisions before: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanDecisions(rows pgx.Rows) ([]domain.Decision, error) {
	var decisions []domain.Decision
	for rows.Next() {
		var (
			d      domain.Decision
			signal string
			action string
		)
		if err := rows.Scan(
			&d.CandleIndex, &d.Symbol, &d.Candle.Minute, &d.Candle.Close,
			&signal, &action, &d.StopLoss, &d.Deferred, &d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		d.Signal = domain.ParseSignal(signal)
		d.Action = domain.DecisionAction(action)
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

var _ domain.DecisionStore = (*DecisionStore)(nil)
