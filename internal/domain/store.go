package domain

import (
	"context"
	"io"
	"time"
)

// CandleStore persists closed candles.
type CandleStore interface {
	// Insert stores a closed candle. Inserting the same (symbol, minute)
	// twice is a silent no-op.
	Insert(ctx context.Context, symbol string, c Candle) error
	// ListRecent returns up to limit candles for symbol, newest last.
	ListRecent(ctx context.Context, symbol string, limit int) ([]Candle, error)
	// ListBefore returns all candles with a minute strictly before cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]Candle, error)
	// DeleteBefore removes candles older than cutoff after archival.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// DecisionStore persists the per-candle trading decisions.
type DecisionStore interface {
	Insert(ctx context.Context, sessionID string, d Decision) error
	ListBefore(ctx context.Context, before time.Time) ([]Decision, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// OrderStore persists order outcomes.
type OrderStore interface {
	Insert(ctx context.Context, sessionID string, o OrderOutcome) error
	ListBefore(ctx context.Context, before time.Time) ([]OrderOutcome, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SessionSnapshot is the restartable subset of the trading session state:
// position, candle index, and the retained close history.
type SessionSnapshot struct {
	Symbol      string    `json:"symbol"`
	SessionID   string    `json:"session_id"`
	Position    Position  `json:"position"`
	CandleIndex int       `json:"candle_index"`
	Candles     []Candle  `json:"candles"`
	SavedAt     time.Time `json:"saved_at"`
}

// SnapshotCache stores and restores session snapshots across restarts.
type SnapshotCache interface {
	Save(ctx context.Context, snap SessionSnapshot) error
	// Load returns ErrNotFound when no snapshot exists for the symbol.
	Load(ctx context.Context, symbol string) (SessionSnapshot, error)
	Delete(ctx context.Context, symbol string) error
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged rows out of the primary store into blob storage.
type Archiver interface {
	// ArchiveBefore archives all records older than cutoff and returns the
	// number of records written.
	ArchiveBefore(ctx context.Context, before time.Time) (int, error)
}
