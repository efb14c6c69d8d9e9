package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

// Archiver implements domain.Archiver: aged candles, decisions, and order
// outcomes are serialized to JSONL, uploaded to the object store, and only
// then deleted from the primary store. A failed upload leaves the rows in
// place for the next run.
type Archiver struct {
	writer    domain.BlobWriter
	candles   domain.CandleStore
	decisions domain.DecisionStore
	orders    domain.OrderStore
	logger    *slog.Logger
}

func NewArchiver(
	writer domain.BlobWriter,
	candles domain.CandleStore,
	decisions domain.DecisionStore,
	orders domain.OrderStore,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:    writer,
		candles:   candles,
		decisions: decisions,
		orders:    orders,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveBefore archives all records older than cutoff and returns the total
// number of records written. Each record kind is archived independently so a
// failure in one does not block the others.
func (a *Archiver) ArchiveBefore(ctx context.Context, before time.Time) (int, error) {
	total := 0
	var firstErr error

	kinds := []struct {
		name    string
		archive func(context.Context, time.Time) (int, error)
	}{
		{"candles", a.archiveCandles},
		{"decisions", a.archiveDecisions},
		{"orders", a.archiveOrders},
	}
	for _, k := range kinds {
		n, err := k.archive(ctx, before)
		if err != nil {
			a.logger.Error("archive kind failed",
				slog.String("kind", k.name),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			a.logger.Info("records archived",
				slog.String("kind", k.name),
				slog.Int("count", n),
				slog.Time("before", before),
			)
		}
		total += n
	}
	return total, firstErr
}

// Run archives on a fixed interval, keeping retention worth of recent data in
// the primary store.
func (a *Archiver) Run(ctx context.Context, interval, retention time.Duration) error {
	a.logger.Info("archiver started",
		slog.Duration("interval", interval),
		slog.Duration("retention", retention),
	)
	defer a.logger.Info("archiver stopped")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveBefore(ctx, time.Now().UTC().Add(-retention)); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *Archiver) archiveCandles(ctx context.Context, before time.Time) (int, error) {
	rows, err := a.candles.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list candles: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := upload(ctx, a.writer, "candles", before, rows); err != nil {
		return 0, err
	}
	if _, err := a.candles.DeleteBefore(ctx, before); err != nil {
		return len(rows), fmt.Errorf("s3blob: delete archived candles: %w", err)
	}
	return len(rows), nil
}

func (a *Archiver) archiveDecisions(ctx context.Context, before time.Time) (int, error) {
	rows, err := a.decisions.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list decisions: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := upload(ctx, a.writer, "decisions", before, rows); err != nil {
		return 0, err
	}
	if _, err := a.decisions.DeleteBefore(ctx, before); err != nil {
		return len(rows), fmt.Errorf("s3blob: delete archived decisions: %w", err)
	}
	return len(rows), nil
}

func (a *Archiver) archiveOrders(ctx context.Context, before time.Time) (int, error) {
	rows, err := a.orders.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list orders: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := upload(ctx, a.writer, "orders", before, rows); err != nil {
		return 0, err
	}
	if _, err := a.orders.DeleteBefore(ctx, before); err != nil {
		return len(rows), fmt.Errorf("s3blob: delete archived orders: %w", err)
	}
	return len(rows), nil
}

func upload[T any](ctx context.Context, writer domain.BlobWriter, kind string, before time.Time, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("s3blob: marshal %s: %w", kind, err)
	}
	path := archivePath(kind, before)
	if err := writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: upload %s: %w", kind, err)
	}
	return nil
}

// archivePath partitions archive files by the year-month of the cutoff:
//
//	archive/candles/2025-01.jsonl
//	archive/decisions/2025-01.jsonl
//	archive/orders/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice as newline-delimited compact JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*Archiver)(nil)
