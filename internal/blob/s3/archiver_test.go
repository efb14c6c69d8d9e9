package s3blob

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWriter struct {
	puts map[string]string
	err  error
}

func (w *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if w.err != nil {
		return w.err
	}
	b, _ := io.ReadAll(data)
	if w.puts == nil {
		w.puts = make(map[string]string)
	}
	w.puts[path] = string(b)
	return nil
}

type fakeCandleStore struct {
	rows    []domain.Candle
	deleted bool
}

func (s *fakeCandleStore) Insert(ctx context.Context, symbol string, c domain.Candle) error {
	s.rows = append(s.rows, c)
	return nil
}

func (s *fakeCandleStore) ListRecent(ctx context.Context, symbol string, limit int) ([]domain.Candle, error) {
	return s.rows, nil
}

func (s *fakeCandleStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Candle, error) {
	var out []domain.Candle
	for _, c := range s.rows {
		if c.Minute.Before(before) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeCandleStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	var kept []domain.Candle
	var n int64
	for _, c := range s.rows {
		if c.Minute.Before(before) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	s.rows = kept
	s.deleted = true
	return n, nil
}

type emptyDecisionStore struct{}

func (emptyDecisionStore) Insert(ctx context.Context, sessionID string, d domain.Decision) error {
	return nil
}

func (emptyDecisionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Decision, error) {
	return nil, nil
}

func (emptyDecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type emptyOrderStore struct{}

func (emptyOrderStore) Insert(ctx context.Context, sessionID string, o domain.OrderOutcome) error {
	return nil
}

func (emptyOrderStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OrderOutcome, error) {
	return nil, nil
}

func (emptyOrderStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func minuteCandle(min int) domain.Candle {
	return domain.Candle{Minute: time.Date(2024, 2, 1, 10, min, 0, 0, time.UTC), Close: 100 + float64(min)}
}

func TestArchiveBeforeUploadsThenDeletes(t *testing.T) {
	writer := &fakeWriter{}
	candles := &fakeCandleStore{rows: []domain.Candle{minuteCandle(0), minuteCandle(1), minuteCandle(30)}}
	a := NewArchiver(writer, candles, emptyDecisionStore{}, emptyOrderStore{}, testLogger())

	cutoff := time.Date(2024, 2, 1, 10, 10, 0, 0, time.UTC)
	n, err := a.ArchiveBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 2 {
		t.Fatalf("archived %d records, want 2", n)
	}

	body, ok := writer.puts["archive/candles/2024-02.jsonl"]
	if !ok {
		t.Fatalf("no candle archive uploaded; puts = %v", writer.puts)
	}
	if lines := strings.Count(strings.TrimRight(body, "\n"), "\n") + 1; lines != 2 {
		t.Fatalf("archive has %d lines, want 2:\n%s", lines, body)
	}
	if len(candles.rows) != 1 {
		t.Fatalf("%d rows left in store, want 1", len(candles.rows))
	}
}

func TestFailedUploadLeavesRowsInStore(t *testing.T) {
	writer := &fakeWriter{err: errors.New("bucket gone")}
	candles := &fakeCandleStore{rows: []domain.Candle{minuteCandle(0)}}
	a := NewArchiver(writer, candles, emptyDecisionStore{}, emptyOrderStore{}, testLogger())

	cutoff := time.Date(2024, 2, 1, 11, 0, 0, 0, time.UTC)
	if _, err := a.ArchiveBefore(context.Background(), cutoff); err == nil {
		t.Fatalf("expected upload error")
	}
	if candles.deleted {
		t.Fatalf("rows deleted despite failed upload")
	}
	if len(candles.rows) != 1 {
		t.Fatalf("rows lost: %d left", len(candles.rows))
	}
}

func TestNothingToArchiveUploadsNothing(t *testing.T) {
	writer := &fakeWriter{}
	a := NewArchiver(writer, &fakeCandleStore{}, emptyDecisionStore{}, emptyOrderStore{}, testLogger())

	n, err := a.ArchiveBefore(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if n != 0 || len(writer.puts) != 0 {
		t.Fatalf("n=%d puts=%v, want no activity", n, writer.puts)
	}
}
