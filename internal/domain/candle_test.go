package domain

import (
	"testing"
	"time"
)

func minuteAt(i int) time.Time {
	return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
}

func TestPriceHistoryAppendOrderedAndDeduped(t *testing.T) {
	h := NewPriceHistory(0)

	if !h.Append(Candle{Minute: minuteAt(0), Close: 100}) {
		t.Fatalf("first append rejected")
	}
	if !h.Append(Candle{Minute: minuteAt(1), Close: 101}) {
		t.Fatalf("second append rejected")
	}

	// Replayed minute must not create a second entry.
	if h.Append(Candle{Minute: minuteAt(1), Close: 999}) {
		t.Fatalf("duplicate minute accepted")
	}
	// Out-of-order minute must not be inserted.
	if h.Append(Candle{Minute: minuteAt(0), Close: 999}) {
		t.Fatalf("out-of-order minute accepted")
	}

	closes := h.Closes()
	if len(closes) != 2 || closes[0] != 100 || closes[1] != 101 {
		t.Fatalf("unexpected closes %v", closes)
	}
}

func TestPriceHistoryBoundedRetention(t *testing.T) {
	h := NewPriceHistory(3)
	for i := 0; i < 5; i++ {
		if !h.Append(Candle{Minute: minuteAt(i), Close: float64(i)}) {
			t.Fatalf("append %d rejected", i)
		}
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 retained, got %d", h.Len())
	}
	closes := h.Closes()
	if closes[0] != 2 || closes[2] != 4 {
		t.Fatalf("expected oldest entries trimmed, got %v", closes)
	}
	// Trimmed minutes are forgotten, so a very old replay is also rejected
	// by the ordering check rather than the dedup map.
	if h.Has(minuteAt(0)) {
		t.Fatalf("trimmed minute still tracked")
	}
	if h.Append(Candle{Minute: minuteAt(0), Close: 0}) {
		t.Fatalf("stale minute accepted after trim")
	}
}

func TestPriceHistoryLast(t *testing.T) {
	h := NewPriceHistory(10)
	if _, ok := h.Last(); ok {
		t.Fatalf("Last on empty history returned ok")
	}
	h.Append(Candle{Minute: minuteAt(0), Close: 42})
	last, ok := h.Last()
	if !ok || last.Close != 42 {
		t.Fatalf("unexpected last candle %+v ok=%v", last, ok)
	}
}

func TestTickMinuteTruncation(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 7, 33, 123456, time.UTC)
	tick := Tick{Symbol: "BNBBTC", EventTime: ts, Close: 1.5}
	want := time.Date(2024, 3, 1, 10, 7, 0, 0, time.UTC)
	if !tick.Minute().Equal(want) {
		t.Fatalf("minute = %v, want %v", tick.Minute(), want)
	}
}
