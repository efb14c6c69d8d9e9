package feed

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func klineJSON(symbol string, ts time.Time, close float64) []byte {
	return []byte(fmt.Sprintf(`{"s":%q,"E":%d,"k":{"c":"%v"}}`, symbol, ts.UnixMilli(), close))
}

func TestIngesterFirstMessageNeverCloses(t *testing.T) {
	in := NewIngester(testLogger())
	ts := time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)

	tick, closed, err := in.Observe(klineJSON("BNBBTC", ts, 100))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if closed != nil {
		t.Fatalf("first message emitted a close event: %+v", closed)
	}
	if tick.Symbol != "BNBBTC" || tick.Close != 100 {
		t.Fatalf("unexpected tick %+v", tick)
	}
}

func TestIngesterClosesOnMinuteRolloverAtLastPrice(t *testing.T) {
	in := NewIngester(testLogger())
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// Several ticks inside the same minute: no close, price keeps updating.
	prices := []float64{100, 101, 102.5}
	for i, p := range prices {
		_, closed, err := in.Observe(klineJSON("BNBBTC", base.Add(time.Duration(i*15)*time.Second), p))
		if err != nil {
			t.Fatalf("Observe %d: %v", i, err)
		}
		if closed != nil {
			t.Fatalf("intra-minute tick %d emitted a close", i)
		}
	}

	// First tick of the next minute closes the previous candle at the last
	// intra-minute price.
	_, closed, err := in.Observe(klineJSON("BNBBTC", base.Add(61*time.Second), 103))
	if err != nil {
		t.Fatalf("Observe rollover: %v", err)
	}
	if closed == nil {
		t.Fatalf("rollover did not emit a close")
	}
	if closed.Close != 102.5 {
		t.Fatalf("closed at %v, want last intra-minute price 102.5", closed.Close)
	}
	if !closed.Minute.Equal(base) {
		t.Fatalf("closed minute %v, want %v", closed.Minute, base)
	}
}

func TestIngesterIgnoresStaleMinutes(t *testing.T) {
	in := NewIngester(testLogger())
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	in.Observe(klineJSON("BNBBTC", base, 100))
	in.Observe(klineJSON("BNBBTC", base.Add(time.Minute), 101))

	// A replayed tick from the already-closed minute must not fire another
	// close event or disturb the rollover tracking.
	_, closed, err := in.Observe(klineJSON("BNBBTC", base.Add(30*time.Second), 99))
	if err != nil {
		t.Fatalf("Observe stale: %v", err)
	}
	if closed != nil {
		t.Fatalf("stale tick emitted a close")
	}

	_, closed, err = in.Observe(klineJSON("BNBBTC", base.Add(2*time.Minute), 102))
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if closed == nil || closed.Close != 101 {
		t.Fatalf("rollover after stale tick = %+v, want close at 101", closed)
	}
}

func TestIngesterMalformedMessages(t *testing.T) {
	in := NewIngester(testLogger())
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	in.Observe(klineJSON("BNBBTC", base, 100))

	bad := [][]byte{
		[]byte(`not json`),
		[]byte(`{}`),
		[]byte(`{"s":"BNBBTC","E":1709287260000,"k":{"c":"abc"}}`),
	}
	for _, raw := range bad {
		_, closed, err := in.Observe(raw)
		if err == nil {
			t.Fatalf("expected error for %q", raw)
		}
		if !errors.Is(err, domain.ErrMalformedTick) {
			t.Fatalf("error %v does not wrap ErrMalformedTick", err)
		}
		if closed != nil {
			t.Fatalf("malformed message emitted a close")
		}
	}

	// Processing continues on the next good message.
	_, closed, err := in.Observe(klineJSON("BNBBTC", base.Add(time.Minute), 101))
	if err != nil {
		t.Fatalf("Observe after malformed: %v", err)
	}
	if closed == nil || closed.Close != 100 {
		t.Fatalf("expected close at 100 after recovery, got %+v", closed)
	}
}
