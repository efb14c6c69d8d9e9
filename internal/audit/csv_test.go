package audit

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

func openLog(t *testing.T, dir string) *Log {
	t.Helper()
	l, err := NewLog(filepath.Join(dir, "candles.csv"), filepath.Join(dir, "orders.csv"), time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	return l
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestHeaderWrittenOncePerFile(t *testing.T) {
	dir := t.TempDir()
	candlePath := filepath.Join(dir, "candles.csv")

	l := openLog(t, dir)
	c := domain.Candle{Minute: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Close: 0.0102}
	if err := l.RecordCandle(c, domain.DecisionBuy); err != nil {
		t.Fatalf("record candle: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen, as a restart would, and append another row.
	l = openLog(t, dir)
	if err := l.RecordCandle(c, domain.DecisionNone); err != nil {
		t.Fatalf("record candle after reopen: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows := readRows(t, candlePath)
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2 data rows", len(rows))
	}
	if rows[0][0] != "session_start" {
		t.Fatalf("first row is not the header: %v", rows[0])
	}
	for _, r := range rows[1:] {
		if r[0] == "session_start" {
			t.Fatalf("header duplicated in data rows")
		}
	}
}

func TestCandleRowFormat(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, dir)
	c := domain.Candle{Minute: time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC), Close: 0.0102}
	if err := l.RecordCandle(c, domain.DecisionSell); err != nil {
		t.Fatalf("record candle: %v", err)
	}
	l.Close()

	rows := readRows(t, filepath.Join(dir, "candles.csv"))
	got := rows[1]
	want := []string{"2024-03-01T09:00:00Z", "2024-03-01T10:05:00Z", "0.0102", "sell"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %d = %q, want %q (row %v)", i, got[i], want[i], got)
		}
	}
}

func TestOrderRowLeavesMissingDetailEmpty(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, dir)

	out := domain.OrderOutcome{
		Request: domain.OrderRequest{
			Symbol:        "BNBBTC",
			Side:          domain.OrderSideBuy,
			Type:          domain.OrderTypeMarket,
			Quantity:      0.2,
			ExpectedPrice: 0.01,
		},
		Succeeded: true,
		OrderID:   "ex-1",
		PlacedAt:  time.Date(2024, 3, 1, 10, 6, 2, 0, time.UTC),
	}
	if err := l.RecordOrder(out); err != nil {
		t.Fatalf("record order: %v", err)
	}
	l.Close()

	rows := readRows(t, filepath.Join(dir, "orders.csv"))
	got := rows[1]
	if got[2] != "BNBBTC" || got[3] != "BUY" || got[4] != "MARKET" {
		t.Fatalf("order identity columns wrong: %v", got)
	}
	// fill and balance columns stay empty when detail collection failed
	for i := 7; i <= 13; i++ {
		if got[i] != "" {
			t.Fatalf("column %d = %q, want empty", i, got[i])
		}
	}
	if got[14] != "true" || got[15] != "" {
		t.Fatalf("status columns = %q,%q", got[14], got[15])
	}
}

func TestOrderRowWithFullDetail(t *testing.T) {
	dir := t.TempDir()
	l := openLog(t, dir)

	out := domain.OrderOutcome{
		Request: domain.OrderRequest{
			Symbol:        "BNBBTC",
			Side:          domain.OrderSideSell,
			Type:          domain.OrderTypeMarket,
			Quantity:      0.2,
			ExpectedPrice: 0.01,
		},
		Succeeded: true,
		Fill:      &domain.Fill{Price: 0.0101, Quantity: 0.2, Commission: 0.0001},
		Balances:  &domain.BalanceSnapshot{BaseFree: 1.2, QuoteFree: 0.05, TotalUSD: 3720, TotalQuote: 0.062},
		PlacedAt:  time.Date(2024, 3, 1, 10, 7, 0, 0, time.UTC),
	}
	if err := l.RecordOrder(out); err != nil {
		t.Fatalf("record order: %v", err)
	}
	l.Close()

	rows := readRows(t, filepath.Join(dir, "orders.csv"))
	got := rows[1]
	want := map[int]string{7: "0.0101", 8: "0.2", 9: "0.0001", 10: "1.2", 11: "0.05", 12: "3720", 13: "0.062"}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("column %d = %q, want %q", i, got[i], w)
		}
	}
}
