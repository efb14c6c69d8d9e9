// Package audit writes the append-only CSV trail: one row per closed candle
// and one row per order attempt. Files survive restarts; the header is only
// written when a file is first created.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/minutebar/candlebot/internal/domain"
)

var candleHeader = []string{"session_start", "candle_ts", "price", "decision"}

var orderHeader = []string{
	"session_start", "placed_at", "symbol", "side", "order_type",
	"quantity", "expected_price",
	"fill_price", "fill_quantity", "commission",
	"base_balance", "quote_balance", "total_balance_usd", "total_balance_quote",
	"succeeded", "error",
}

// Log is the CSV audit sink for one trading session. Safe for use from the
// trader and executor goroutines concurrently.
type Log struct {
	mu           sync.Mutex
	sessionStart string
	candles      *csvFile
	orders       *csvFile
}

// NewLog opens (or creates) the candle and order CSV files. sessionStart tags
// every row so overlapping sessions in one file stay distinguishable.
func NewLog(candlePath, orderPath string, sessionStart time.Time) (*Log, error) {
	candles, err := openCSV(candlePath, candleHeader)
	if err != nil {
		return nil, fmt.Errorf("audit: open candle log: %w", err)
	}
	orders, err := openCSV(orderPath, orderHeader)
	if err != nil {
		candles.close()
		return nil, fmt.Errorf("audit: open order log: %w", err)
	}
	return &Log{
		sessionStart: sessionStart.UTC().Format(time.RFC3339),
		candles:      candles,
		orders:       orders,
	}, nil
}

// RecordCandle appends one row for a closed candle and the decision made on it.
func (l *Log) RecordCandle(c domain.Candle, action domain.DecisionAction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row := []string{
		l.sessionStart,
		c.Minute.UTC().Format(time.RFC3339),
		formatPrice(c.Close),
		string(action),
	}
	if err := l.candles.append(row); err != nil {
		return fmt.Errorf("audit: candle row: %w", err)
	}
	return nil
}

// RecordOrder appends one row for an order attempt. Fill and balance columns
// stay empty when the corresponding detail was not collected.
func (l *Log) RecordOrder(out domain.OrderOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := []string{
		l.sessionStart,
		out.PlacedAt.UTC().Format(time.RFC3339),
		out.Request.Symbol,
		string(out.Request.Side),
		string(out.Request.Type),
		formatPrice(out.Request.Quantity),
		formatPrice(out.Request.ExpectedPrice),
	}
	if out.Fill != nil {
		row = append(row, formatPrice(out.Fill.Price), formatPrice(out.Fill.Quantity), formatPrice(out.Fill.Commission))
	} else {
		row = append(row, "", "", "")
	}
	if out.Balances != nil {
		row = append(row,
			formatPrice(out.Balances.BaseFree),
			formatPrice(out.Balances.QuoteFree),
			formatPrice(out.Balances.TotalUSD),
			formatPrice(out.Balances.TotalQuote),
		)
	} else {
		row = append(row, "", "", "", "")
	}
	row = append(row, strconv.FormatBool(out.Succeeded), out.Err)

	if err := l.orders.append(row); err != nil {
		return fmt.Errorf("audit: order row: %w", err)
	}
	return nil
}

// Close flushes and closes both files.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.candles.close()
	if err2 := l.orders.close(); err == nil {
		err = err2
	}
	return err
}

// csvFile is one append-only CSV file with a header written on creation.
type csvFile struct {
	f *os.File
	w *csv.Writer
}

func openCSV(path string, header []string) (*csvFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	c := &csvFile{f: f, w: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := c.append(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return c, nil
}

// append writes one row and flushes so rows survive a crash.
func (c *csvFile) append(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
