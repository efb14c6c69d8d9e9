// Package metrics exposes Prometheus instrumentation for the trading loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlebot_ticks_total", Help: "Market ticks ingested"},
		[]string{"symbol"},
	)
	FeedErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlebot_feed_errors_total", Help: "Malformed feed messages dropped"},
		[]string{"symbol"},
	)
	CandlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlebot_candles_total", Help: "Candles closed"},
		[]string{"symbol"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlebot_decisions_total", Help: "Per-candle trading decisions"},
		[]string{"symbol", "action"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candlebot_orders_total", Help: "Order attempts by result"},
		[]string{"symbol", "side", "result"},
	)
	LastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "candlebot_last_price", Help: "Last observed close price"},
		[]string{"symbol"},
	)
	positionLong = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "candlebot_position_long", Help: "1 while holding a long position"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, FeedErrors, CandlesTotal, DecisionsTotal, OrdersTotal,
		LastPrice, positionLong,
	)
}

// SetPositionStatus records whether the session currently holds a position.
func SetPositionStatus(symbol string, long bool) {
	v := 0.0
	if long {
		v = 1
	}
	positionLong.WithLabelValues(symbol).Set(v)
}

// Serve starts the /metrics endpoint on addr in a background goroutine and
// returns the server so callers can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
