package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minutebar/candlebot/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// MessageHandler is called with the raw payload of every stream message, in
// arrival order.
type MessageHandler func(raw []byte)

// WSClient is a WebSocket client for the exchange's per-symbol kline stream.
// The stream requires no subscription commands: the symbol and interval are
// part of the connection URL.
type WSClient struct {
	wsHost   string
	symbol   string
	interval string

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onMessage MessageHandler

	// done is closed when the client is shut down; readDone when the read
	// loop exits (connection lost).
	done     chan struct{}
	readDone chan struct{}
}

// NewWSClient creates a client for one symbol's kline stream.
//
// wsHost is the stream endpoint root, e.g. "wss://stream.binance.com:9443".
// interval is the kline interval, e.g. "1m".
func NewWSClient(wsHost, symbol, interval string) *WSClient {
	return &WSClient{
		wsHost:   wsHost,
		symbol:   symbol,
		interval: interval,
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

// OnMessage registers the handler invoked for every received stream message.
// It must be set before Connect.
func (w *WSClient) OnMessage(handler MessageHandler) {
	w.onMessage = handler
}

// StreamURL returns the full connection URL for the configured symbol.
func (w *WSClient) StreamURL() string {
	return fmt.Sprintf("%s/ws/%s@kline_%s",
		strings.TrimRight(w.wsHost, "/"),
		strings.ToLower(w.symbol),
		w.interval,
	)
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. Messages are dispatched to the OnMessage handler from a single
// goroutine, preserving arrival order.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("binance/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, w.StreamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance/ws: connect %s: %w", w.StreamURL(), err)
	}
	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)
	return nil
}

// readLoop reads messages until the connection fails or the client is closed.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer close(w.readDone)
	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}
		if w.onMessage != nil {
			w.onMessage(raw)
		}
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// Wait blocks until the read loop exits (connection lost), the client is
// closed, or ctx is cancelled. It lets callers detect a dropped connection
// and reconnect.
func (w *WSClient) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return nil
	case <-w.readDone:
		return fmt.Errorf("binance/ws: %w", domain.ErrWSDisconnect)
	}
}

// Close shuts down the connection and stops the loops. Safe to call twice.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}
