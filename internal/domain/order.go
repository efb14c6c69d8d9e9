package domain

import "time"

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the exchange order type. Only market orders are issued by the
// trading core.
type OrderType string

const OrderTypeMarket OrderType = "MARKET"

// OrderRequest is a single order attempt handed to the execution adapter.
// Exactly one request is issued per decision; the adapter never retries.
type OrderRequest struct {
	ID            string // client-side UUID, used for audit correlation
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Quantity      float64
	ExpectedPrice float64 // close of the candle that triggered the decision
	CandleIndex   int
	StopLoss      bool // the request was forced by the stop-loss condition
	RequestedAt   time.Time
}

// Fill is one execution report returned by the exchange for a filled order.
type Fill struct {
	Price      float64
	Quantity   float64
	Commission float64
}

// OrderAck is the exchange's immediate response to a successful submission.
// The fill list may be empty; the adapter must tolerate that.
type OrderAck struct {
	OrderID string
	Fills   []Fill
}

// BalanceSnapshot captures post-trade balances for the audit trail. It is
// collected on a best-effort basis after a confirmed order.
type BalanceSnapshot struct {
	BaseFree   float64
	QuoteFree  float64
	TotalUSD   float64
	TotalQuote float64
}

// OrderOutcome is the result of one order attempt. Succeeded reflects only the
// order submission itself: failures while collecting fill or balance detail
// leave Fill/Balances nil and never revoke a confirmed submission.
type OrderOutcome struct {
	Request   OrderRequest
	Succeeded bool
	OrderID   string
	Fill      *Fill
	Balances  *BalanceSnapshot
	Err       string // submission error, for logs and the audit trail
	PlacedAt  time.Time
}
