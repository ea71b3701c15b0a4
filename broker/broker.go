// Package broker abstracts order placement, position exits and status
// queries over a brokerage. Three implementations share one contract: a live
// client, a sandbox client against the brokerage's paper-trading endpoint,
// and a dry-run broker that never performs network I/O.
package broker

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/trade"
)

// Order statuses reported by the gateway.
const (
	StatusTransit  = "TRANSIT"
	StatusTraded   = "TRADED"
	StatusRejected = "REJECTED"
)

// OrderRequest describes an entry order to submit.
type OrderRequest struct {
	Symbol    string
	Direction trade.Direction
	Quantity  int64
	Price     decimal.Decimal
	StopLoss  decimal.Decimal
	Target    decimal.Decimal
}

// OrderResult is the normalized outcome of a placement or close.
type OrderResult struct {
	OrderID string
	Status  string
	Price   decimal.Decimal
}

// Broker is the minimal surface the execution engine and monitoring loop
// need. Every call, regardless of mode, logs enough detail to reconstruct
// what would have been sent to a live broker.
type Broker interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	ClosePosition(ctx context.Context, pos trade.Position, price decimal.Decimal) (OrderResult, error)
	OrderStatus(ctx context.Context, orderID string) (string, error)
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// exitDirection is the side that flattens a position.
func exitDirection(d trade.Direction) trade.Direction {
	if d == trade.Buy {
		return trade.Sell
	}
	return trade.Buy
}
