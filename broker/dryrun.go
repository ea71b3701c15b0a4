package broker

import (
	"context"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/pkg/id"
	"github.com/tradewheel/swingbot/trade"
)

// DryRun simulates successful execution with locally generated order IDs and
// never touches the network, so the rest of the pipeline (sizing,
// persistence, alerting) is exercised identically to live mode.
type DryRun struct {
	mu     sync.Mutex
	quotes map[string]decimal.Decimal
	orders map[string]string
}

// NewDryRun builds a dry-run broker.
func NewDryRun() *DryRun {
	return &DryRun{
		quotes: make(map[string]decimal.Decimal),
		orders: make(map[string]string),
	}
}

// SetQuote seeds the price returned by LatestPrice for a symbol.
func (d *DryRun) SetQuote(symbol string, price decimal.Decimal) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quotes[symbol] = price
}

// PlaceOrder records a simulated fill at the requested price.
func (d *DryRun) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	orderID := "DRY-" + id.New()
	log.Printf("broker[dry-run]: %s %d %s @ %s (stop %s, target %s) -> %s",
		req.Direction, req.Quantity, req.Symbol, req.Price, req.StopLoss, req.Target, orderID)

	d.mu.Lock()
	d.orders[orderID] = StatusTraded
	d.quotes[req.Symbol] = req.Price
	d.mu.Unlock()

	return OrderResult{OrderID: orderID, Status: StatusTraded, Price: req.Price}, nil
}

// ClosePosition records a simulated exit fill at the supplied price.
func (d *DryRun) ClosePosition(ctx context.Context, pos trade.Position, price decimal.Decimal) (OrderResult, error) {
	orderID := "DRY-" + id.New()
	log.Printf("broker[dry-run]: close %s %d %s @ %s -> %s",
		exitDirection(pos.Direction), pos.Quantity, pos.Symbol, price, orderID)

	d.mu.Lock()
	d.orders[orderID] = StatusTraded
	d.quotes[pos.Symbol] = price
	d.mu.Unlock()

	return OrderResult{OrderID: orderID, Status: StatusTraded, Price: price}, nil
}

// OrderStatus reports the status of a simulated order.
func (d *DryRun) OrderStatus(ctx context.Context, orderID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	status, ok := d.orders[orderID]
	if !ok {
		return "", rejectedErr("UNKNOWN_ORDER", "no dry-run order %s", orderID)
	}
	return status, nil
}

// LatestPrice returns the seeded quote for a symbol.
func (d *DryRun) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	price, ok := d.quotes[symbol]
	if !ok {
		return decimal.Zero, retryableErr("NO_QUOTE", "no dry-run quote seeded for %s", symbol)
	}
	return price, nil
}
