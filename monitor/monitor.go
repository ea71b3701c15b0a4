// Package monitor re-evaluates every open position against live price once
// per invocation and closes the ones whose exit trigger fired. Each close is
// independently transactional, so an interrupted pass leaves closed
// positions closed and the rest still open for the next pass.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/alert"
	"github.com/tradewheel/swingbot/broker"
	"github.com/tradewheel/swingbot/metrics"
	"github.com/tradewheel/swingbot/store"
	"github.com/tradewheel/swingbot/trade"
)

// PriceFeed supplies the latest traded price for a symbol. The broker
// gateway satisfies it.
type PriceFeed interface {
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Closer is the broker surface the loop needs.
type Closer interface {
	ClosePosition(ctx context.Context, pos trade.Position, price decimal.Decimal) (broker.OrderResult, error)
}

// Store is the subset of the trade store the loop touches.
type Store interface {
	OpenPositions(ctx context.Context) ([]trade.Position, error)
	Close(ctx context.Context, id string, exitPrice decimal.Decimal, reason trade.ExitReason, pnl decimal.Decimal, closedAt time.Time) error
}

// Params configures the time-based exit.
type Params struct {
	// MaxHoldDays closes a position after this many full days regardless of
	// price. Zero disables the time exit.
	MaxHoldDays int
}

// Loop runs one monitoring pass per invocation.
type Loop struct {
	store  Store
	broker Closer
	feed   PriceFeed
	params Params
	alerts *alert.Sink
	now    func() time.Time
}

// New builds a monitoring loop. now may be nil to use wall-clock time.
func New(s Store, b Closer, feed PriceFeed, p Params, sink *alert.Sink, now func() time.Time) *Loop {
	if now == nil {
		now = time.Now
	}
	return &Loop{store: s, broker: b, feed: feed, params: p, alerts: sink, now: now}
}

// Summary counts position outcomes for one pass.
type Summary struct {
	Checked     int
	Closed      int
	StillOpen   int
	PriceErrors int
	CloseErrors int
}

// Run performs one pass. It returns an error only on a store transaction
// failure. Broker and price-feed failures leave the position OPEN for the
// next scheduled pass; no position is ever silently dropped.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	positions, err := l.store.OpenPositions(ctx)
	if err != nil {
		var txErr *store.TxError
		if errors.As(err, &txErr) {
			metrics.RecordStoreError(txErr.Op)
		}
		return Summary{}, err
	}

	var sum Summary
	sum.Checked = len(positions)

	for _, pos := range positions {
		res, err := l.check(ctx, pos)
		if err != nil {
			var txErr *store.TxError
			if errors.As(err, &txErr) {
				metrics.RecordStoreError(txErr.Op)
				return sum, err
			}
			// Recoverable: the position stays OPEN and the next invocation
			// re-attempts. Close retries ride the invocation cadence, not an
			// in-process loop.
			sum.CloseErrors++
			sum.StillOpen++
			continue
		}
		switch res {
		case checkClosed:
			sum.Closed++
		case checkNoPrice:
			sum.PriceErrors++
			sum.StillOpen++
		default:
			sum.StillOpen++
		}
	}

	metrics.SetOpenPositions(sum.StillOpen)
	log.Printf("monitor: checked %d, closed %d, still open %d (price errors %d, close errors %d)",
		sum.Checked, sum.Closed, sum.StillOpen, sum.PriceErrors, sum.CloseErrors)
	return sum, nil
}

type checkResult int

const (
	checkOpen checkResult = iota
	checkClosed
	checkNoPrice
)

func (l *Loop) check(ctx context.Context, pos trade.Position) (checkResult, error) {
	now := l.now()

	price, err := l.feed.LatestPrice(ctx, pos.Symbol)
	if err != nil {
		log.Printf("monitor: no price for %s, skipping this pass: %v", pos.Symbol, err)
		return checkNoPrice, nil
	}

	reason, ok := l.exitTrigger(pos, price, now)
	if !ok {
		return checkOpen, nil
	}

	res, err := l.broker.ClosePosition(ctx, pos, price)
	if err != nil {
		log.Printf("monitor: close failed for %s (%s), will retry next pass: %v",
			pos.Symbol, reason, err)
		l.alerts.Notify(ctx, alert.Alert{
			Kind:       alert.KindFailure,
			Symbol:     pos.Symbol,
			Direction:  pos.Direction,
			Price:      price,
			Reason:     fmt.Sprintf("close (%s): %v", reason, err),
			PositionID: pos.ID,
		})
		return checkOpen, fmt.Errorf("close %s: %w", pos.ID, err)
	}

	exitPrice := res.Price
	if exitPrice.IsZero() {
		exitPrice = price
	}
	pnl := pos.PnLAt(exitPrice)

	if err := l.store.Close(ctx, pos.ID, exitPrice, reason, pnl, now); err != nil {
		return checkOpen, err
	}

	log.Printf("monitor: closed %s %s @ %s (%s), pnl %s", pos.Symbol, pos.ID, exitPrice, reason, pnl)
	metrics.RecordExit(pos.Symbol, string(reason))
	l.alerts.Notify(ctx, alert.Alert{
		Kind:       alert.KindExit,
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		Price:      exitPrice,
		Reason:     string(reason),
		PositionID: pos.ID,
		PnL:        pnl,
	})
	return checkClosed, nil
}

// exitTrigger evaluates the triggers in fixed priority: stop loss, then
// target, then time. The first match wins, so a sample breaching both stop
// and target exits at the stop.
func (l *Loop) exitTrigger(pos trade.Position, price decimal.Decimal, now time.Time) (trade.ExitReason, bool) {
	if hitStopLoss(pos, price) {
		return trade.ExitStopLoss, true
	}
	if hitTarget(pos, price) {
		return trade.ExitTarget, true
	}
	if l.params.MaxHoldDays > 0 && pos.HoldingDays(now) >= l.params.MaxHoldDays {
		return trade.ExitTimeout, true
	}
	return "", false
}

func hitStopLoss(pos trade.Position, price decimal.Decimal) bool {
	if pos.StopLoss.IsZero() {
		return false
	}
	if pos.Direction == trade.Buy {
		return price.LessThanOrEqual(pos.StopLoss)
	}
	return price.GreaterThanOrEqual(pos.StopLoss)
}

func hitTarget(pos trade.Position, price decimal.Decimal) bool {
	if pos.Target.IsZero() {
		return false
	}
	if pos.Direction == trade.Buy {
		return price.GreaterThanOrEqual(pos.Target)
	}
	return price.LessThanOrEqual(pos.Target)
}
