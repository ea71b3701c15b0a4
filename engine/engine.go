// Package engine drives a signal through entry: duplicate check, risk
// sizing, pending persistence, broker submission and the terminal OPEN or
// FAILED transition. One Run call is one scan invocation; no state survives
// it beyond what the store persists.
package engine

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
	"github.com/tradewheel/swingbot/pkg/id"
	"github.com/tradewheel/swingbot/risk"
	"github.com/tradewheel/swingbot/store"
	"github.com/tradewheel/swingbot/trade"
)

// Store is the subset of the trade store the engine mutates.
type Store interface {
	InsertPending(ctx context.Context, p *trade.Position) error
	MarkOpen(ctx context.Context, id, brokerOrderID string, entry decimal.Decimal) error
	MarkFailed(ctx context.Context, id, reason string) error
	CountOrdersToday(ctx context.Context, now time.Time) (int, error)
	HasLiveSlot(ctx context.Context, symbol, strategy string) (bool, error)
}

// Engine converts signals into tracked positions.
type Engine struct {
	store  Store
	broker broker.Broker
	risk   risk.Params
	alerts *alert.Sink
	now    func() time.Time
}

// New builds an engine. now may be nil to use wall-clock time.
func New(s Store, b broker.Broker, p risk.Params, sink *alert.Sink, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: s, broker: b, risk: p, alerts: sink, now: now}
}

// Summary counts signal outcomes for one invocation.
type Summary struct {
	Received int
	Placed   int
	Rejected int
	Failed   int
}

// Run processes one scan invocation's signals. It returns an error only for
// store transaction failures, which compromise the durability guarantee and
// must abort the invocation; every other outcome is absorbed into the
// summary. Each PENDING row created here resolves to OPEN or FAILED before
// Run returns.
func (e *Engine) Run(ctx context.Context, sigs []trade.Signal) (Summary, error) {
	var sum Summary
	sum.Received = len(sigs)

	for _, sig := range sigs {
		outcome, err := e.processSignal(ctx, sig)
		if err != nil {
			var txErr *store.TxError
			if errors.As(err, &txErr) {
				metrics.RecordStoreError(txErr.Op)
			}
			return sum, fmt.Errorf("process %s/%s: %w", sig.Symbol, sig.Strategy, err)
		}
		switch outcome {
		case outcomeOpen:
			sum.Placed++
		case outcomeRejected:
			sum.Rejected++
		case outcomeFailed:
			sum.Failed++
		}
	}

	e.alerts.Note(ctx,
		"✅ <b>Scan complete</b>\n\n📊 Signals: %d\n📦 Orders placed: %d\n⏭️ Rejected: %d\n❌ Failed: %d",
		sum.Received, sum.Placed, sum.Rejected, sum.Failed)
	return sum, nil
}

type outcome int

const (
	outcomeOpen outcome = iota
	outcomeRejected
	outcomeFailed
)

func (e *Engine) processSignal(ctx context.Context, sig trade.Signal) (outcome, error) {
	now := e.now()

	// Duplicate slot check before any broker contact. The insert below
	// re-checks atomically; this lookup just avoids sizing work and keeps
	// duplicates out of the alert stream.
	taken, err := e.store.HasLiveSlot(ctx, sig.Symbol, sig.Strategy)
	if err != nil {
		return 0, err
	}
	if taken {
		log.Printf("engine: %s/%s rejected: slot already held", sig.Symbol, sig.Strategy)
		metrics.RecordRejection("DUPLICATE_POSITION")
		return outcomeRejected, nil
	}

	ordersToday, err := e.store.CountOrdersToday(ctx, now)
	if err != nil {
		return 0, err
	}

	plan, err := risk.Size(sig, e.risk, e.risk.CapitalPerTrade, ordersToday, now)
	if err != nil {
		var rej *risk.Rejection
		if errors.As(err, &rej) {
			log.Printf("engine: %s/%s not traded: %v", sig.Symbol, sig.Strategy, rej)
			metrics.RecordRejection(string(rej.Reason))
			return outcomeRejected, nil
		}
		return 0, err
	}

	pos := trade.FromPlan(id.New(), plan, now)
	if err := e.store.InsertPending(ctx, &pos); err != nil {
		if errors.Is(err, store.ErrDuplicatePosition) {
			// Lost the race to a concurrent invocation.
			log.Printf("engine: %s/%s rejected: slot claimed concurrently", sig.Symbol, sig.Strategy)
			metrics.RecordRejection("DUPLICATE_POSITION")
			return outcomeRejected, nil
		}
		return 0, err
	}

	res, err := e.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:    sig.Symbol,
		Direction: sig.Direction,
		Quantity:  plan.Quantity,
		Price:     sig.EntryPrice,
		StopLoss:  sig.StopLoss,
		Target:    sig.Target,
	})
	if err != nil {
		// Any broker failure after the pending row exists resolves the row
		// to FAILED; a retryable classification only means a fresh signal on
		// a later invocation is worth attempting.
		log.Printf("engine: %s placement failed (retryable=%v): %v",
			sig.Symbol, broker.IsRetryable(err), err)
		if markErr := e.store.MarkFailed(ctx, pos.ID, err.Error()); markErr != nil {
			return 0, markErr
		}
		metrics.RecordOrderFailed(sig.Symbol)
		e.alerts.Notify(ctx, alert.Alert{
			Kind:       alert.KindFailure,
			Symbol:     sig.Symbol,
			Direction:  sig.Direction,
			Price:      sig.EntryPrice,
			Reason:     err.Error(),
			PositionID: pos.ID,
		})
		return outcomeFailed, nil
	}

	entry := res.Price
	if entry.IsZero() {
		entry = sig.EntryPrice
	}
	if err := e.store.MarkOpen(ctx, pos.ID, res.OrderID, entry); err != nil {
		return 0, err
	}

	log.Printf("engine: %s %s x%d open, broker order %s",
		sig.Direction, sig.Symbol, plan.Quantity, res.OrderID)
	metrics.RecordOrderPlaced(sig.Symbol, string(sig.Direction))
	e.alerts.Notify(ctx, alert.Alert{
		Kind:       alert.KindEntry,
		Symbol:     sig.Symbol,
		Direction:  sig.Direction,
		Price:      entry,
		Quantity:   plan.Quantity,
		StopLoss:   sig.StopLoss,
		Target:     sig.Target,
		PositionID: pos.ID,
	})
	return outcomeOpen, nil
}
