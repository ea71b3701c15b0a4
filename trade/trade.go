// Package trade defines the domain model shared by the execution engine,
// the monitoring loop and the persistent store.
package trade

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a trade.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL, the multiplier applied to
// price moves when computing P&L.
func (d Direction) Sign() int64 {
	if d == Sell {
		return -1
	}
	return 1
}

// Valid reports whether the direction is one of the two known sides.
func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// Status is the lifecycle state of a position.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// ExitReason names the trigger that closed a position.
type ExitReason string

const (
	ExitStopLoss ExitReason = "STOP_LOSS"
	ExitTarget   ExitReason = "TARGET"
	ExitTimeout  ExitReason = "TIME_EXIT"
	ExitManual   ExitReason = "MANUAL"
)

// Signal is a strategy's recommendation to enter a position. Signals are
// produced externally and consumed exactly once per occurrence.
type Signal struct {
	Symbol      string          `json:"symbol"`
	Strategy    string          `json:"strategy"`
	Direction   Direction       `json:"direction"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	Target      decimal.Decimal `json:"target"`
	RiskReward  decimal.Decimal `json:"risk_reward"`
	Confidence  float64         `json:"confidence"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// OrderPlan is a sized signal, ready for submission to the broker.
type OrderPlan struct {
	Signal       Signal
	Quantity     int64
	RiskPerShare decimal.Decimal
	RiskAmount   decimal.Decimal
}

// Position is a tracked trade from entry decision through exit.
// Rows are never deleted; closed positions are the audit record.
type Position struct {
	ID            string
	Symbol        string
	Strategy      string
	Direction     Direction
	Status        Status
	EntryPrice    decimal.Decimal
	Quantity      int64
	StopLoss      decimal.Decimal
	Target        decimal.Decimal
	BrokerOrderID string
	OpenedAt      time.Time
	ClosedAt      time.Time
	ExitPrice     decimal.Decimal
	ExitReason    ExitReason
	FailReason    string
	PnL           decimal.Decimal
}

// PnLAt returns the realized P&L if the position were closed at exit:
// (exit - entry) * quantity for BUY, negated for SELL.
func (p Position) PnLAt(exit decimal.Decimal) decimal.Decimal {
	move := exit.Sub(p.EntryPrice)
	if p.Direction == Sell {
		move = move.Neg()
	}
	return move.Mul(decimal.NewFromInt(p.Quantity))
}

// HoldingDays returns full days elapsed since the position was opened.
func (p Position) HoldingDays(now time.Time) int {
	if p.OpenedAt.IsZero() || now.Before(p.OpenedAt) {
		return 0
	}
	return int(now.Sub(p.OpenedAt).Hours() / 24)
}

// Live reports whether the position occupies its (symbol, strategy) slot.
func (p Position) Live() bool {
	return p.Status == StatusPending || p.Status == StatusOpen
}

// FromPlan builds a PENDING position from a sized order plan.
func FromPlan(id string, plan OrderPlan, now time.Time) Position {
	return Position{
		ID:         id,
		Symbol:     plan.Signal.Symbol,
		Strategy:   plan.Signal.Strategy,
		Direction:  plan.Signal.Direction,
		Status:     StatusPending,
		EntryPrice: plan.Signal.EntryPrice,
		Quantity:   plan.Quantity,
		StopLoss:   plan.Signal.StopLoss,
		Target:     plan.Signal.Target,
		OpenedAt:   now,
	}
}
