// Package risk converts raw signals into sized order plans under capital and
// daily-limit constraints. Sizing is a pure function: identical inputs always
// produce an identical plan.
package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/trade"
)

// Params are the process-wide risk limits, loaded once per invocation and
// never mutated by the engine.
type Params struct {
	CapitalPerTrade decimal.Decimal
	MaxRiskPct      decimal.Decimal
	MinRiskReward   decimal.Decimal
	MaxOrdersPerDay int
	MaxSignalAge    time.Duration
}

// RejectReason classifies why a signal was not sized.
type RejectReason string

const (
	RejectInvalidStop  RejectReason = "INVALID_STOP"
	RejectZeroQuantity RejectReason = "ZERO_QUANTITY"
	RejectRiskReward   RejectReason = "RISK_REWARD_TOO_LOW"
	RejectDailyLimit   RejectReason = "DAILY_ORDER_LIMIT"
	RejectStaleSignal  RejectReason = "STALE_SIGNAL"
)

// Rejection is a recoverable sizing outcome: the signal is simply not traded.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("sizing rejected (%s): %s", r.Reason, r.Detail)
}

func reject(reason RejectReason, format string, args ...any) error {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is a sizing rejection rather than a hard
// failure.
func IsRejection(err error) bool {
	_, ok := err.(*Rejection)
	return ok
}

// Size computes the order plan for a signal:
//
//	risk_per_share = |entry - stop|
//	max_loss       = capital_available * max_risk_pct
//	quantity       = floor(max_loss / risk_per_share), capped at
//	                 floor(capital_per_trade / entry)
//
// Quantity always rounds down; we never over-risk. A *Rejection is returned
// when the signal should not be traded at all.
func Size(sig trade.Signal, p Params, capitalAvailable decimal.Decimal, ordersToday int, now time.Time) (trade.OrderPlan, error) {
	if p.MaxOrdersPerDay > 0 && ordersToday >= p.MaxOrdersPerDay {
		return trade.OrderPlan{}, reject(RejectDailyLimit,
			"%d orders already placed today (max %d)", ordersToday, p.MaxOrdersPerDay)
	}

	if p.MaxSignalAge > 0 && !sig.GeneratedAt.IsZero() && now.Sub(sig.GeneratedAt) > p.MaxSignalAge {
		return trade.OrderPlan{}, reject(RejectStaleSignal,
			"signal generated %s ago (max age %s)", now.Sub(sig.GeneratedAt).Round(time.Minute), p.MaxSignalAge)
	}

	riskPerShare := sig.EntryPrice.Sub(sig.StopLoss).Abs()
	if riskPerShare.IsZero() || sig.EntryPrice.Sign() <= 0 {
		return trade.OrderPlan{}, reject(RejectInvalidStop,
			"entry %s and stop %s give zero risk per share", sig.EntryPrice, sig.StopLoss)
	}

	rr := riskReward(sig)
	if p.MinRiskReward.Sign() > 0 && rr.LessThan(p.MinRiskReward) {
		return trade.OrderPlan{}, reject(RejectRiskReward,
			"risk:reward %s below minimum %s", rr, p.MinRiskReward)
	}

	maxLoss := capitalAvailable.Mul(p.MaxRiskPct)
	qtyByRisk := maxLoss.Div(riskPerShare).Floor().IntPart()
	qtyByCapital := p.CapitalPerTrade.Div(sig.EntryPrice).Floor().IntPart()

	qty := qtyByRisk
	if qtyByCapital < qty {
		qty = qtyByCapital
	}
	if qty < 1 {
		return trade.OrderPlan{}, reject(RejectZeroQuantity,
			"max loss %s cannot afford one share at %s risk", maxLoss, riskPerShare)
	}

	return trade.OrderPlan{
		Signal:       sig,
		Quantity:     qty,
		RiskPerShare: riskPerShare,
		RiskAmount:   riskPerShare.Mul(decimal.NewFromInt(qty)),
	}, nil
}

// riskReward prefers the ratio carried on the signal; otherwise it is
// recomputed from the proposed levels.
func riskReward(sig trade.Signal) decimal.Decimal {
	if sig.RiskReward.Sign() > 0 {
		return sig.RiskReward
	}
	risk := sig.EntryPrice.Sub(sig.StopLoss).Abs()
	reward := sig.Target.Sub(sig.EntryPrice).Abs()
	if risk.IsZero() {
		return decimal.Zero
	}
	return reward.Div(risk)
}
