// Package alert delivers fire-and-forget trade notifications. Delivery
// failures are retried a bounded number of times with backoff, then logged
// and swallowed; alerting must never abort trade execution or monitoring.
package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/trade"
)

// Kind distinguishes the three alert payloads the engine emits.
type Kind string

const (
	KindEntry   Kind = "ENTRY"
	KindExit    Kind = "EXIT"
	KindFailure Kind = "FAILURE"
)

// Alert is the structured payload for a trade event.
type Alert struct {
	Kind       Kind
	Symbol     string
	Direction  trade.Direction
	Price      decimal.Decimal
	Quantity   int64
	StopLoss   decimal.Decimal
	Target     decimal.Decimal
	Reason     string
	PositionID string
	PnL        decimal.Decimal
}

// Transport delivers a rendered message to one destination.
type Transport interface {
	Send(ctx context.Context, text string) error
}

// Sink formats and delivers alerts through a Transport. Notify and Note
// never return an error to the caller.
type Sink struct {
	transport Transport
	retries   int
	backoff   time.Duration
}

// NewSink wraps a transport with bounded retry. retries is the number of
// re-attempts after the first failure.
func NewSink(t Transport, retries int, backoff time.Duration) *Sink {
	if retries < 0 {
		retries = 0
	}
	return &Sink{transport: t, retries: retries, backoff: backoff}
}

// Notify renders and delivers a trade alert.
func (s *Sink) Notify(ctx context.Context, a Alert) {
	s.deliver(ctx, a.render())
}

// Note delivers a plain informational message, used for startup and
// end-of-run summaries.
func (s *Sink) Note(ctx context.Context, format string, args ...any) {
	s.deliver(ctx, fmt.Sprintf(format, args...))
}

func (s *Sink) deliver(ctx context.Context, text string) {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				log.Printf("alert: delivery abandoned: %v", ctx.Err())
				return
			case <-time.After(s.backoff * time.Duration(attempt)):
			}
		}
		if err = s.transport.Send(ctx, text); err == nil {
			return
		}
	}
	log.Printf("alert: delivery failed after %d attempts: %v", s.retries+1, err)
}

func (a Alert) render() string {
	switch a.Kind {
	case KindEntry:
		emoji := "🟢"
		if a.Direction == trade.Sell {
			emoji = "🔴"
		}
		return fmt.Sprintf(
			"%s <b>TRADE EXECUTED</b>\n\n📈 %s %s\n📦 Qty: %d\n💰 Entry: ₹%s\n🛑 Stop: ₹%s\n🎯 Target: ₹%s\n🔖 Position: %s",
			emoji, a.Direction, a.Symbol, a.Quantity, a.Price, a.StopLoss, a.Target, a.PositionID)
	case KindExit:
		emoji := "🟢"
		if a.PnL.Sign() < 0 {
			emoji = "🔴"
		}
		return fmt.Sprintf(
			"%s <b>POSITION CLOSED</b> (%s)\n\n📈 %s\n💰 Exit: ₹%s\n📊 PnL: ₹%s\n🔖 Position: %s",
			emoji, a.Reason, a.Symbol, a.Price, a.PnL, a.PositionID)
	default:
		return fmt.Sprintf(
			"❌ <b>ORDER FAILED</b>\n\n📈 %s %s\n⚠️ %s\n🔖 Position: %s",
			a.Direction, a.Symbol, a.Reason, a.PositionID)
	}
}
