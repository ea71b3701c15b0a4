package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/trade"
)

const positionColumns = `id, symbol, strategy, direction, status, entry_price, quantity,
	stop_loss, target, broker_order_id, opened_at, closed_at, exit_price, exit_reason, fail_reason, pnl`

// Get returns a single position by ID.
func (s *Store) Get(ctx context.Context, id string) (trade.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+positionColumns+`
		FROM positions WHERE id = ?`, id)

	p, err := scanPosition(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return trade.Position{}, fmt.Errorf("position %q not found", id)
		}
		return trade.Position{}, txErr("get", err)
	}
	return p, nil
}

// OpenPositions returns every OPEN position, oldest first. The monitoring
// loop re-evaluates this full set on each invocation.
func (s *Store) OpenPositions(ctx context.Context) ([]trade.Position, error) {
	return s.list(ctx, `
		SELECT `+positionColumns+`
		FROM positions WHERE status = ? ORDER BY opened_at ASC`,
		string(trade.StatusOpen))
}

// ListByStatus returns positions in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status trade.Status) ([]trade.Position, error) {
	return s.list(ctx, `
		SELECT `+positionColumns+`
		FROM positions WHERE status = ? ORDER BY opened_at ASC`,
		string(status))
}

// ListClosedBetween returns positions whose closed_at is within [start, end).
func (s *Store) ListClosedBetween(ctx context.Context, start, end time.Time) ([]trade.Position, error) {
	return s.list(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE closed_at >= ? AND closed_at < ?
		ORDER BY closed_at ASC`, start, end)
}

// ListOpenedBetween returns positions whose opened_at is within [start, end).
func (s *Store) ListOpenedBetween(ctx context.Context, start, end time.Time) ([]trade.Position, error) {
	return s.list(ctx, `
		SELECT `+positionColumns+`
		FROM positions
		WHERE opened_at >= ? AND opened_at < ?
		ORDER BY opened_at ASC`, start, end)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]trade.Position, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, txErr("list", err)
	}
	defer rows.Close()

	var out []trade.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, txErr("list", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, txErr("list", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (trade.Position, error) {
	var (
		p          trade.Position
		direction  string
		status     string
		entry      string
		stop       string
		target     string
		closedAt   sql.NullTime
		exitPrice  sql.NullString
		exitReason sql.NullString
		failReason sql.NullString
		pnl        sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.Symbol, &p.Strategy, &direction, &status, &entry, &p.Quantity,
		&stop, &target, &p.BrokerOrderID, &p.OpenedAt, &closedAt,
		&exitPrice, &exitReason, &failReason, &pnl,
	)
	if err != nil {
		return trade.Position{}, err
	}

	p.Direction = trade.Direction(direction)
	p.Status = trade.Status(status)

	if p.EntryPrice, err = decimal.NewFromString(entry); err != nil {
		return trade.Position{}, fmt.Errorf("entry_price: %w", err)
	}
	if p.StopLoss, err = decimal.NewFromString(stop); err != nil {
		return trade.Position{}, fmt.Errorf("stop_loss: %w", err)
	}
	if p.Target, err = decimal.NewFromString(target); err != nil {
		return trade.Position{}, fmt.Errorf("target: %w", err)
	}

	if closedAt.Valid {
		p.ClosedAt = closedAt.Time
	}
	if exitPrice.Valid && exitPrice.String != "" {
		if p.ExitPrice, err = decimal.NewFromString(exitPrice.String); err != nil {
			return trade.Position{}, fmt.Errorf("exit_price: %w", err)
		}
	}
	if exitReason.Valid {
		p.ExitReason = trade.ExitReason(exitReason.String)
	}
	if failReason.Valid {
		p.FailReason = failReason.String
	}
	if pnl.Valid && pnl.String != "" {
		if p.PnL, err = decimal.NewFromString(pnl.String); err != nil {
			return trade.Position{}, fmt.Errorf("pnl: %w", err)
		}
	}
	return p, nil
}
