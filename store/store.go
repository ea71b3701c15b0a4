// Package store owns Position durability. It is the only shared mutable
// resource between the scan and monitor processes: SQLite in WAL mode keeps
// readers unblocked while a writer commits, and every status transition is a
// single short transaction so a crashed writer never leaves a row in a
// non-terminal ambiguous state.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tradewheel/swingbot/trade"
)

// Store is a SQLite-backed trade store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the trade store at path with WAL journaling and a
// busy timeout, and ensures the schema exists.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// InsertPending persists a new PENDING position. The check for an existing
// PENDING/OPEN position on the same (symbol, strategy) happens inside the
// insert itself via the partial unique index, so two near-simultaneous
// invocations cannot both claim the slot; the loser gets
// ErrDuplicatePosition.
func (s *Store) InsertPending(ctx context.Context, p *trade.Position) error {
	p.Status = trade.StatusPending

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions
		(id, symbol, strategy, direction, status, entry_price, quantity, stop_loss, target, broker_order_id, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Symbol, p.Strategy, string(p.Direction), string(p.Status),
		p.EntryPrice.String(), p.Quantity, p.StopLoss.String(), p.Target.String(),
		p.BrokerOrderID, p.OpenedAt,
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicatePosition
		}
		return txErr("insert_pending", err)
	}
	return nil
}

// MarkOpen promotes a PENDING position to OPEN after broker confirmation,
// recording the broker order ID and the confirmed entry price.
func (s *Store) MarkOpen(ctx context.Context, id, brokerOrderID string, entry decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, broker_order_id = ?, entry_price = ?
		WHERE id = ? AND status = ?`,
		string(trade.StatusOpen), brokerOrderID, entry.String(), id, string(trade.StatusPending),
	)
	if err != nil {
		return txErr("mark_open", err)
	}
	return s.requireOneRow(res, "mark_open", id)
}

// MarkFailed moves a PENDING position to terminal FAILED, freeing its
// (symbol, strategy) slot for a later signal.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, fail_reason = ?
		WHERE id = ? AND status = ?`,
		string(trade.StatusFailed), reason, id, string(trade.StatusPending),
	)
	if err != nil {
		return txErr("mark_failed", err)
	}
	return s.requireOneRow(res, "mark_failed", id)
}

// Close records the exit of an OPEN position. Only the monitoring loop or an
// explicit manual close moves a position to CLOSED.
func (s *Store) Close(ctx context.Context, id string, exitPrice decimal.Decimal, reason trade.ExitReason, pnl decimal.Decimal, closedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, exit_price = ?, exit_reason = ?, pnl = ?, closed_at = ?
		WHERE id = ? AND status = ?`,
		string(trade.StatusClosed), exitPrice.String(), string(reason), pnl.String(), closedAt,
		id, string(trade.StatusOpen),
	)
	if err != nil {
		return txErr("close", err)
	}
	return s.requireOneRow(res, "close", id)
}

// Cancel moves a PENDING position to terminal CANCELLED without a broker
// failure, used for manual intervention.
func (s *Store) Cancel(ctx context.Context, id, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET status = ?, fail_reason = ?
		WHERE id = ? AND status = ?`,
		string(trade.StatusCancelled), reason, id, string(trade.StatusPending),
	)
	if err != nil {
		return txErr("cancel", err)
	}
	return s.requireOneRow(res, "cancel", id)
}

// CountOrdersToday counts positions opened on the calendar day of now,
// regardless of how they ended. The daily ceiling is recomputed from rows
// rather than kept as a separate counter so it cannot drift.
func (s *Store) CountOrdersToday(ctx context.Context, now time.Time) (int, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM positions
		WHERE opened_at >= ? AND opened_at < ?`,
		start, end,
	).Scan(&n)
	if err != nil {
		return 0, txErr("count_orders_today", err)
	}
	return n, nil
}

// HasLiveSlot reports whether a PENDING or OPEN position exists for the
// (symbol, strategy) pair.
func (s *Store) HasLiveSlot(ctx context.Context, symbol, strategy string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM positions
		WHERE symbol = ? AND strategy = ? AND status IN (?, ?)`,
		symbol, strategy, string(trade.StatusPending), string(trade.StatusOpen),
	).Scan(&n)
	if err != nil {
		return false, txErr("has_live_slot", err)
	}
	return n > 0, nil
}

func (s *Store) requireOneRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return txErr(op, err)
	}
	if n == 0 {
		return txErr(op, fmt.Errorf("position %s not in expected status", id))
	}
	return nil
}

// CloseDB releases the underlying database handle.
func (s *Store) CloseDB() error {
	return s.db.Close()
}
