package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewheel/swingbot/pkg/id"
	"github.com/tradewheel/swingbot/trade"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.CloseDB() })

	return s, path
}

func testPosition(symbol, strategy string) trade.Position {
	return trade.Position{
		ID:         id.New(),
		Symbol:     symbol,
		Strategy:   strategy,
		Direction:  trade.Buy,
		EntryPrice: decimal.NewFromInt(1400),
		Quantity:   71,
		StopLoss:   decimal.NewFromInt(1375),
		Target:     decimal.NewFromInt(1450),
		OpenedAt:   time.Now().UTC(),
	}
}

func TestOpenEnablesWAL(t *testing.T) {
	t.Parallel()

	s, path := newTestStore(t)
	require.NoError(t, s.CloseDB())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestInsertPendingAndGet(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testPosition("RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &p))
	assert.Equal(t, trade.StatusPending, p.Status)

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, trade.StatusPending, got.Status)
	assert.True(t, got.EntryPrice.Equal(p.EntryPrice))
	assert.True(t, got.StopLoss.Equal(p.StopLoss))
	assert.Equal(t, int64(71), got.Quantity)
}

func TestInsertPendingDuplicateSlot(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	first := testPosition("RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &first))

	second := testPosition("RELIANCE", "VWAP_BREAKOUT")
	err := s.InsertPending(ctx, &second)
	assert.ErrorIs(t, err, ErrDuplicatePosition)

	// Same symbol under another strategy is a distinct slot.
	other := testPosition("RELIANCE", "SUPERTREND")
	assert.NoError(t, s.InsertPending(ctx, &other))
}

func TestInsertPendingConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	const attempts = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		inserted   int
		duplicates int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := testPosition("TCS", "VWAP_BREAKOUT")
			err := s.InsertPending(ctx, &p)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, ErrDuplicatePosition):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inserted)
	assert.Equal(t, attempts-1, duplicates)
}

func TestMarkOpen(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testPosition("INFY", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &p))

	fill := decimal.NewFromFloat(1401.50)
	require.NoError(t, s.MarkOpen(ctx, p.ID, "ORD-123", fill))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StatusOpen, got.Status)
	assert.Equal(t, "ORD-123", got.BrokerOrderID)
	assert.True(t, got.EntryPrice.Equal(fill))
}

func TestMarkOpenRequiresPending(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.MarkOpen(ctx, "missing", "ORD-1", decimal.NewFromInt(100))
	require.Error(t, err)

	var txErr *TxError
	assert.True(t, errors.As(err, &txErr))
	assert.Equal(t, "mark_open", txErr.Op)
}

func TestMarkFailedFreesSlot(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testPosition("SBIN", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &p))
	require.NoError(t, s.MarkFailed(ctx, p.ID, "insufficient funds"))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StatusFailed, got.Status)
	assert.Equal(t, "insufficient funds", got.FailReason)

	// The slot is free again for a later signal.
	retry := testPosition("SBIN", "VWAP_BREAKOUT")
	assert.NoError(t, s.InsertPending(ctx, &retry))
}

func TestCloseRoundTrip(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testPosition("RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &p))
	require.NoError(t, s.MarkOpen(ctx, p.ID, "ORD-9", p.EntryPrice))

	exit := decimal.NewFromInt(1450)
	pnl := decimal.NewFromInt(3550) // (1450-1400)*71
	closedAt := time.Now().UTC()
	require.NoError(t, s.Close(ctx, p.ID, exit, trade.ExitTarget, pnl, closedAt))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StatusClosed, got.Status)
	assert.True(t, got.ExitPrice.Equal(exit))
	assert.True(t, got.PnL.Equal(pnl))
	assert.Equal(t, trade.ExitTarget, got.ExitReason)
	assert.False(t, got.ClosedAt.IsZero())

	// Closing twice is an invariant violation, not a silent no-op.
	err = s.Close(ctx, p.ID, exit, trade.ExitTarget, pnl, closedAt)
	var txErr *TxError
	assert.True(t, errors.As(err, &txErr))
}

func TestCancel(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	p := testPosition("TCS", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &p))
	require.NoError(t, s.Cancel(ctx, p.ID, "operator abort"))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StatusCancelled, got.Status)
}

func TestCountOrdersToday(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	n, err := s.CountOrdersToday(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for i, sym := range []string{"RELIANCE", "TCS", "INFY"} {
		p := testPosition(sym, "VWAP_BREAKOUT")
		require.NoError(t, s.InsertPending(ctx, &p), "insert %d", i)
	}

	n, err = s.CountOrdersToday(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Yesterday's rows do not count against today.
	old := testPosition("SBIN", "VWAP_BREAKOUT")
	old.OpenedAt = now.AddDate(0, 0, -1)
	require.NoError(t, s.InsertPending(ctx, &old))

	n, err = s.CountOrdersToday(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestHasLiveSlot(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	taken, err := s.HasLiveSlot(ctx, "RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, err)
	assert.False(t, taken)

	p := testPosition("RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, s.InsertPending(ctx, &p))

	taken, err = s.HasLiveSlot(ctx, "RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, err)
	assert.True(t, taken)

	require.NoError(t, s.MarkFailed(ctx, p.ID, "rejected"))
	taken, err = s.HasLiveSlot(ctx, "RELIANCE", "VWAP_BREAKOUT")
	require.NoError(t, err)
	assert.False(t, taken)
}
