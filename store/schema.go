package store

// Prices and P&L are stored as decimal strings, never floats, so that
// values round-trip exactly. The partial unique index is the single
// serialization point for the one-live-position-per-(symbol,strategy)
// rule: concurrent inserts race on the index, not on a read-then-write.
const Schema = `
CREATE TABLE IF NOT EXISTS positions (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	strategy TEXT NOT NULL,
	direction TEXT NOT NULL,
	status TEXT NOT NULL,
	entry_price TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	stop_loss TEXT NOT NULL,
	target TEXT NOT NULL,
	broker_order_id TEXT NOT NULL DEFAULT '',
	opened_at DATETIME NOT NULL,
	closed_at DATETIME,
	exit_price TEXT,
	exit_reason TEXT,
	fail_reason TEXT,
	pnl TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_live_slot
	ON positions(symbol, strategy) WHERE status IN ('PENDING','OPEN');

CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
CREATE INDEX IF NOT EXISTS idx_positions_opened_at ON positions(opened_at);
CREATE INDEX IF NOT EXISTS idx_positions_closed_at ON positions(closed_at);
`
