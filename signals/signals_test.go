package signals

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewheel/swingbot/trade"
)

func writeSignalFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "signals.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource(t *testing.T) {
	t.Parallel()

	path := writeSignalFile(t, `[
		{
			"symbol": "RELIANCE",
			"strategy": "VWAP_BREAKOUT",
			"direction": "BUY",
			"entry_price": "1400",
			"stop_loss": "1375",
			"target": "1450",
			"risk_reward": "2.0",
			"confidence": 0.8,
			"generated_at": "2026-08-31T09:30:00Z"
		},
		{
			"symbol": "TCS",
			"strategy": "SUPERTREND",
			"direction": "SELL",
			"entry_price": "3100.50",
			"stop_loss": "3150",
			"target": "3000"
		}
	]`)

	sigs, err := FileSource{Path: path}.Signals(context.Background())
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	assert.Equal(t, "RELIANCE", sigs[0].Symbol)
	assert.Equal(t, trade.Buy, sigs[0].Direction)
	assert.Equal(t, "1400", sigs[0].EntryPrice.String())
	assert.Equal(t, 0.8, sigs[0].Confidence)
	assert.False(t, sigs[0].GeneratedAt.IsZero())

	assert.Equal(t, trade.Sell, sigs[1].Direction)
	assert.Equal(t, "3100.5", sigs[1].EntryPrice.String())
}

func TestFileSourceEmptyArray(t *testing.T) {
	t.Parallel()

	path := writeSignalFile(t, `[]`)
	sigs, err := FileSource{Path: path}.Signals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestFileSourceMissingFile(t *testing.T) {
	t.Parallel()

	_, err := FileSource{Path: filepath.Join(t.TempDir(), "absent.json")}.Signals(context.Background())
	assert.Error(t, err)
}

func TestFileSourceMalformedJSON(t *testing.T) {
	t.Parallel()

	path := writeSignalFile(t, `{"not": "an array"}`)
	_, err := FileSource{Path: path}.Signals(context.Background())
	assert.Error(t, err)
}

func TestFileSourceRejectsBadSignal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{"missing symbol", `[{"strategy": "X", "direction": "BUY"}]`},
		{"bad direction", `[{"symbol": "RELIANCE", "direction": "HOLD"}]`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeSignalFile(t, tc.content)
			_, err := FileSource{Path: path}.Signals(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()

	src := Static{{Symbol: "INFY", Direction: trade.Buy}}
	sigs, err := src.Signals(context.Background())
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "INFY", sigs[0].Symbol)
}
