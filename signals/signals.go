// Package signals feeds the execution engine with strategy output. Signal
// generation itself is an external collaborator; this package only reads
// what a scanner produced.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tradewheel/swingbot/trade"
)

// Source yields the signals for one scan invocation.
type Source interface {
	Signals(ctx context.Context) ([]trade.Signal, error)
}

// FileSource reads a JSON array of signals written by the scanner process.
type FileSource struct {
	Path string
}

// Signals parses the signal file.
func (f FileSource) Signals(ctx context.Context) ([]trade.Signal, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read signal file: %w", err)
	}

	var sigs []trade.Signal
	if err := json.Unmarshal(data, &sigs); err != nil {
		return nil, fmt.Errorf("parse signal file %s: %w", f.Path, err)
	}

	for i, s := range sigs {
		if s.Symbol == "" || !s.Direction.Valid() {
			return nil, fmt.Errorf("signal %d in %s: missing symbol or bad direction", i, f.Path)
		}
	}
	return sigs, nil
}

// Static is a fixed in-memory source.
type Static []trade.Signal

// Signals returns the slice unchanged.
func (s Static) Signals(ctx context.Context) ([]trade.Signal, error) {
	return s, nil
}
