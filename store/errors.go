package store

import (
	"errors"
	"fmt"
)

// ErrDuplicatePosition is returned by InsertPending when a PENDING or OPEN
// position already holds the (symbol, strategy) slot.
var ErrDuplicatePosition = errors.New("open or pending position already exists for symbol/strategy")

// TxError reports a failed store transaction. It means the durability
// guarantee may be compromised, so callers must treat it as fatal for the
// current invocation instead of proceeding with ambiguous state.
type TxError struct {
	Op  string
	Err error
}

func (e *TxError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *TxError) Unwrap() error { return e.Err }

func txErr(op string, err error) error {
	return &TxError{Op: op, Err: err}
}
