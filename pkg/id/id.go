// Package id generates time-sortable identifiers for positions and
// locally synthesized order IDs.
package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. ULIDs sort lexicographically by generation
// time, which keeps position IDs in insertion order under SQLite indexes.
func New() string {
	return ulid.Make().String()
}
