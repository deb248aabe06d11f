package store

import (
	"errors"
	"fmt"
)

// Record is one replicable row. The coordinator never interprets columns
// beyond the identifier and the watermark; Columns and Values carry the
// whole row in table column order so replicas receive byte-identical data.
type Record struct {
	Table      string
	ID         string
	ModifiedAt int64 // Unix nanoseconds
	Columns    []string
	Values     []any
}

// ErrMissingField is returned when a row lacks the id or modified_at
// column, or carries a NULL where the sync convention requires a value.
// Rejected at the store boundary rather than at propagation time.
var ErrMissingField = errors.New("store: row missing id or modified_at")

// validate checks the sync-column convention on a scanned row.
func (r *Record) validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: table %s has row with empty id", ErrMissingField, r.Table)
	}
	if r.ModifiedAt == 0 {
		return fmt.Errorf("%w: table %s row %s has no modified_at", ErrMissingField, r.Table, r.ID)
	}
	return nil
}
