package replica

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ballastdb/ballast/internal/store"
)

// metaSchema holds the replica's durable sync position. Single row, fixed
// id, so the watermark update is a plain upsert.
const metaSchema = `
	CREATE TABLE IF NOT EXISTS _ballast_sync (
		id        INTEGER PRIMARY KEY CHECK (id = 1),
		watermark INTEGER NOT NULL
	)
`

// Descriptor is one read replica: its store handle and sync watermark.
//
// Thread-safety: the watermark is guarded by a mutex because the
// replication daemon advances it while request handlers rank replicas.
// Only the replication daemon may call Advance.
type Descriptor struct {
	ID    string
	Store *store.Store

	mu        sync.Mutex
	watermark int64
}

// NewDescriptor wraps a replica store, creating the sync meta table if
// needed and loading the persisted watermark. A fresh replica starts at
// watermark zero and receives full history on its first cycle.
func NewDescriptor(ctx context.Context, id string, st *store.Store) (*Descriptor, error) {
	if _, err := st.DB().ExecContext(ctx, metaSchema); err != nil {
		return nil, fmt.Errorf("replica %s: create sync meta: %w", id, err)
	}

	d := &Descriptor{ID: id, Store: st}

	var w int64
	err := st.DB().QueryRowContext(ctx, "SELECT watermark FROM _ballast_sync WHERE id = 1").Scan(&w)
	switch {
	case err == nil:
		d.watermark = w
	case errors.Is(err, sql.ErrNoRows):
		// First open: no position recorded yet.
	default:
		return nil, fmt.Errorf("replica %s: load watermark: %w", id, err)
	}
	return d, nil
}

// Watermark returns the last-sync watermark.
func (d *Descriptor) Watermark() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watermark
}

// Advance moves the watermark forward to w, persisting it in the replica
// database before updating memory. Monotonic: a value at or below the
// current watermark is ignored, so retries after partial failures can
// never move a replica backwards.
func (d *Descriptor) Advance(ctx context.Context, w int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w <= d.watermark {
		return nil
	}
	_, err := d.Store.DB().ExecContext(ctx, `
		INSERT INTO _ballast_sync (id, watermark) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET watermark = excluded.watermark
	`, w)
	if err != nil {
		return fmt.Errorf("replica %s: persist watermark: %w", d.ID, err)
	}
	d.watermark = w
	return nil
}

// Close closes the underlying replica store.
func (d *Descriptor) Close() error {
	return d.Store.Close()
}

// Set is the process-lifetime collection of replica descriptors.
// Descriptors are created at startup and never added or removed, so the
// slice itself needs no lock; each descriptor locks its own watermark.
type Set struct {
	replicas []*Descriptor
}

// NewSet builds a set from the given descriptors.
func NewSet(replicas ...*Descriptor) *Set {
	return &Set{replicas: replicas}
}

// All returns the descriptors in startup order.
func (s *Set) All() []*Descriptor {
	return s.replicas
}

// Len returns the number of replicas.
func (s *Set) Len() int {
	return len(s.replicas)
}

// Freshest returns the replica with the most recent watermark, minimizing
// read staleness. Returns nil when the set is empty, in which case reads
// fall back to the primary. O(n) and re-evaluated per call; ties go to the
// earliest descriptor, which spreads exact ties across restarts.
func (s *Set) Freshest() *Descriptor {
	var best *Descriptor
	var bestW int64 = -1
	for _, d := range s.replicas {
		if w := d.Watermark(); w > bestW {
			best, bestW = d, w
		}
	}
	return best
}

// Watermarks returns a snapshot of every replica's watermark keyed by
// replica ID. Observability only.
func (s *Set) Watermarks() map[string]int64 {
	out := make(map[string]int64, len(s.replicas))
	for _, d := range s.replicas {
		out[d.ID] = d.Watermark()
	}
	return out
}

// Close closes every replica store, returning the first error.
func (s *Set) Close() error {
	var first error
	for _, d := range s.replicas {
		if err := d.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
