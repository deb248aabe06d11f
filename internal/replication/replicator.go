package replication

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ballastdb/ballast/internal/metrics"
	"github.com/ballastdb/ballast/internal/replica"
	"github.com/ballastdb/ballast/internal/store"
)

// DefaultInterval is the gap between replication cycles.
const DefaultInterval = 5 * time.Second

// Replicator drives the replica set towards the primary.
type Replicator struct {
	primary  *store.Store
	set      *replica.Set
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a replicator syncing the set from the primary on the given
// interval.
func New(primary *store.Store, set *replica.Set, interval time.Duration) *Replicator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Replicator{primary: primary, set: set, interval: interval}
}

// Start launches the replication loop. The loop runs until Stop or until
// ctx is cancelled.
func (r *Replicator) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (r *Replicator) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Replicator) run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.RunCycle(ctx); err != nil {
			slog.Error("replication cycle", "error", err)
		}
	}
}

// RunCycle pushes pending changes to every replica once. A failure on one
// replica is recorded and the cycle moves on; the stuck replica keeps its
// old watermark and re-receives the batch next cycle. Returns the first
// per-replica error for observability. Only a cycle with no failures
// counts as completed.
func (r *Replicator) RunCycle(ctx context.Context) error {
	var firstErr error
	for _, d := range r.set.All() {
		if err := r.syncReplica(ctx, d); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			metrics.ReplicaFailures.WithLabelValues(d.ID).Inc()
			slog.Warn("replica sync failed", "replica", d.ID, "error", err)
		}
	}
	if firstErr == nil {
		metrics.ReplicationCycles.Inc()
	}
	return firstErr
}

// syncReplica applies one batch to one replica. The watermark advances
// only after the whole batch commits, so a partial failure replays the
// batch; the upserts are idempotent.
func (r *Replicator) syncReplica(ctx context.Context, d *replica.Descriptor) error {
	records, err := r.primary.ChangesSince(ctx, d.Watermark())
	if err != nil {
		return fmt.Errorf("extract changes: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	if err := d.Store.Apply(ctx, records); err != nil {
		return fmt.Errorf("apply batch: %w", err)
	}

	// Records are ordered by modification time; the last one is the new
	// watermark.
	if err := d.Advance(ctx, records[len(records)-1].ModifiedAt); err != nil {
		return err
	}
	metrics.RecordsReplicated.Add(float64(len(records)))
	return nil
}
