package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ballastdb/ballast/internal/backup"
	"github.com/ballastdb/ballast/internal/config"
	"github.com/ballastdb/ballast/internal/pool"
	"github.com/ballastdb/ballast/internal/ratelimit"
	"github.com/ballastdb/ballast/internal/replica"
	"github.com/ballastdb/ballast/internal/replication"
	"github.com/ballastdb/ballast/internal/store"
)

// Coordinator owns the full ballast runtime for one primary database.
type Coordinator struct {
	cfg     *config.Config
	primary *store.Store
	set     *replica.Set
	pool    *pool.Pool
	limiter *ratelimit.Limiter

	replicator *replication.Replicator
	backups    *backup.Manager
	backupD    *backup.Daemon

	started bool
}

// Health is a point-in-time snapshot of the runtime for status reporting.
type Health struct {
	ReplicaCount      int              `json:"replica_count"`
	ReplicaWatermarks map[string]int64 `json:"replica_watermarks"`
	CurrentWriteRate  int              `json:"current_write_rate"`
	MaxWriteRate      int              `json:"max_write_rate"`
	BackupCount       int              `json:"backup_count"`
	LastBackupTime    time.Time        `json:"last_backup_time"`
}

// Open builds the runtime from cfg: primary store, schema-primed
// replicas, connection pool, write gate and daemons. Daemons are built
// but not running until Start.
func Open(ctx context.Context, cfg *config.Config) (*Coordinator, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	primary, err := store.OpenPrimary(filepath.Join(cfg.DataDir, cfg.Name+".db"))
	if err != nil {
		return nil, err
	}

	descriptors := make([]*replica.Descriptor, 0, cfg.Replication.Replicas)
	fail := func(err error) (*Coordinator, error) {
		for _, d := range descriptors {
			d.Close()
		}
		primary.Close()
		return nil, err
	}

	for i := 1; i <= cfg.Replication.Replicas; i++ {
		id := fmt.Sprintf("replica%d", i)
		st, err := store.OpenReplica(filepath.Join(cfg.DataDir, fmt.Sprintf("%s_%s.db", cfg.Name, id)))
		if err != nil {
			return fail(err)
		}
		if err := primary.CopySchemaTo(ctx, st); err != nil {
			st.Close()
			return fail(err)
		}
		d, err := replica.NewDescriptor(ctx, id, st)
		if err != nil {
			st.Close()
			return fail(err)
		}
		descriptors = append(descriptors, d)
	}
	set := replica.NewSet(descriptors...)

	p, err := pool.New(ctx, primary, cfg.Pool.Size)
	if err != nil {
		return fail(err)
	}

	limiter := ratelimit.New(cfg.Writes.MaxPerSecond,
		ratelimit.WithBackoff(cfg.Writes.Backoff.Std()))
	backups := backup.NewManager(primary, cfg.Backup.Dir, cfg.Name, cfg.Retention())

	c := &Coordinator{
		cfg:        cfg,
		primary:    primary,
		set:        set,
		pool:       p,
		limiter:    limiter,
		replicator: replication.New(primary, set, cfg.Replication.Interval.Std()),
		backups:    backups,
		backupD:    backup.NewDaemon(backups, cfg.Backup.Interval.Std()),
	}
	slog.Info("coordinator open",
		"primary", primary.Path(),
		"replicas", set.Len(),
		"pool_size", cfg.Pool.Size)
	return c, nil
}

// Start launches the replication and backup daemons.
func (c *Coordinator) Start(ctx context.Context) {
	if c.started {
		return
	}
	c.started = true
	c.replicator.Start(ctx)
	c.backupD.Start(ctx)
	slog.Info("daemons started",
		"replication_interval", c.cfg.Replication.Interval.Std(),
		"backup_interval", c.cfg.Backup.Interval.Std())
}

// Close stops the daemons and closes the pool, replicas and primary.
// Safe to call whether or not Start ran.
func (c *Coordinator) Close() error {
	c.replicator.Stop()
	c.backupD.Stop()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(c.pool.Close())
	keep(c.set.Close())
	keep(c.primary.Close())
	return firstErr
}

// Primary exposes the primary store for schema setup and maintenance.
func (c *Coordinator) Primary() *store.Store { return c.primary }

// RecordWrite counts one write against the rate window, delaying the
// caller when the window is over its cap. Call it once per logical write
// before executing the statement.
func (c *Coordinator) RecordWrite(ctx context.Context) error {
	return c.limiter.AdmitWrite(ctx)
}

// SyncNow runs one replication cycle outside the daemon schedule.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	return c.replicator.RunCycle(ctx)
}

// TriggerBackup creates a backup immediately, outside the daemon
// schedule, and runs the retention sweep.
func (c *Coordinator) TriggerBackup(ctx context.Context) (backup.Artifact, error) {
	art, err := c.backups.Create(ctx)
	if err != nil {
		return backup.Artifact{}, err
	}
	if err := c.backups.Sweep(); err != nil {
		slog.Warn("retention sweep after manual backup", "error", err)
	}
	return art, nil
}

// Backups exposes the backup manager for listing and restore tooling.
func (c *Coordinator) Backups() *backup.Manager { return c.backups }

// HealthSnapshot reports replica lag, write pressure and backup state.
func (c *Coordinator) HealthSnapshot(ctx context.Context) (Health, error) {
	artifacts, err := c.backups.List()
	if err != nil {
		return Health{}, err
	}

	h := Health{
		ReplicaCount:      c.set.Len(),
		ReplicaWatermarks: c.set.Watermarks(),
		CurrentWriteRate:  c.limiter.CurrentRate(),
		MaxWriteRate:      c.limiter.MaxRate(),
		BackupCount:       len(artifacts),
	}
	if len(artifacts) > 0 {
		h.LastBackupTime = artifacts[0].CreatedAt
	}
	return h, nil
}
