package backup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Daemon periodically snapshots the primary and runs the retention sweep.
type Daemon struct {
	manager  *Manager
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDaemon creates a daemon that backs up on the given interval.
func NewDaemon(m *Manager, interval time.Duration) *Daemon {
	return &Daemon{manager: m, interval: interval}
}

// Start launches the backup loop. The loop runs until Stop or until ctx
// is cancelled.
func (d *Daemon) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (d *Daemon) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	d.wg.Wait()
}

// run is the daemon loop. A failed cycle is logged and retried on the
// next tick; it never stops the loop.
func (d *Daemon) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := d.manager.Create(ctx); err != nil {
			slog.Error("scheduled backup failed", "error", err)
			continue
		}
		if err := d.manager.Sweep(); err != nil {
			slog.Error("retention sweep failed", "error", err)
		}
	}
}
