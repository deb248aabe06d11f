package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/ballastdb/ballast/internal/metrics"
)

const (
	// DefaultWindow is the admission window length.
	DefaultWindow = time.Second
	// DefaultBackoff is how long a throttled write waits before returning.
	DefaultBackoff = 10 * time.Millisecond
)

// Limiter is the shared write-rate window. One instance guards one
// primary; all write callers go through AdmitWrite.
//
// Thread-safety: the window state is guarded by a single mutex. The
// backoff sleep happens outside the lock so throttled writers do not
// serialize admitted ones.
type Limiter struct {
	maxRate int
	window  time.Duration
	backoff time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) error

	mu            sync.Mutex
	windowStart   time.Time
	count         int
	lastCompleted int
	completedOnce bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock. Tests use testutil.Clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleep overrides the throttle sleep. Tests record the delay instead
// of waiting it out.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// WithBackoff overrides the throttle delay.
func WithBackoff(d time.Duration) Option {
	return func(l *Limiter) { l.backoff = d }
}

// New creates a limiter admitting maxRate writes per one-second window.
func New(maxRate int, opts ...Option) *Limiter {
	l := &Limiter{
		maxRate: maxRate,
		window:  DefaultWindow,
		backoff: DefaultBackoff,
		now:     time.Now,
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()
	return l
}

// AdmitWrite counts one write against the current window. When the
// post-increment count exceeds the cap, the caller is delayed by the
// backoff before returning - throttling, not rejection. The only error is
// ctx cancellation during the backoff.
func (l *Limiter) AdmitWrite(ctx context.Context) error {
	l.mu.Lock()
	l.roll()
	l.count++
	throttled := l.count > l.maxRate
	l.mu.Unlock()

	if !throttled {
		return nil
	}
	metrics.WritesThrottled.Inc()
	return l.sleep(ctx, l.backoff)
}

// CurrentRate returns the last completed window's count, or the
// in-progress count if no window has completed yet. Observability only.
func (l *Limiter) CurrentRate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roll()
	if l.completedOnce {
		return l.lastCompleted
	}
	return l.count
}

// MaxRate returns the configured cap.
func (l *Limiter) MaxRate() int {
	return l.maxRate
}

// roll closes the window if it has aged out. When more than one full
// window has passed since the start, the window that just ended was idle,
// so the last completed count is zero. Caller holds l.mu.
func (l *Limiter) roll() {
	now := l.now()
	elapsed := now.Sub(l.windowStart)
	if elapsed < l.window {
		return
	}
	if elapsed >= 2*l.window {
		l.lastCompleted = 0
	} else {
		l.lastCompleted = l.count
	}
	l.completedOnce = true
	l.count = 0
	l.windowStart = now
}

// sleepCtx sleeps for d, waking early on ctx cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
