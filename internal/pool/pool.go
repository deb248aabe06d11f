package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ballastdb/ballast/internal/store"
)

var (
	// ErrPoolClosed is returned to acquirers, blocked or not, once the pool
	// has shut down. Fatal for the caller: the system is going away.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrPoolExhausted is returned by TryAcquire when no connection is
	// free. Transient: the caller should retry or fall back to Acquire.
	ErrPoolExhausted = errors.New("pool: exhausted")
)

// Pool is a fixed-size set of dedicated primary-store connections.
//
// Thread-safety: all methods are safe for concurrent use. Ownership of a
// connection is exclusive between Acquire and Release.
type Pool struct {
	mu     sync.Mutex
	db     *sql.DB
	conns  chan *sql.Conn
	done   chan struct{}
	size   int
	closed bool
}

// New creates a pool of size dedicated connections to the primary store.
// The pool opens its own handle on the store's file (the store handle is
// capped at one connection). All connections are established up front; a
// failure tears down the ones already opened.
func New(ctx context.Context, primary *store.Store, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("pool: size must be positive, got %d", size)
	}

	db, err := primary.PoolHandle(size)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}

	p := &Pool{
		db:    db,
		conns: make(chan *sql.Conn, size),
		done:  make(chan struct{}),
		size:  size,
	}
	for i := 0; i < size; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("pool: open connection %d: %w", i, err)
		}
		p.conns <- conn
	}
	return p, nil
}

// Acquire blocks until a connection is available and returns exclusive
// ownership of it. Wakes with ErrPoolClosed if the pool shuts down while
// waiting, or with ctx.Err() on cancellation.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case conn := <-p.conns:
		// Close may have raced us; do not hand out a connection the pool
		// no longer owns.
		if p.isClosed() {
			conn.Close()
			return nil, ErrPoolClosed
		}
		return conn, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire is the non-blocking form of Acquire.
func (p *Pool) TryAcquire() (*sql.Conn, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case conn := <-p.conns:
		if p.isClosed() {
			conn.Close()
			return nil, ErrPoolClosed
		}
		return conn, nil
	default:
		return nil, ErrPoolExhausted
	}
}

// Release returns a connection to the pool and wakes one waiter.
// Releasing into a closed pool closes the connection instead.
func (p *Pool) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	if p.isClosed() {
		conn.Close()
		return
	}
	select {
	case p.conns <- conn:
	default:
		// More releases than acquires is a caller bug; drop the surplus
		// connection rather than block.
		conn.Close()
	}
}

// Close shuts the pool down: blocked acquirers wake with ErrPoolClosed and
// all idle connections are closed. Connections currently held by callers
// are closed when released. Idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	for {
		select {
		case conn := <-p.conns:
			conn.Close()
		default:
			return p.db.Close()
		}
	}
}

// Size returns the fixed pool capacity.
func (p *Pool) Size() int {
	return p.size
}

// Idle returns the number of currently idle connections.
// Observability only; the value is stale the moment it returns.
func (p *Pool) Idle() int {
	return len(p.conns)
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
