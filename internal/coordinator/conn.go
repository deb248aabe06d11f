package coordinator

import (
	"context"
	"database/sql"
	"log/slog"
)

// Conn is a routed database connection. Write connections come from the
// primary pool; read connections come from the freshest replica. Release
// must be called exactly once when done.
type Conn struct {
	conn    *sql.Conn
	source  string
	release func()
}

// Raw returns the underlying connection for queries and statements.
func (c *Conn) Raw() *sql.Conn { return c.conn }

// Source identifies where the connection points ("primary" or a replica
// ID). Diagnostic only.
func (c *Conn) Source() string { return c.source }

// Release returns a pooled connection to the pool, or closes a replica
// connection. Idempotent.
func (c *Conn) Release() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
}

// Connection routes a connection request. readOnly requests go to the
// replica with the highest watermark so reads see the freshest data the
// replica set has; with no replica available (none configured, or the
// chosen one cannot hand out a connection) they fall back to the primary.
// Write requests always come from the primary pool and may block until a
// pooled connection frees up or ctx expires.
func (c *Coordinator) Connection(ctx context.Context, readOnly bool) (*Conn, error) {
	if readOnly {
		if d := c.set.Freshest(); d != nil {
			conn, err := d.Store.Conn(ctx)
			if err == nil {
				return &Conn{
					conn:    conn,
					source:  d.ID,
					release: func() { conn.Close() },
				}, nil
			}
			slog.Warn("replica unavailable, reading from primary", "replica", d.ID, "error", err)
		}
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{
		conn:    conn,
		source:  "primary",
		release: func() { c.pool.Release(conn) },
	}, nil
}
