// Package pool provides the fixed-size connection pool guarding the
// primary store.
//
// The pool pre-creates a fixed set of dedicated connections at startup.
// Exhaustion blocks callers rather than failing; callers needing
// non-blocking behavior use TryAcquire or an Acquire context with a
// deadline. Closing the pool wakes every blocked acquirer with
// ErrPoolClosed.
package pool
