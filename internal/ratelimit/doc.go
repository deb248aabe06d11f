// Package ratelimit provides the write admission gate protecting the
// primary store from overload.
//
// The gate counts writes in a fixed one-second window. Writes above the
// configured cap are throttled - delayed by a small fixed backoff - never
// rejected: every write eventually proceeds, but burst throughput above
// the cap is smoothed.
package ratelimit
