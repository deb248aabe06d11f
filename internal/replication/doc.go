// Package replication pushes primary changes to the replica set.
//
// Each cycle extracts rows modified since a replica's watermark, upserts
// them onto that replica and advances the watermark to the newest applied
// modification time. Replication is one-way and last-write-wins; a
// failing replica is skipped for the cycle and retried on the next tick
// without holding up the others.
package replication
