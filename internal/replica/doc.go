// Package replica tracks the read replica set.
//
// Each replica carries a last-sync watermark: the modified_at of the newest
// primary change known to be applied to it. The watermark is owned by the
// replication daemon, persisted in the replica database itself (so a
// process restart resumes instead of re-replicating history), and read by
// the router to rank replicas by freshness.
package replica
