// Package store provides the embedded SQLite layer for ballast.
//
// A Store wraps a single SQLite database file. The primary store is opened
// read-write with WAL mode; replica stores are opened with read-tuned
// pragmas and are only ever mutated by the replication daemon.
//
// The store is schema-agnostic. It moves whole rows between databases and
// interprets exactly two columns: "id" (TEXT primary key) and "modified_at"
// (INTEGER, Unix nanoseconds). Any table carrying both columns is a sync
// table and participates in change extraction and replication.
package store
