// Package coordinator assembles the primary, replicas, pool, limiter and
// daemons into one runtime and routes connections between them.
//
// Writes go through the pooled primary connections behind the write-rate
// gate; reads go to the freshest replica, falling back to the primary
// when no replica exists. Open wires everything, Start launches the
// replication and backup daemons, Close tears it all down in reverse.
package coordinator
