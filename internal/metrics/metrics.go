// Package metrics registers the ballast Prometheus instrumentation.
//
// Counters live on the default registry; embedding applications expose
// them through whatever handler they already serve.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReplicationCycles counts completed replication daemon cycles.
	ReplicationCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_replication_cycles_total",
		Help: "Completed replication cycles.",
	})

	// ReplicaFailures counts per-replica push failures, labeled by replica.
	ReplicaFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ballast_replica_failures_total",
		Help: "Failed pushes to a replica; the batch is retried next cycle.",
	}, []string{"replica"})

	// RecordsReplicated counts rows upserted onto replicas.
	RecordsReplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_records_replicated_total",
		Help: "Rows applied to replicas.",
	})

	// BackupsCreated counts successful snapshots, manual or scheduled.
	BackupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_backups_created_total",
		Help: "Successful backup snapshots.",
	})

	// BackupFailures counts failed snapshot attempts.
	BackupFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_backup_failures_total",
		Help: "Failed backup snapshots; retried next tick.",
	})

	// ArtifactsArchived counts retention-sweep archivals.
	ArtifactsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_backup_artifacts_archived_total",
		Help: "Backup artifacts moved to the archive by the retention sweep.",
	})

	// ArtifactsDeleted counts retention-sweep deletions.
	ArtifactsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_backup_artifacts_deleted_total",
		Help: "Backup artifacts permanently deleted by the retention sweep.",
	})

	// WritesThrottled counts writes delayed by the admission gate.
	WritesThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ballast_writes_throttled_total",
		Help: "Writes delayed because the rate window exceeded the cap.",
	})
)
