// Package backup provides snapshot backups of the primary store with
// age-based retention.
//
// The daemon snapshots the primary to a timestamped file on a fixed
// interval and then runs the retention sweep: artifacts older than the
// retention period move to an archive directory, and archived artifacts
// older than twice the retention period are permanently deleted. Manual
// backups reuse the identical snapshot routine.
//
// Every artifact gets a sidecar manifest with a generation ID, size and
// SHA-256 checksum; restore verifies the checksum before copying a
// snapshot back over the primary.
package backup
