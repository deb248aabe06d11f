package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Snapshot writes a full point-in-time copy of the database to dstPath
// using VACUUM INTO. The copy is transactionally consistent: SQLite takes
// a read transaction for the duration, so concurrent writers are not
// blocked in WAL mode.
//
// The destination must not exist; VACUUM INTO refuses to overwrite. A
// half-written file from an earlier failure is removed first.
func (s *Store) Snapshot(ctx context.Context, dstPath string) error {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if _, err := os.Stat(dstPath); err == nil {
		if err := os.Remove(dstPath); err != nil {
			return fmt.Errorf("snapshot: remove stale file: %w", err)
		}
	}

	// Path is passed as a bound parameter; VACUUM INTO accepts an
	// expression, so no quoting is needed.
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dstPath); err != nil {
		return fmt.Errorf("snapshot to %s: %w", dstPath, err)
	}
	return nil
}
