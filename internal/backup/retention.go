package backup

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ballastdb/ballast/internal/metrics"
)

// Sweep applies the retention policy. Active artifacts whose timestamp is
// older than the retention period move into archive/; archived artifacts
// older than twice the retention period are deleted. Manifests travel
// with their artifacts. Errors on one artifact do not stop the sweep.
func (m *Manager) Sweep() error {
	now := m.now().UTC()
	archiveCutoff := now.Add(-m.retention)
	deleteCutoff := now.Add(-2 * m.retention)

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
		slog.Warn("retention sweep", "error", err)
	}

	active, err := m.List()
	if err != nil {
		return err
	}
	for _, art := range active {
		if !art.CreatedAt.Before(archiveCutoff) {
			continue
		}
		if err := m.archive(art); err != nil {
			keep(err)
		}
	}

	archived, err := m.ListArchived()
	if err != nil {
		keep(err)
		return firstErr
	}
	for _, art := range archived {
		if !art.CreatedAt.Before(deleteCutoff) {
			continue
		}
		if err := remove(art); err != nil {
			keep(err)
		}
	}
	return firstErr
}

// archive moves an artifact and its manifest into the archive directory.
func (m *Manager) archive(art Artifact) error {
	if err := os.MkdirAll(m.archiveDir(), 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	dst := filepath.Join(m.archiveDir(), filepath.Base(art.Path))
	if err := os.Rename(art.Path, dst); err != nil {
		return fmt.Errorf("archive %s: %w", filepath.Base(art.Path), err)
	}
	if err := os.Rename(art.Path+manifestSuffix, dst+manifestSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("archive manifest for %s: %w", filepath.Base(art.Path), err)
	}
	metrics.ArtifactsArchived.Inc()
	slog.Info("backup archived", "artifact", filepath.Base(art.Path))
	return nil
}

// remove permanently deletes an archived artifact and its manifest.
func remove(art Artifact) error {
	if err := os.Remove(art.Path); err != nil {
		return fmt.Errorf("delete %s: %w", filepath.Base(art.Path), err)
	}
	if err := os.Remove(art.Path + manifestSuffix); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete manifest for %s: %w", filepath.Base(art.Path), err)
	}
	metrics.ArtifactsDeleted.Inc()
	slog.Info("backup deleted", "artifact", filepath.Base(art.Path))
	return nil
}
