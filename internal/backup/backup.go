package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ballastdb/ballast/internal/metrics"
	"github.com/ballastdb/ballast/internal/store"
)

// Manager creates, lists and expires backup artifacts for one primary.
type Manager struct {
	primary   *store.Store
	dir       string
	name      string
	retention time.Duration

	now func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the wall clock used for artifact naming and
// retention cutoffs.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a backup manager writing <name>_<timestamp>.db
// artifacts into dir. Artifacts older than retention are archived;
// archived artifacts older than twice retention are deleted.
func NewManager(primary *store.Store, dir, name string, retention time.Duration, opts ...Option) *Manager {
	m := &Manager{
		primary:   primary,
		dir:       dir,
		name:      name,
		retention: retention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the backup directory.
func (m *Manager) Dir() string { return m.dir }

// archiveDir is where the retention sweep moves aged artifacts.
func (m *Manager) archiveDir() string { return filepath.Join(m.dir, "archive") }

// Create snapshots the primary into a new timestamped artifact and writes
// its manifest. Scheduled and manual backups both come through here.
func (m *Manager) Create(ctx context.Context) (Artifact, error) {
	createdAt := m.now().UTC()
	filename := fmt.Sprintf("%s_%s.db", m.name, createdAt.Format(timestampLayout))
	path := filepath.Join(m.dir, filename)

	if err := m.primary.Snapshot(ctx, path); err != nil {
		metrics.BackupFailures.Inc()
		return Artifact{}, fmt.Errorf("backup %s: %w", filename, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		metrics.BackupFailures.Inc()
		return Artifact{}, fmt.Errorf("stat backup %s: %w", filename, err)
	}

	sum, err := checksumFile(path)
	if err != nil {
		metrics.BackupFailures.Inc()
		return Artifact{}, err
	}
	if err := writeManifest(path, &Manifest{
		ID:        uuid.NewString(),
		Filename:  filename,
		CreatedAt: createdAt,
		SizeBytes: info.Size(),
		SHA256:    sum,
		Source:    m.primary.Path(),
	}); err != nil {
		metrics.BackupFailures.Inc()
		return Artifact{}, err
	}

	metrics.BackupsCreated.Inc()
	slog.Info("backup created", "artifact", filename, "size_bytes", info.Size())
	return Artifact{Path: path, CreatedAt: createdAt, SizeBytes: info.Size()}, nil
}

// List returns the active (non-archived) artifacts, newest first.
func (m *Manager) List() ([]Artifact, error) {
	return listArtifacts(m.dir, m.name)
}

// ListArchived returns the archived artifacts, newest first.
func (m *Manager) ListArchived() ([]Artifact, error) {
	return listArtifacts(m.archiveDir(), m.name)
}

// Restore copies the artifact at artifactPath over dstPath, replacing the
// database there. When a manifest is present the artifact checksum is
// verified first. The target database must not be open.
func Restore(artifactPath, dstPath string) error {
	manifest, err := ReadManifest(artifactPath)
	switch {
	case os.IsNotExist(err):
		// Pre-manifest artifact; restore unverified.
	case err != nil:
		return err
	default:
		sum, err := checksumFile(artifactPath)
		if err != nil {
			return err
		}
		if sum != manifest.SHA256 {
			return fmt.Errorf("restore %s: checksum mismatch, artifact is corrupt", filepath.Base(artifactPath))
		}
	}

	// Stale WAL and shm files would shadow the restored content.
	for _, p := range []string{dstPath, dstPath + "-wal", dstPath + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	if err := copyFile(artifactPath, dstPath); err != nil {
		return fmt.Errorf("restore %s: %w", filepath.Base(artifactPath), err)
	}
	slog.Info("backup restored", "artifact", filepath.Base(artifactPath), "target", dstPath)
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("checksum %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
