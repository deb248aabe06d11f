package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// timestampLayout is the sortable suffix on artifact filenames, so plain
// name ordering doubles as newest/oldest discovery.
const timestampLayout = "20060102_150405"

// manifestSuffix is appended to the artifact path for its sidecar.
const manifestSuffix = ".manifest.json"

// Artifact is one backup snapshot on disk. Immutable once written; only
// the retention sweep moves or deletes it.
type Artifact struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// Manifest is the sidecar metadata written next to each artifact.
type Manifest struct {
	ID        string    `json:"id"` // generation UUID
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	Source    string    `json:"source"` // primary database path
}

// writeManifest writes the sidecar next to the artifact.
func writeManifest(artifactPath string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(artifactPath+manifestSuffix, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest reads the sidecar for an artifact. Returns os.ErrNotExist
// if the artifact has no manifest (e.g. written by an older version).
func ReadManifest(artifactPath string) (*Manifest, error) {
	data, err := os.ReadFile(artifactPath + manifestSuffix)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", artifactPath+manifestSuffix, err)
	}
	return &m, nil
}

// listArtifacts returns the backup artifacts in dir named
// <name>_<timestamp>.db, newest first. A missing directory is an empty
// list, not an error.
func listArtifacts(dir, name string) ([]Artifact, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	prefix := name + "_"
	var artifacts []Artifact
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fn := entry.Name()
		if !strings.HasPrefix(fn, prefix) || !strings.HasSuffix(fn, ".db") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat backup %s: %w", fn, err)
		}

		createdAt := info.ModTime()
		stamp := strings.TrimSuffix(strings.TrimPrefix(fn, prefix), ".db")
		if ts, err := time.ParseInLocation(timestampLayout, stamp, time.UTC); err == nil {
			createdAt = ts
		}

		artifacts = append(artifacts, Artifact{
			Path:      filepath.Join(dir, fn),
			CreatedAt: createdAt,
			SizeBytes: info.Size(),
		})
	}

	// Sortable timestamp suffix: reverse name order is newest first.
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Path > artifacts[j].Path
	})
	return artifacts, nil
}
