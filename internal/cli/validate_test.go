package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig writes a valid config rooted in dir and returns its path.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	doc := fmt.Sprintf(`
name: proposals
data_dir: %s
pool:
  size: 2
replication:
  replicas: 2
  interval: 50ms
backup:
  dir: %s
  interval: 1h
  retention_days: 30
writes:
  max_per_second: 95
  backoff: 10ms
`, filepath.Join(dir, "data"), filepath.Join(dir, "backups"))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	path := filepath.Join(dir, "ballast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestValidateValidConfig(t *testing.T) {
	path := writeTestConfig(t, t.TempDir())

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Config valid")
}

func TestValidateValidConfigJSON(t *testing.T) {
	path := writeTestConfig(t, t.TempDir())

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: proposals\n"), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ Invalid")
}

func TestValidateMissingFile(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "absent.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
}
