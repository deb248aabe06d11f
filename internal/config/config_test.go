package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
name: proposals
data_dir: /var/lib/ballast
pool:
  size: 20
replication:
  replicas: 3
  interval: 5s
backup:
  dir: /var/lib/ballast/backups
  interval: 60s
  retention_days: 30
writes:
  max_per_second: 95
  backoff: 10ms
`

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, 3, c.Replication.Replicas)
	assert.Equal(t, 5*time.Second, c.Replication.Interval.Std())
	assert.Equal(t, 60*time.Second, c.Backup.Interval.Std())
	assert.Equal(t, 30, c.Backup.RetentionDays)
	assert.Equal(t, 95, c.Writes.MaxPerSecond)
	assert.Equal(t, 10*time.Millisecond, c.Writes.Backoff.Std())
	assert.Equal(t, 20, c.Pool.Size)
}

func TestParse_Valid(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "proposals", c.Name)
	assert.Equal(t, "/var/lib/ballast", c.DataDir)
	assert.Equal(t, 5*time.Second, c.Replication.Interval.Std())
	assert.Equal(t, 30*24*time.Hour, c.Retention())
}

func TestParse_RejectsMissingField(t *testing.T) {
	const missingBackup = `
name: proposals
data_dir: /var/lib/ballast
pool:
  size: 20
replication:
  replicas: 3
  interval: 5s
writes:
  max_per_second: 95
  backoff: 10ms
`
	_, err := Parse([]byte(missingBackup))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestParse_RejectsZeroRetention(t *testing.T) {
	_, err := Parse([]byte(mutate(t, "retention_days: 30", "retention_days: 0")))
	require.Error(t, err)
}

func TestParse_RejectsBadName(t *testing.T) {
	_, err := Parse([]byte(mutate(t, "name: proposals", "name: 'no spaces allowed'")))
	require.Error(t, err)
}

func TestParse_RejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte(mutate(t, "interval: 5s", "interval: soon")))
	require.Error(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballast.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "proposals", c.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// mutate returns validYAML with one line swapped out.
func mutate(t *testing.T, old, new string) string {
	t.Helper()
	require.Contains(t, validYAML, old)
	return strings.Replace(validYAML, old, new, 1)
}
