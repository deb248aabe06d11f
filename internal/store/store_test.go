package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// openTestPrimary creates a primary with the proposal schema used across
// the store tests. Two sync tables, one non-sync table.
func openTestPrimary(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "primary.db")

	s, err := OpenPrimary(path)
	if err != nil {
		t.Fatalf("OpenPrimary() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ddl := []string{
		`CREATE TABLE proposals (
			id TEXT PRIMARY KEY,
			title TEXT,
			status TEXT,
			modified_at INTEGER NOT NULL
		)`,
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT,
			modified_at INTEGER NOT NULL
		)`,
		`CREATE INDEX idx_proposals_modified ON proposals(modified_at)`,
		// No modified_at: must not participate in replication.
		`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT)`,
	}
	for _, stmt := range ddl {
		if _, err := s.DB().Exec(stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
	return s
}

func insertProposal(t *testing.T, s *Store, id, title string, modifiedAt int64) {
	t.Helper()
	_, err := s.DB().Exec(
		`INSERT OR REPLACE INTO proposals (id, title, status, modified_at) VALUES (?, ?, 'draft', ?)`,
		id, title, modifiedAt,
	)
	if err != nil {
		t.Fatalf("insert proposal %s failed: %v", id, err)
	}
}

func TestOpenPrimary_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := OpenPrimary(path)
	if err != nil {
		t.Fatalf("OpenPrimary() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Role() != RolePrimary {
		t.Errorf("Role() = %v, want RolePrimary", s.Role())
	}
}

func TestOpenPrimary_WALMode(t *testing.T) {
	s := openTestPrimary(t)

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want \"wal\"", mode)
	}
}

func TestOpenPrimary_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := OpenPrimary(path)
		if err != nil {
			t.Fatalf("OpenPrimary() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpenReplica_SynchronousOff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replica.db")

	s, err := OpenReplica(path)
	if err != nil {
		t.Fatalf("OpenReplica() failed: %v", err)
	}
	defer s.Close()

	var sync int
	if err := s.DB().QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatalf("query synchronous failed: %v", err)
	}
	if sync != 0 {
		t.Errorf("synchronous = %d, want 0 (OFF)", sync)
	}
	if s.Role() != RoleReplica {
		t.Errorf("Role() = %v, want RoleReplica", s.Role())
	}
}

func TestSyncTables_RequiresIDAndModifiedAt(t *testing.T) {
	s := openTestPrimary(t)

	tables, err := s.SyncTables(context.Background())
	if err != nil {
		t.Fatalf("SyncTables() failed: %v", err)
	}

	want := []string{"proposals", "users"}
	if len(tables) != len(want) {
		t.Fatalf("SyncTables() = %v, want %v", tables, want)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Errorf("SyncTables()[%d] = %q, want %q", i, tables[i], want[i])
		}
	}
}

func TestCopySchemaTo_PrimesReplica(t *testing.T) {
	primary := openTestPrimary(t)

	replica, err := OpenReplica(filepath.Join(t.TempDir(), "replica.db"))
	if err != nil {
		t.Fatalf("OpenReplica() failed: %v", err)
	}
	defer replica.Close()

	if err := primary.CopySchemaTo(context.Background(), replica); err != nil {
		t.Fatalf("CopySchemaTo() failed: %v", err)
	}

	tables, err := replica.SyncTables(context.Background())
	if err != nil {
		t.Fatalf("SyncTables() on replica failed: %v", err)
	}
	if len(tables) != 2 {
		t.Errorf("replica sync tables = %v, want [proposals users]", tables)
	}

	// Index DDL must carry over too.
	var name string
	err = replica.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_proposals_modified'",
	).Scan(&name)
	if err != nil {
		t.Errorf("index not copied to replica: %v", err)
	}

	// Copying twice is harmless.
	if err := primary.CopySchemaTo(context.Background(), replica); err != nil {
		t.Errorf("second CopySchemaTo() failed: %v", err)
	}
}

func TestMaxModifiedAt(t *testing.T) {
	s := openTestPrimary(t)
	ctx := context.Background()

	max, err := s.MaxModifiedAt(ctx)
	if err != nil {
		t.Fatalf("MaxModifiedAt() failed: %v", err)
	}
	if max != 0 {
		t.Errorf("empty store MaxModifiedAt() = %d, want 0", max)
	}

	insertProposal(t, s, "p1", "one", 100)
	insertProposal(t, s, "p2", "two", 300)
	if _, err := s.DB().Exec(
		`INSERT INTO users (id, email, modified_at) VALUES ('u1', 'a@b.c', 200)`,
	); err != nil {
		t.Fatalf("insert user failed: %v", err)
	}

	max, err = s.MaxModifiedAt(ctx)
	if err != nil {
		t.Fatalf("MaxModifiedAt() failed: %v", err)
	}
	if max != 300 {
		t.Errorf("MaxModifiedAt() = %d, want 300", max)
	}
}
