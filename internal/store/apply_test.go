package store

import (
	"context"
	"path/filepath"
	"testing"
)

// openPrimedReplica returns a replica carrying the primary's schema.
func openPrimedReplica(t *testing.T, primary *Store) *Store {
	t.Helper()
	replica, err := OpenReplica(filepath.Join(t.TempDir(), "replica.db"))
	if err != nil {
		t.Fatalf("OpenReplica() failed: %v", err)
	}
	t.Cleanup(func() { replica.Close() })

	if err := primary.CopySchemaTo(context.Background(), replica); err != nil {
		t.Fatalf("CopySchemaTo() failed: %v", err)
	}
	return replica
}

func TestApply_InsertsNewRows(t *testing.T) {
	primary := openTestPrimary(t)
	replica := openPrimedReplica(t, primary)
	ctx := context.Background()

	insertProposal(t, primary, "p1", "one", 100)
	recs, err := primary.ChangesSince(ctx, 0)
	if err != nil {
		t.Fatalf("ChangesSince() failed: %v", err)
	}

	if err := replica.Apply(ctx, recs); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	var title string
	if err := replica.DB().QueryRow(
		"SELECT title FROM proposals WHERE id = 'p1'",
	).Scan(&title); err != nil {
		t.Fatalf("replica row missing: %v", err)
	}
	if title != "one" {
		t.Errorf("title = %q, want \"one\"", title)
	}
}

func TestApply_ReplacesByIdentifier(t *testing.T) {
	primary := openTestPrimary(t)
	replica := openPrimedReplica(t, primary)
	ctx := context.Background()

	insertProposal(t, primary, "p1", "old", 100)
	recs, _ := primary.ChangesSince(ctx, 0)
	if err := replica.Apply(ctx, recs); err != nil {
		t.Fatalf("first Apply() failed: %v", err)
	}

	// Overwrite on the primary, re-extract, re-apply: last write wins.
	insertProposal(t, primary, "p1", "new", 200)
	recs, _ = primary.ChangesSince(ctx, 100)
	if err := replica.Apply(ctx, recs); err != nil {
		t.Fatalf("second Apply() failed: %v", err)
	}

	var title string
	var count int
	if err := replica.DB().QueryRow(
		"SELECT title FROM proposals WHERE id = 'p1'",
	).Scan(&title); err != nil {
		t.Fatalf("replica row missing: %v", err)
	}
	if title != "new" {
		t.Errorf("title = %q, want \"new\"", title)
	}
	if err := replica.DB().QueryRow("SELECT COUNT(*) FROM proposals").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1 (replace, not duplicate)", count)
	}
}

func TestApply_EmptyBatchIsNoOp(t *testing.T) {
	primary := openTestPrimary(t)
	replica := openPrimedReplica(t, primary)

	if err := replica.Apply(context.Background(), nil); err != nil {
		t.Errorf("Apply(nil) failed: %v", err)
	}
}

func TestApply_BatchIsAtomic(t *testing.T) {
	primary := openTestPrimary(t)
	replica := openPrimedReplica(t, primary)
	ctx := context.Background()

	good := Record{
		Table:      "proposals",
		ID:         "p1",
		ModifiedAt: 100,
		Columns:    []string{"id", "title", "status", "modified_at"},
		Values:     []any{"p1", "ok", "draft", int64(100)},
	}
	bad := Record{
		Table:      "nowhere", // table does not exist on the replica
		ID:         "x",
		ModifiedAt: 200,
		Columns:    []string{"id", "modified_at"},
		Values:     []any{"x", int64(200)},
	}

	if err := replica.Apply(ctx, []Record{good, bad}); err == nil {
		t.Fatal("Apply() with broken record succeeded, want error")
	}

	// The good record must have been rolled back with the batch.
	var count int
	if err := replica.DB().QueryRow("SELECT COUNT(*) FROM proposals").Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("row count after failed batch = %d, want 0", count)
	}
}
