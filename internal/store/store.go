package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Role distinguishes how a store is opened and tuned.
type Role int

const (
	// RolePrimary is the single writable source of truth.
	RolePrimary Role = iota
	// RoleReplica is a read store kept in sync by the replication daemon.
	RoleReplica
)

// Store wraps a single SQLite database file.
type Store struct {
	db   *sql.DB
	path string
	role Role
}

// OpenPrimary opens (or creates) the primary database.
//
// The primary is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - in-memory temp store and a 10000-page cache
//
// This function is idempotent - safe to call multiple times.
func OpenPrimary(path string) (*Store, error) {
	return open(path, RolePrimary, []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA cache_size = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	})
}

// OpenReplica opens (or creates) a replica database.
//
// Replicas trade durability for read throughput: the replication daemon can
// always rebuild them from the primary, so synchronous mode is OFF and the
// page cache is larger than the primary's.
func OpenReplica(path string) (*Store, error) {
	return open(path, RoleReplica, []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = OFF",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA cache_size = 20000",
		"PRAGMA temp_store = MEMORY",
	})
}

func open(path string, role Role, pragmas []string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY between the daemon and direct store calls. Request
	// handlers use their own dedicated connections via the pool package.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &Store{db: db, path: path, role: role}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Role returns whether the store is the primary or a replica.
func (s *Store) Role() Role {
	return s.role
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Conn returns a dedicated connection from the underlying database.
// The handle is capped at one open connection, so hold it briefly.
func (s *Store) Conn(ctx context.Context) (*sql.Conn, error) {
	return s.db.Conn(ctx)
}

// PoolHandle opens a second handle on the same file, sized for size
// concurrent connections. The store's own handle stays capped at one
// connection; pools get their own. Pragmas ride the DSN because Exec
// would only configure whichever connection it happened to land on.
func (s *Store) PoolHandle(size int) (*sql.DB, error) {
	params := "?_journal_mode=WAL&_busy_timeout=5000&_cache_size=10000"
	switch s.role {
	case RolePrimary:
		params += "&_synchronous=NORMAL&_foreign_keys=on"
	case RoleReplica:
		params += "&_synchronous=OFF"
	}

	db, err := sql.Open("sqlite3", "file:"+s.path+params)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool handle: %w", err)
	}
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect pool handle: %w", err)
	}
	return db, nil
}

// SyncTables returns the names of all tables that participate in
// replication: user tables carrying both an "id" and a "modified_at"
// column. Internal sqlite_* and _ballast_* tables are skipped.
//
// The result is sorted by name so replication cycles visit tables in a
// deterministic order.
func (s *Store) SyncTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name NOT LIKE '\_ballast\_%' ESCAPE '\'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var tables []string
	for _, name := range names {
		ok, err := s.hasSyncColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

// hasSyncColumns reports whether a table has both "id" and "modified_at".
func (s *Store) hasSyncColumns(ctx context.Context, table string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return false, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	var hasID, hasModified bool
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("table info %s: %w", table, err)
		}
		switch name {
		case "id":
			hasID = true
		case "modified_at":
			hasModified = true
		}
	}
	return hasID && hasModified, rows.Err()
}

// CopySchemaTo replays this store's table and index DDL onto dst.
// Used to prime a freshly created replica before its first sync cycle.
// Existing objects on dst are left alone (CREATE ... IF NOT EXISTS is not
// required because a fresh replica has no user objects).
func (s *Store) CopySchemaTo(ctx context.Context, dst *Store) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sql FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND name NOT LIKE '\_ballast\_%' ESCAPE '\'
		ORDER BY CASE type WHEN 'table' THEN 0 ELSE 1 END, name
	`)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	var ddl []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		ddl = append(ddl, stmt)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	for _, stmt := range ddl {
		if _, err := dst.db.ExecContext(ctx, stmt); err != nil {
			// A replica that already carries the schema is fine.
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return fmt.Errorf("apply schema to %s: %w", dst.path, err)
		}
	}
	return nil
}

// MaxModifiedAt returns the newest modified_at across all sync tables,
// i.e. the primary's commit watermark. Returns the zero value when the
// store holds no replicable rows.
func (s *Store) MaxModifiedAt(ctx context.Context) (int64, error) {
	tables, err := s.SyncTables(ctx)
	if err != nil {
		return 0, err
	}

	var max int64
	for _, table := range tables {
		var v sql.NullInt64
		query := fmt.Sprintf("SELECT MAX(modified_at) FROM %s", quoteIdent(table))
		if err := s.db.QueryRowContext(ctx, query).Scan(&v); err != nil {
			return 0, fmt.Errorf("max modified_at for %s: %w", table, err)
		}
		if v.Valid && v.Int64 > max {
			max = v.Int64
		}
	}
	return max, nil
}

// quoteIdent quotes a SQLite identifier. Table names come from
// sqlite_master, not from callers, but quoting keeps odd names working.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
