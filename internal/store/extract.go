package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// ChangesSince returns every row whose modified_at strictly exceeds cutoff,
// across all sync tables, ordered by modified_at ascending with ties broken
// by (table, id). The ordering is total, which keeps replication
// deterministic: two cycles over the same data always apply the same
// sequence.
//
// Pure read: never mutates the store.
func (s *Store) ChangesSince(ctx context.Context, cutoff int64) ([]Record, error) {
	tables, err := s.SyncTables(ctx)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, table := range tables {
		recs, err := s.tableChangesSince(ctx, table, cutoff)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
	}

	// Per-table queries come back ordered; merge into one global order.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ModifiedAt != records[j].ModifiedAt {
			return records[i].ModifiedAt < records[j].ModifiedAt
		}
		if records[i].Table != records[j].Table {
			return records[i].Table < records[j].Table
		}
		return records[i].ID < records[j].ID
	})
	return records, nil
}

func (s *Store) tableChangesSince(ctx context.Context, table string, cutoff int64) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT * FROM %s WHERE modified_at > ? ORDER BY modified_at ASC, id ASC",
		quoteIdent(table),
	)
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("changes for %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("changes for %s: %w", table, err)
	}

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows, table, cols)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changes for %s: %w", table, err)
	}
	return records, nil
}

// scanRecord scans the current row into a Record, pulling out the id and
// modified_at sync columns on the way.
func scanRecord(rows *sql.Rows, table string, cols []string) (Record, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return Record{}, fmt.Errorf("scan %s row: %w", table, err)
	}

	rec := Record{
		Table:   table,
		Columns: cols,
		Values:  values,
	}
	for i, col := range cols {
		switch col {
		case "id":
			switch v := values[i].(type) {
			case string:
				rec.ID = v
			case []byte:
				rec.ID = string(v)
			case int64:
				rec.ID = fmt.Sprintf("%d", v)
			}
		case "modified_at":
			if v, ok := values[i].(int64); ok {
				rec.ModifiedAt = v
			}
		}
	}

	if err := rec.validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
