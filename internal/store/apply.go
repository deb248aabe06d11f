package store

import (
	"context"
	"fmt"
	"strings"
)

// Apply upserts the given records into this store inside one transaction.
// Semantics are replace-by-identifier: INSERT OR REPLACE, last write wins,
// no merge. Records must arrive in the order ChangesSince produced them so
// a replica observes changes in modified_at order.
//
// Called on replicas by the replication daemon. An error rolls the whole
// batch back, leaving the replica at its previous watermark.
func (s *Store) Apply(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, rec := range records {
		if err := rec.validate(); err != nil {
			return err
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rec.Columns)), ", ")
		quoted := make([]string, len(rec.Columns))
		for i, c := range rec.Columns {
			quoted[i] = quoteIdent(c)
		}
		query := fmt.Sprintf(
			"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			quoteIdent(rec.Table),
			strings.Join(quoted, ", "),
			placeholders,
		)
		if _, err := tx.ExecContext(ctx, query, rec.Values...); err != nil {
			return fmt.Errorf("apply: upsert %s/%s: %w", rec.Table, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply: commit: %w", err)
	}
	return nil
}
