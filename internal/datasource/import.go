package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/metrics"
)

// ImportStats reports what Import wrote.
type ImportStats struct {
	Collections int
	Closure     int
	Records     int
}

// Import replaces the store contents with t in one transaction. Collection
// ids are assigned in preorder starting at 1, so re-importing the same
// records yields the same ids.
func (s *Store) Import(ctx context.Context, t *hierarchy.Tree) (ImportStats, error) {
	defer metrics.Timer(metrics.StoreQuery)()

	var stats ImportStats
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"records", "collection_closure", "collections"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return stats, fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	insColl, err := s.prepare(ctx, tx, `INSERT INTO collections
		(id, parent_id, node_key, name, name_zh, level, depth, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return stats, err
	}
	defer insColl.Close()
	insClosure, err := s.prepare(ctx, tx, `INSERT INTO collection_closure
		(ancestor_id, descendant_id, depth) VALUES (?, ?, ?)`)
	if err != nil {
		return stats, err
	}
	defer insClosure.Close()
	insRecord, err := s.prepare(ctx, tx, `INSERT INTO records
		(id, name, name_zh, name_zh_other, status_id, collection_id, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return stats, err
	}
	defer insRecord.Close()

	ids := make(map[*hierarchy.Node]int64, t.Len())
	var position int
	var walkErr error
	t.Walk(func(n *hierarchy.Node) bool {
		if walkErr != nil {
			return false
		}
		id := int64(len(ids) + 1)
		ids[n] = id
		var parent sql.NullInt64
		if n.Parent != nil {
			parent = sql.NullInt64{Int64: ids[n.Parent], Valid: true}
		}
		if _, err := insColl.ExecContext(ctx, id, parent, n.ID, n.Name, n.NameZh, n.Rank, n.Level, len(ids)); err != nil {
			walkErr = fmt.Errorf("inserting collection %q: %w", n.Name, err)
			return false
		}
		stats.Collections++

		// Self row at depth 0, then one row per ancestor.
		depth := 0
		for a := n; a != nil; a = a.Parent {
			if _, err := insClosure.ExecContext(ctx, ids[a], id, depth); err != nil {
				walkErr = fmt.Errorf("inserting closure for %q: %w", n.Name, err)
				return false
			}
			stats.Closure++
			depth++
		}

		for _, r := range n.Records {
			position++
			other := strings.Join(r.OtherCommonNames, ", ")
			if _, err := insRecord.ExecContext(ctx, r.ID, r.ScientificName, r.CommonName, other, int(r.Status), id, position); err != nil {
				walkErr = fmt.Errorf("inserting record %q: %w", r.ID, err)
				return false
			}
			stats.Records++
		}
		return true
	})
	if walkErr != nil {
		return stats, walkErr
	}
	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit import: %w", err)
	}
	s.log.WithField("collections", stats.Collections).
		WithField("records", stats.Records).
		Info("taxonomy imported")
	return stats, nil
}

func (s *Store) prepare(ctx context.Context, tx *sql.Tx, q string) (*sql.Stmt, error) {
	stmt, err := tx.PrepareContext(ctx, s.driver.rebind(q))
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	return stmt, nil
}
