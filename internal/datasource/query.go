package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

// sortColumns whitelists the listing sort fields.
var sortColumns = map[string]string{
	viewstate.SortByName:   "r.name",
	viewstate.SortByNameZh: "r.name_zh",
	viewstate.SortByStatus: "r.status_id",
}

type collectionRow struct {
	id       int64
	parent   sql.NullInt64
	name     string
	nameZh   string
	level    string
	depth    int
	count    int
	children []int64
}

// loadCollections reads every collection with its record count, in
// preorder.
func (s *Store) loadCollections(ctx context.Context) ([]*collectionRow, map[int64]*collectionRow, error) {
	rows, err := s.query(ctx, `SELECT c.id, c.parent_id, c.name, c.name_zh, c.level, c.depth,
			(SELECT COUNT(*) FROM collection_closure cc
				JOIN records r ON r.collection_id = cc.descendant_id
				WHERE cc.ancestor_id = c.id)
		FROM collections c ORDER BY c.position`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying collections: %w", err)
	}
	defer rows.Close()

	var all []*collectionRow
	byID := make(map[int64]*collectionRow)
	for rows.Next() {
		c := &collectionRow{}
		if err := rows.Scan(&c.id, &c.parent, &c.name, &c.nameZh, &c.level, &c.depth, &c.count); err != nil {
			return nil, nil, fmt.Errorf("scanning collection: %w", err)
		}
		all = append(all, c)
		byID[c.id] = c
		if c.parent.Valid {
			if p, ok := byID[c.parent.Int64]; ok {
				p.children = append(p.children, c.id)
			}
		}
	}
	return all, byID, rows.Err()
}

// Collections returns the nested taxonomy payload with record counts.
func (s *Store) Collections(ctx context.Context) ([]model.CollectionNode, error) {
	defer metrics.Timer(metrics.StoreQuery)()

	all, byID, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}
	var convert func(c *collectionRow) model.CollectionNode
	convert = func(c *collectionRow) model.CollectionNode {
		count := c.count
		node := model.CollectionNode{ID: c.id, Name: c.name, NameZh: c.nameZh, Level: c.level, Count: &count}
		if s.depth > 0 && c.depth+1 >= s.depth {
			return node
		}
		for _, id := range c.children {
			node.Children = append(node.Children, convert(byID[id]))
		}
		return node
	}
	out := []model.CollectionNode{}
	for _, c := range all {
		if !c.parent.Valid {
			out = append(out, convert(c))
		}
	}
	return out, nil
}

// Items returns one page of records matching q. Free text matches the
// scientific or localized name, never the other common names.
func (s *Store) Items(ctx context.Context, q viewstate.QueryState) (model.ResultPage, error) {
	defer metrics.Timer(metrics.StoreQuery)()

	var where []string
	var args []any
	if text := strings.TrimSpace(q.FreeText); text != "" {
		pattern := "%" + escapeLike(text) + "%"
		op := s.driver.likeOp()
		where = append(where, fmt.Sprintf(
			`(r.name %[1]s ? ESCAPE '\' OR r.name_zh %[1]s ? ESCAPE '\')`, op))
		args = append(args, pattern, pattern)
	}
	if q.CollectionID != nil {
		where = append(where, `r.collection_id IN (SELECT descendant_id FROM collection_closure WHERE ancestor_id = ?)`)
		args = append(args, *q.CollectionID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	page := model.ResultPage{Items: []model.RecordSummary{}}
	if err := s.queryRow(ctx, "SELECT COUNT(*) FROM records r"+clause, args...).Scan(&page.Total); err != nil {
		return page, fmt.Errorf("counting records: %w", err)
	}

	order := "r.position"
	if q.Sort != nil {
		if col, ok := sortColumns[q.Sort.Field]; ok {
			order = col + " " + strings.ToUpper(q.Sort.Direction.String()) + ", r.position"
		}
	}
	limit := q.PageSize
	if limit <= 0 {
		limit = page.Total
	}
	rows, err := s.query(ctx,
		"SELECT r.id, r.name, r.name_zh, r.name_zh_other, r.status_id FROM records r"+clause+
			" ORDER BY "+order+" LIMIT ? OFFSET ?",
		append(args, limit, q.Offset())...)
	if err != nil {
		return page, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it model.RecordSummary
		var status int
		if err := rows.Scan(&it.ID, &it.ScientificName, &it.CommonName, &it.OtherNames, &status); err != nil {
			return page, fmt.Errorf("scanning record: %w", err)
		}
		it.Status = model.Status(status)
		page.Items = append(page.Items, it)
	}
	return page, rows.Err()
}

// Item returns one record with its rank path, root first.
func (s *Store) Item(ctx context.Context, id string) (model.RecordSummary, error) {
	defer metrics.Timer(metrics.StoreQuery)()

	var it model.RecordSummary
	var status int
	var collection int64
	err := s.queryRow(ctx,
		`SELECT id, name, name_zh, name_zh_other, status_id, collection_id FROM records WHERE id = ?`, id).
		Scan(&it.ID, &it.ScientificName, &it.CommonName, &it.OtherNames, &status, &collection)
	if errors.Is(err, sql.ErrNoRows) {
		return it, listing.ErrNotFound
	}
	if err != nil {
		return it, fmt.Errorf("querying record %q: %w", id, err)
	}
	it.Status = model.Status(status)

	rows, err := s.query(ctx, `SELECT c.name, c.name_zh FROM collection_closure cc
		JOIN collections c ON c.id = cc.ancestor_id
		WHERE cc.descendant_id = ? ORDER BY c.depth`, collection)
	if err != nil {
		return it, fmt.Errorf("querying path of %q: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var rv model.RankValue
		if err := rows.Scan(&rv.Name, &rv.NameZh); err != nil {
			return it, fmt.Errorf("scanning path: %w", err)
		}
		it.Path = append(it.Path, rv)
	}
	return it, rows.Err()
}

// Levels returns the rank names stored per depth, root first.
func (s *Store) Levels(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, `SELECT depth, MIN(level) FROM collections GROUP BY depth ORDER BY depth`)
	if err != nil {
		return nil, fmt.Errorf("querying levels: %w", err)
	}
	defer rows.Close()
	var levels []string
	for rows.Next() {
		var depth int
		var level string
		if err := rows.Scan(&depth, &level); err != nil {
			return nil, fmt.Errorf("scanning level: %w", err)
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

// Records rebuilds the classified records in import order.
func (s *Store) Records(ctx context.Context) ([]model.ClassifiedRecord, error) {
	defer metrics.Timer(metrics.StoreQuery)()

	_, byID, err := s.loadCollections(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.query(ctx, `SELECT id, name, name_zh, name_zh_other, status_id, collection_id
		FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	paths := make(map[int64][]model.RankValue)
	var out []model.ClassifiedRecord
	for rows.Next() {
		var r model.ClassifiedRecord
		var other string
		var status int
		var collection int64
		if err := rows.Scan(&r.ID, &r.ScientificName, &r.CommonName, &other, &status, &collection); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.OtherCommonNames = model.SplitOtherNames(other)
		r.Status = model.Status(status)
		path, ok := paths[collection]
		if !ok {
			for c := byID[collection]; c != nil; {
				path = append([]model.RankValue{{Name: c.name, NameZh: c.nameZh}}, path...)
				if !c.parent.Valid {
					break
				}
				c = byID[c.parent.Int64]
			}
			paths[collection] = path
		}
		r.Ranks = path
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tree rebuilds the hierarchy from the stored records.
func (s *Store) Tree(ctx context.Context) (*hierarchy.Tree, error) {
	levels, err := s.Levels(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	tree, _ := hierarchy.NewBuilder(hierarchy.WithLevels(levels), hierarchy.WithLogger(s.log)).Build(records)
	return tree, nil
}
