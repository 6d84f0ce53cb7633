package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/loader"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// AssertRecordCount verifies the number of records under all roots.
func AssertRecordCount(t *testing.T, tree *hierarchy.Tree, expected int) {
	t.Helper()
	if got := tree.Total(); got != expected {
		t.Errorf("expected %d records in tree, got %d", expected, got)
	}
}

// AssertNoDuplicateIDs verifies all record IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, records []model.ClassifiedRecord) {
	t.Helper()
	seen := make(map[string]bool)
	for _, rec := range records {
		if seen[rec.ID] {
			t.Errorf("duplicate record ID: %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

// AssertCountsConsistent verifies that every interior count is the sum of
// its children and, for trees built from records, that every leaf count is
// the number of member records.
func AssertCountsConsistent(t *testing.T, tree *hierarchy.Tree) {
	t.Helper()
	tree.Walk(func(n *hierarchy.Node) bool {
		if n.IsLeaf() {
			if n.Records != nil && n.Count != len(n.Records) {
				t.Errorf("leaf %s: count %d, %d records", n.Name, n.Count, len(n.Records))
			}
			return true
		}
		sum := 0
		for _, c := range n.Children {
			sum += c.Count
		}
		if n.Count != sum {
			t.Errorf("node %s: count %d, children sum %d", n.Name, n.Count, sum)
		}
		return true
	})
}

// AssertSingleParent verifies every node is reachable exactly once and
// points back at the node it hangs under.
func AssertSingleParent(t *testing.T, tree *hierarchy.Tree) {
	t.Helper()
	seen := make(map[string]bool)
	tree.Walk(func(n *hierarchy.Node) bool {
		if seen[n.ID] {
			t.Errorf("node %s reached twice", n.ID)
		}
		seen[n.ID] = true
		for _, c := range n.Children {
			if c.Parent != n {
				t.Errorf("child %s of %s has parent %v", c.Name, n.Name, c.Parent)
			}
		}
		return true
	})
	if len(seen) != tree.Len() {
		t.Errorf("walked %d nodes, tree reports %d", len(seen), tree.Len())
	}
}

// WriteChecklist writes records as a CSV checklist in the default column
// layout and returns its path.
func WriteChecklist(t *testing.T, dir, name string, records []model.ClassifiedRecord) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := ToCSV(records, loader.DefaultColumns())
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write checklist %s: %v", path, err)
	}
	return path
}
