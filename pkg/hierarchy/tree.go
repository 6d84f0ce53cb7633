package hierarchy

import (
	"slices"

	"github.com/vanderheijden86/taxa/pkg/model"
)

// Tree is an immutable taxonomy hierarchy.
type Tree struct {
	Roots  []*Node
	Levels []string

	byID  map[string]*Node
	nodes int
}

func newTree(levels []string, roots []*Node) *Tree {
	t := &Tree{Roots: roots, Levels: levels, byID: make(map[string]*Node)}
	t.Walk(func(n *Node) bool {
		t.byID[n.ID] = n
		t.nodes++
		return true
	})
	return t
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.nodes
}

// Total returns the number of records under all roots.
func (t *Tree) Total() int {
	if t == nil {
		return 0
	}
	total := 0
	for _, r := range t.Roots {
		total += r.Count
	}
	return total
}

// Walk visits every node depth-first in sibling order.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t == nil {
		return
	}
	for _, r := range t.Roots {
		r.Walk(fn)
	}
}

// Find returns the node with the given id, or nil.
func (t *Tree) Find(id string) *Node {
	if t == nil {
		return nil
	}
	return t.byID[id]
}

// FindCollection returns the node carrying the remote collection id.
func (t *Tree) FindCollection(id int64) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if found != nil {
			return false
		}
		if n.CollectionID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Path returns the nodes from a root down to the node with the given id.
func (t *Tree) Path(id string) []*Node {
	n := t.Find(id)
	if n == nil {
		return nil
	}
	path := append([]*Node{n}, n.Ancestors()...)
	slices.Reverse(path)
	return path
}

// RankStat counts the distinct nodes at one level.
type RankStat struct {
	Rank  string `json:"rank"`
	Nodes int    `json:"nodes"`
}

// Stats summarizes the tree per rank.
type Stats struct {
	Ranks        []RankStat `json:"ranks"`
	TotalRecords int        `json:"total_records"`
}

// Stats counts nodes per level and the total number of records.
func (t *Tree) Stats() Stats {
	s := Stats{TotalRecords: t.Total()}
	if t == nil {
		return s
	}
	counts := make([]int, len(t.Levels))
	t.Walk(func(n *Node) bool {
		for n.Level >= len(counts) {
			counts = append(counts, 0)
		}
		counts[n.Level]++
		return true
	})
	for i, c := range counts {
		rank := ""
		if i < len(t.Levels) {
			rank = t.Levels[i]
		}
		s.Ranks = append(s.Ranks, RankStat{Rank: rank, Nodes: c})
	}
	return s
}

// FlatRecord is a record with its ancestor chain, root first.
type FlatRecord struct {
	Record  model.ClassifiedRecord `json:"record"`
	PathIDs []string               `json:"path_ids"`
	Path    []string               `json:"path"`
}

// Flatten lists every member record with the path of its leaf node.
func (t *Tree) Flatten() []FlatRecord {
	var out []FlatRecord
	t.Walk(func(n *Node) bool {
		if len(n.Records) == 0 {
			return true
		}
		nodes := t.Path(n.ID)
		ids := make([]string, len(nodes))
		names := make([]string, len(nodes))
		for i, p := range nodes {
			ids[i] = p.ID
			names[i] = p.Name
		}
		for _, r := range n.Records {
			out = append(out, FlatRecord{Record: r, PathIDs: ids, Path: names})
		}
		return true
	})
	return out
}
