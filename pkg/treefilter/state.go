// Package treefilter computes which taxonomy nodes are shown and expanded
// for a search query. State is plain data; renderers project it.
package treefilter

import (
	"maps"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
)

// State is the per-node visibility and expansion of one tree, keyed by
// node id, plus the selected node.
type State struct {
	Query    string
	Selected string

	hidden   map[string]struct{}
	expanded map[string]struct{}
	matched  map[string]struct{}
}

// NewState returns a state with every node visible and collapsed.
func NewState() *State {
	return &State{
		hidden:   make(map[string]struct{}),
		expanded: make(map[string]struct{}),
		matched:  make(map[string]struct{}),
	}
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	return &State{
		Query:    s.Query,
		Selected: s.Selected,
		hidden:   maps.Clone(s.hidden),
		expanded: maps.Clone(s.expanded),
		matched:  maps.Clone(s.matched),
	}
}

// Visible reports whether the node is shown.
func (s *State) Visible(id string) bool {
	_, hidden := s.hidden[id]
	return !hidden
}

// Expanded reports whether the node's children container is open.
func (s *State) Expanded(id string) bool {
	_, ok := s.expanded[id]
	return ok
}

// Matched reports whether the node's label matched the current query.
func (s *State) Matched(id string) bool {
	_, ok := s.matched[id]
	return ok
}

// MatchCount returns the number of nodes that matched the current query.
func (s *State) MatchCount() int {
	return len(s.matched)
}

// Filtering reports whether a non-empty query is applied.
func (s *State) Filtering() bool {
	return s.Query != ""
}

// SetExpanded opens or closes one node.
func (s *State) SetExpanded(id string, open bool) {
	if open {
		s.expanded[id] = struct{}{}
	} else {
		delete(s.expanded, id)
	}
}

// Toggle flips the expansion of one node.
func (s *State) Toggle(id string) {
	s.SetExpanded(id, !s.Expanded(id))
}

// ExpandAll opens every non-leaf node.
func (s *State) ExpandAll(t *hierarchy.Tree) {
	t.Walk(func(n *hierarchy.Node) bool {
		if !n.IsLeaf() {
			s.expanded[n.ID] = struct{}{}
		}
		return true
	})
}

// CollapseAll closes every node.
func (s *State) CollapseAll() {
	clear(s.expanded)
}

// Select marks id as the selected node.
func (s *State) Select(id string) {
	s.Selected = id
}

// Reveal expands every ancestor of id so it is reachable in the rows.
func (s *State) Reveal(t *hierarchy.Tree, id string) {
	n := t.Find(id)
	if n == nil {
		return
	}
	for _, a := range n.Ancestors() {
		s.expanded[a.ID] = struct{}{}
	}
}

// Row is one rendered line of the tree.
type Row struct {
	Node  *hierarchy.Node
	Depth int
	// Last is true when the node is the last visible sibling, for drawing
	// tree connectors.
	Last bool
	// Trail[i] is true when the ancestor at depth i still has visible
	// siblings below it.
	Trail []bool
}

// Rows flattens the visible part of the tree: visible nodes whose
// ancestors are all expanded, in sibling order.
func (s *State) Rows(t *hierarchy.Tree) []Row {
	if t == nil {
		return nil
	}
	var rows []Row
	var walk func(nodes []*hierarchy.Node, depth int, trail []bool)
	walk = func(nodes []*hierarchy.Node, depth int, trail []bool) {
		visible := make([]*hierarchy.Node, 0, len(nodes))
		for _, n := range nodes {
			if s.Visible(n.ID) {
				visible = append(visible, n)
			}
		}
		for i, n := range visible {
			last := i == len(visible)-1
			rows = append(rows, Row{Node: n, Depth: depth, Last: last, Trail: trail})
			if s.Expanded(n.ID) && !n.IsLeaf() {
				next := append(append([]bool(nil), trail...), !last)
				walk(n.Children, depth+1, next)
			}
		}
	}
	walk(t.Roots, 0, nil)
	return rows
}
