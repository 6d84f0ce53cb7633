// Package hierarchy builds the nested taxonomy tree from flat records.
//
// A Tree is built once per record set and never mutated afterwards; a
// rebuild produces a fresh Tree whose node ids match the previous one for
// every path that still exists.
package hierarchy

import (
	"strings"

	"github.com/google/uuid"

	"github.com/vanderheijden86/taxa/pkg/model"
)

// namespace seeds the deterministic node ids.
var namespace = uuid.MustParse("6f1c8a52-3f0e-4d4b-9a51-8c2f1b7e9d10")

// Node is one taxon in the tree.
type Node struct {
	ID     string
	Rank   string
	Level  int // depth, roots are 0
	Name   string
	NameZh string
	Count  int

	// CollectionID is the remote collection id, set only for trees built
	// from a collections payload.
	CollectionID int64

	// Records holds the member records of leaf-level nodes.
	Records []model.ClassifiedRecord

	Parent   *Node
	Children []*Node

	index map[string]*Node
}

// Label is the text the tree filter matches: name and localized name
// separated by a space.
func (n *Node) Label() string {
	if n.NameZh == "" {
		return n.Name
	}
	return n.Name + " " + n.NameZh
}

// DisplayLabel renders "name (localized)" for indicators and headers.
func (n *Node) DisplayLabel() string {
	if n.NameZh == "" {
		return n.Name
	}
	return n.Name + " (" + n.NameZh + ")"
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Ancestors returns the strict ancestors, nearest first.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// Walk visits n and its descendants depth-first in sibling order. Returning
// false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// child returns the child keyed by name, creating it on first encounter.
func (n *Node) child(rank, name, nameZh string) *Node {
	if c, ok := n.index[name]; ok {
		return c
	}
	c := newNode(n, rank, name, nameZh)
	if n.index == nil {
		n.index = make(map[string]*Node)
	}
	n.index[name] = c
	n.Children = append(n.Children, c)
	return c
}

func newNode(parent *Node, rank, name, nameZh string) *Node {
	level := 0
	key := name
	if parent != nil && parent.Level >= 0 {
		level = parent.Level + 1
		key = parent.pathKey() + pathSep + name
	}
	return &Node{
		ID:     nodeID(key),
		Rank:   rank,
		Level:  level,
		Name:   name,
		NameZh: nameZh,
		Parent: parent,
	}
}

const pathSep = "\x1f"

func (n *Node) pathKey() string {
	parts := make([]string, n.Level+1)
	for p := n; p != nil && p.Level >= 0; p = p.Parent {
		parts[p.Level] = p.Name
	}
	return strings.Join(parts, pathSep)
}

func nodeID(pathKey string) string {
	return uuid.NewSHA1(namespace, []byte(pathKey)).String()
}

// sumCounts recomputes Count bottom-up from leaf record lists. Leaves
// without records keep the count they were given.
func sumCounts(n *Node) int {
	if n.IsLeaf() {
		if len(n.Records) > 0 {
			n.Count = len(n.Records)
		}
		return n.Count
	}
	total := 0
	for _, c := range n.Children {
		total += sumCounts(c)
	}
	n.Count = total
	return total
}
