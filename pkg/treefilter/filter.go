package treefilter

import (
	"strings"

	"github.com/vanderheijden86/taxa/pkg/debug"
	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/metrics"
)

// Apply returns the state for query without modifying state.
//
// An empty query shows every node and leaves expansion as it was. Otherwise
// every node is hidden, then each node whose label contains the query
// (case-insensitive substring) is shown along with all of its ancestors and
// all of its descendants. A match and its ancestors are expanded so the
// match is reachable. Results are unioned across matches.
func Apply(t *hierarchy.Tree, state *State, query string) *State {
	defer metrics.Timer(metrics.TreeFilter)()

	s := state.Clone()
	s.Query = strings.TrimSpace(query)
	q := strings.ToLower(s.Query)
	clear(s.matched)
	clear(s.hidden)

	if q == "" {
		return s
	}

	t.Walk(func(n *hierarchy.Node) bool {
		s.hidden[n.ID] = struct{}{}
		return true
	})

	t.Walk(func(n *hierarchy.Node) bool {
		if !strings.Contains(strings.ToLower(n.Label()), q) {
			return true
		}
		s.matched[n.ID] = struct{}{}
		delete(s.hidden, n.ID)
		if !n.IsLeaf() {
			s.expanded[n.ID] = struct{}{}
		}
		for _, a := range n.Ancestors() {
			delete(s.hidden, a.ID)
			s.expanded[a.ID] = struct{}{}
		}
		for _, c := range n.Children {
			c.Walk(func(d *hierarchy.Node) bool {
				delete(s.hidden, d.ID)
				return true
			})
		}
		return true
	})

	debug.Log("treefilter: query %q matched %d of %d nodes", q, len(s.matched), t.Len())
	return s
}
