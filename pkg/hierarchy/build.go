package hierarchy

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/taxa/pkg/debug"
	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/model"
)

// Warning reports a record left out of the tree.
type Warning struct {
	RecordID string
	Rank     string
	Reason   string
}

func (w Warning) String() string {
	return fmt.Sprintf("record %q: %s at rank %s", w.RecordID, w.Reason, w.Rank)
}

// Builder turns flat records into a Tree.
type Builder struct {
	levels []string
	log    logrus.FieldLogger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithLevels sets the rank names, root first.
func WithLevels(levels []string) BuilderOption {
	return func(b *Builder) {
		if len(levels) > 0 {
			b.levels = levels
		}
	}
}

// WithLogger reports skipped records as warnings on l.
func WithLogger(l logrus.FieldLogger) BuilderOption {
	return func(b *Builder) {
		b.log = l
	}
}

// NewBuilder returns a Builder for the default six ranks.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{levels: model.DefaultRanks}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build groups records in one pass. Siblings keep first-encounter order and
// a record missing any rank value is skipped with a Warning.
func Build(records []model.ClassifiedRecord) (*Tree, []Warning) {
	return NewBuilder().Build(records)
}

// Build groups records by their rank chain.
func (b *Builder) Build(records []model.ClassifiedRecord) (*Tree, []Warning) {
	defer metrics.Timer(metrics.HierarchyBuild)()
	defer debug.LogEnterExit("hierarchy.Build")()

	root := &Node{Level: -1}
	var warnings []Warning

	for _, rec := range records {
		if missing := b.missingRank(rec); missing != "" {
			w := Warning{RecordID: rec.ID, Rank: missing, Reason: "missing rank value"}
			warnings = append(warnings, w)
			if b.log != nil {
				b.log.WithField("record", rec.ID).WithField("rank", missing).Warn("skipping record without full classification")
			}
			continue
		}

		n := root
		for i, rank := range b.levels {
			rv := rec.Rank(i)
			n = n.child(rank, rv.Name, rv.NameZh)
		}
		n.Records = append(n.Records, rec)
	}

	roots := root.Children
	for _, r := range roots {
		r.Parent = nil
		sumCounts(r)
	}
	t := newTree(b.levels, roots)
	debug.Log("hierarchy: %d records, %d nodes, %d skipped", len(records), t.Len(), len(warnings))
	return t, warnings
}

func (b *Builder) missingRank(rec model.ClassifiedRecord) string {
	for i, rank := range b.levels {
		if rec.Rank(i).Empty() {
			return rank
		}
	}
	return ""
}

// FromCollections converts the remote collections payload. A node without
// children is a leaf; its payload count is authoritative and interior nodes
// without a count sum their children. Node ids derive from the collection
// id, so same-named siblings stay distinct.
func FromCollections(payload []model.CollectionNode) *Tree {
	defer metrics.Timer(metrics.HierarchyBuild)()

	var levels []string
	var convert func(parent *Node, c model.CollectionNode) *Node
	convert = func(parent *Node, c model.CollectionNode) *Node {
		n := newNode(parent, c.Level, c.Name, model.CleanLocalName(c.NameZh))
		n.CollectionID = c.ID
		if c.ID != 0 {
			n.ID = nodeID("collection" + pathSep + strconv.FormatInt(c.ID, 10))
		}
		if n.Level >= len(levels) {
			levels = append(levels, c.Level)
		}
		for _, cc := range c.Children {
			n.Children = append(n.Children, convert(n, cc))
		}
		if c.Count != nil {
			n.Count = *c.Count
		} else {
			for _, ch := range n.Children {
				n.Count += ch.Count
			}
		}
		return n
	}

	roots := make([]*Node, 0, len(payload))
	for _, c := range payload {
		roots = append(roots, convert(nil, c))
	}
	return newTree(levels, roots)
}
