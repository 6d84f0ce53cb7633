package treefilter

import (
	"sort"
	"strings"
	"testing"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/testutil"
)

func rec(id string, ranks ...string) model.ClassifiedRecord {
	r := model.ClassifiedRecord{ID: id}
	for _, name := range ranks {
		r.Ranks = append(r.Ranks, model.RankValue{Name: name})
	}
	return r
}

// canidaeInsectaTree has two kingdom-level paths sharing only Animalia.
func canidaeInsectaTree(t *testing.T) *hierarchy.Tree {
	t.Helper()
	tree, warnings := hierarchy.NewBuilder(hierarchy.WithLevels([]string{"kingdom", "phylum", "class", "order", "family"})).
		Build([]model.ClassifiedRecord{
			rec("1", "Animalia", "Chordata", "Mammalia", "Carnivora", "Canidae"),
			rec("2", "Animalia", "Arthropoda", "Insecta", "Lepidoptera", "Nymphalidae"),
		})
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}
	return tree
}

func visibleNames(t *hierarchy.Tree, s *State) []string {
	var names []string
	t.Walk(func(n *hierarchy.Node) bool {
		if s.Visible(n.ID) {
			names = append(names, n.Name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

func byName(t *hierarchy.Tree, name string) *hierarchy.Node {
	var found *hierarchy.Node
	t.Walk(func(n *hierarchy.Node) bool {
		if n.Name == name {
			found = n
		}
		return true
	})
	return found
}

func TestApplyRevealsAncestorChain(t *testing.T) {
	tree := canidaeInsectaTree(t)
	s := Apply(tree, NewState(), "Canidae")

	got := strings.Join(visibleNames(tree, s), ",")
	want := "Animalia,Canidae,Carnivora,Chordata,Mammalia"
	if got != want {
		t.Errorf("expected visible %s, got %s", want, got)
	}
	for _, name := range []string{"Animalia", "Chordata", "Mammalia", "Carnivora"} {
		if !s.Expanded(byName(tree, name).ID) {
			t.Errorf("expected ancestor %s to be expanded", name)
		}
	}
	if s.Expanded(byName(tree, "Arthropoda").ID) {
		t.Error("expected hidden branch to stay collapsed")
	}
	if s.MatchCount() != 1 || !s.Matched(byName(tree, "Canidae").ID) {
		t.Errorf("expected Canidae as the only match, got %d matches", s.MatchCount())
	}
}

func TestApplyShowsDescendantsOfMatch(t *testing.T) {
	tree := canidaeInsectaTree(t)
	s := Apply(tree, NewState(), "arthro")

	got := strings.Join(visibleNames(tree, s), ",")
	want := "Animalia,Arthropoda,Insecta,Lepidoptera,Nymphalidae"
	if got != want {
		t.Errorf("expected visible %s, got %s", want, got)
	}
	if !s.Expanded(byName(tree, "Arthropoda").ID) {
		t.Error("expected the matched non-leaf to be expanded")
	}
}

func TestApplyUnionsMatches(t *testing.T) {
	tree := canidaeInsectaTree(t)
	s := Apply(tree, NewState(), "idae")
	if s.MatchCount() != 2 {
		t.Errorf("expected 2 matches, got %d", s.MatchCount())
	}
	if len(visibleNames(tree, s)) != tree.Len() {
		t.Errorf("expected every node on both paths visible")
	}
}

func TestApplyMatchesLocalizedName(t *testing.T) {
	r := rec("1", "Animalia", "Chordata")
	r.Ranks[1].NameZh = "脊索動物門"
	tree, _ := hierarchy.NewBuilder(hierarchy.WithLevels([]string{"kingdom", "phylum"})).Build([]model.ClassifiedRecord{r})

	s := Apply(tree, NewState(), "脊索")
	if !s.Matched(byName(tree, "Chordata").ID) {
		t.Error("expected match on localized name")
	}
	s = Apply(tree, NewState(), "CHORDATA")
	if !s.Matched(byName(tree, "Chordata").ID) {
		t.Error("expected case-insensitive match")
	}
	s = Apply(tree, NewState(), "chordata 脊索")
	if !s.Matched(byName(tree, "Chordata").ID) {
		t.Error("expected match across the name separator")
	}
}

func TestApplyEmptyRestoresVisibilityKeepsExpansion(t *testing.T) {
	tree := canidaeInsectaTree(t)
	filtered := Apply(tree, NewState(), "Canidae")
	cleared := Apply(tree, filtered, "   ")

	if len(visibleNames(tree, cleared)) != tree.Len() {
		t.Error("expected every node visible after clearing the query")
	}
	if !cleared.Expanded(byName(tree, "Carnivora").ID) {
		t.Error("expected expansion from the previous filter to be left alone")
	}
	if cleared.Filtering() || cleared.MatchCount() != 0 {
		t.Error("expected no active filter")
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	tree := canidaeInsectaTree(t)
	before := NewState()
	_ = Apply(tree, before, "Canidae")
	if len(visibleNames(tree, before)) != tree.Len() {
		t.Error("Apply modified the input state")
	}
	if before.Expanded(byName(tree, "Animalia").ID) {
		t.Error("Apply expanded nodes on the input state")
	}
}

func TestApplyNoMatchHidesEverything(t *testing.T) {
	tree := canidaeInsectaTree(t)
	s := Apply(tree, NewState(), "zzz")
	if n := len(visibleNames(tree, s)); n != 0 {
		t.Errorf("expected no visible nodes, got %d", n)
	}
	if rows := s.Rows(tree); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestRowsProjection(t *testing.T) {
	tree := canidaeInsectaTree(t)
	s := NewState()

	rows := s.Rows(tree)
	if len(rows) != 1 || rows[0].Node.Name != "Animalia" {
		t.Fatalf("expected only the collapsed root, got %d rows", len(rows))
	}

	s.Toggle(rows[0].Node.ID)
	rows = s.Rows(tree)
	if len(rows) != 3 {
		t.Fatalf("expected root plus two phyla, got %d", len(rows))
	}
	if rows[1].Last || !rows[2].Last {
		t.Error("expected Last set on the final sibling only")
	}
	if rows[2].Depth != 1 {
		t.Errorf("expected depth 1 for phylum rows, got %d", rows[2].Depth)
	}

	filtered := Apply(tree, s, "Canidae")
	rows = filtered.Rows(tree)
	var names []string
	for _, r := range rows {
		names = append(names, r.Node.Name)
	}
	if strings.Join(names, ",") != "Animalia,Chordata,Mammalia,Carnivora,Canidae" {
		t.Errorf("unexpected filtered rows %v", names)
	}
	if !rows[1].Last {
		t.Error("expected Chordata to be the last visible sibling once Arthropoda is hidden")
	}
}

func TestExpandCollapseAllAndReveal(t *testing.T) {
	tree := canidaeInsectaTree(t)
	s := NewState()
	s.ExpandAll(tree)
	if len(s.Rows(tree)) != tree.Len() {
		t.Errorf("expected all %d nodes as rows, got %d", tree.Len(), len(s.Rows(tree)))
	}
	s.CollapseAll()
	if len(s.Rows(tree)) != 1 {
		t.Error("expected only the root after collapsing")
	}

	canidae := byName(tree, "Canidae")
	s.Reveal(tree, canidae.ID)
	s.Select(canidae.ID)
	found := false
	for _, r := range s.Rows(tree) {
		if r.Node.ID == s.Selected {
			found = true
		}
	}
	if !found {
		t.Error("expected the revealed selection among the rows")
	}
}

func TestApplyOnGeneratedChecklist(t *testing.T) {
	tree, _ := hierarchy.Build(testutil.NewDefault().Balanced())

	// pick a deep node and search for its exact name
	var target *hierarchy.Node
	tree.Walk(func(n *hierarchy.Node) bool {
		if n.Level == 4 && target == nil {
			target = n
		}
		return target == nil
	})
	if target == nil {
		t.Fatal("no family-level node generated")
	}

	s := Apply(tree, NewState(), strings.ToUpper(target.Name))
	if !s.Matched(target.ID) {
		t.Fatalf("expected %s matched case-insensitively", target.Name)
	}
	for _, a := range target.Ancestors() {
		if !s.Visible(a.ID) || !s.Expanded(a.ID) {
			t.Errorf("ancestor %s should be visible and expanded", a.Name)
		}
	}
	for _, c := range target.Children {
		if !s.Visible(c.ID) {
			t.Errorf("child %s of the match should be visible", c.Name)
		}
	}

	rows := s.Rows(tree)
	if len(rows) != len(target.Ancestors())+1+len(target.Children) {
		t.Errorf("expected only the match path and its children, got %d rows", len(rows))
	}
}

func TestApplyKeepsSameNamedSiblingsApart(t *testing.T) {
	count := func(n int) *int { return &n }
	tree := hierarchy.FromCollections([]model.CollectionNode{{
		ID: 1, Name: "Animalia", Level: "kingdom",
		Children: []model.CollectionNode{
			{ID: 2, Name: "Incertae", Level: "phylum", Children: []model.CollectionNode{
				{ID: 4, Name: "Canidae", Level: "family", Count: count(1)},
			}},
			{ID: 3, Name: "Incertae", Level: "phylum", Children: []model.CollectionNode{
				{ID: 5, Name: "Felidae", Level: "family", Count: count(1)},
			}},
		},
	}})

	s := Apply(tree, NewState(), "canidae")
	matched, other := tree.FindCollection(2), tree.FindCollection(3)
	if !s.Visible(matched.ID) || !s.Expanded(matched.ID) {
		t.Error("expected the Incertae above Canidae visible and expanded")
	}
	if s.Visible(other.ID) || s.Expanded(other.ID) {
		t.Error("expected the Incertae above Felidae hidden and collapsed")
	}
	if s.Visible(tree.FindCollection(5).ID) {
		t.Error("expected Felidae hidden")
	}
	for _, row := range s.Rows(tree) {
		if row.Node == other {
			t.Error("hidden sibling rendered as a row")
		}
	}
}
