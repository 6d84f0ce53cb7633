package viewstate

import (
	"testing"
)

type recorder struct {
	reloads []QueryState
	active  []string
	moves   [][2]*Collection
}

func newRecorded(t *testing.T, opts ...Option) (*Controller, *recorder) {
	t.Helper()
	r := &recorder{}
	opts = append([]Option{
		WithOnReload(func(q QueryState) { r.reloads = append(r.reloads, q) }),
		WithOnFilterActiveChanged(func(active bool, label string) {
			if active {
				r.active = append(r.active, label)
			} else {
				r.active = append(r.active, "")
			}
		}),
		WithOnSelectionChanged(func(prev, next *Collection) {
			r.moves = append(r.moves, [2]*Collection{prev, next})
		}),
	}, opts...)
	return New(20, opts...), r
}

func TestSearchCollectionClearReloadsThreeTimes(t *testing.T) {
	c, r := newRecorded(t)

	c.SetFreeText("wolf")
	c.SetCollectionFilter(&Collection{ID: 7, Name: "Canidae"})
	c.Clear()

	if len(r.reloads) != 3 {
		t.Fatalf("expected 3 reloads, got %d", len(r.reloads))
	}
	second := r.reloads[1]
	if second.FreeText != "wolf" || second.CollectionID == nil || *second.CollectionID != 7 {
		t.Errorf("expected the second reload to combine text and collection, got %+v", second)
	}
	st := c.State()
	if st.FreeText != "" || st.CollectionID != nil {
		t.Errorf("expected cleared query, got %+v", st)
	}
	if c.Selected() != nil {
		t.Error("expected no selection after Clear")
	}
}

func TestUnchangedSignatureDoesNotReload(t *testing.T) {
	c, r := newRecorded(t)

	c.SetFreeText("wolf")
	c.SetFreeText("wolf ")
	c.SetPage(0)
	c.SetSort(nil)
	c.SetViewMode(ViewGallery)

	if len(r.reloads) != 1 {
		t.Errorf("expected a single reload, got %d", len(r.reloads))
	}
	if c.ViewMode() != ViewGallery {
		t.Error("expected the view mode to change")
	}
}

func TestPageResetsOnFilterChange(t *testing.T) {
	c, _ := newRecorded(t)

	c.SetPage(3)
	c.SetFreeText("fox")
	if c.State().Page != 0 {
		t.Errorf("expected page reset after text change, got %d", c.State().Page)
	}

	c.SetPage(2)
	c.SetCollectionFilter(&Collection{ID: 1})
	if c.State().Page != 0 {
		t.Errorf("expected page reset after collection change, got %d", c.State().Page)
	}

	c.SetPage(2)
	c.SetSort(&SortSpec{Field: SortByName})
	if c.State().Page != 2 {
		t.Errorf("expected sort to keep the page, got %d", c.State().Page)
	}
	if c.State().Offset() != 40 {
		t.Errorf("expected offset 40, got %d", c.State().Offset())
	}
}

func TestSingleSelection(t *testing.T) {
	c, r := newRecorded(t)
	a := &Collection{ID: 1, Name: "Canidae", NameZh: "犬科"}
	b := &Collection{ID: 2, Name: "Felidae"}

	c.SetCollectionFilter(a)
	c.SetCollectionFilter(b)
	c.SetCollectionFilter(&Collection{ID: 2, Name: "Felidae"})

	if len(r.reloads) != 2 {
		t.Errorf("expected 2 reloads, got %d", len(r.reloads))
	}
	if len(r.moves) != 2 {
		t.Fatalf("expected 2 selection moves, got %d", len(r.moves))
	}
	if r.moves[0][0] != nil || r.moves[0][1].ID != 1 {
		t.Errorf("unexpected first move %+v", r.moves[0])
	}
	if r.moves[1][0].ID != 1 || r.moves[1][1].ID != 2 {
		t.Errorf("expected the previous selection to be released exactly once, got %+v", r.moves[1])
	}
	if r.active[0] != "Canidae (犬科)" || r.active[1] != "Felidae" {
		t.Errorf("unexpected indicator labels %q", r.active)
	}

	c.SetCollectionFilter(nil)
	if c.State().CollectionID != nil {
		t.Error("expected nil to remove the collection filter")
	}
	if r.active[len(r.active)-1] != "" {
		t.Error("expected the indicator to clear")
	}
}

func TestClearReloadsOnceEvenWhenIdle(t *testing.T) {
	c, r := newRecorded(t)
	c.Clear()
	if len(r.reloads) != 1 {
		t.Errorf("expected Clear to reload once, got %d", len(r.reloads))
	}
}

func TestClearEmptiesMirroredInputs(t *testing.T) {
	a, b := &fakeInput{}, &fakeInput{}
	m := NewMirror(a, b)
	c, _ := newRecorded(t, WithMirror(m))

	m.Input(0, "wolf")
	c.SetFreeText(m.Value())
	c.Clear()

	if a.value != "" || b.value != "" || m.Value() != "" {
		t.Errorf("expected both inputs empty, got %q %q", a.value, b.value)
	}
}

func TestPaging(t *testing.T) {
	c, r := newRecorded(t)

	if c.PrevPage() {
		t.Error("expected no previous page from page 0")
	}
	if !c.NextPage(45) || !c.NextPage(45) {
		t.Fatal("expected pages 1 and 2 to exist for 45 rows")
	}
	if c.NextPage(45) {
		t.Error("expected no page beyond the third")
	}
	if !c.PrevPage() || c.State().Page != 1 {
		t.Errorf("expected to return to page 1, got %d", c.State().Page)
	}
	if len(r.reloads) != 3 {
		t.Errorf("expected 3 reloads, got %d", len(r.reloads))
	}
	if c.SetPage(-4); c.State().Page != 0 {
		t.Errorf("expected clamp to 0, got %d", c.State().Page)
	}
}

func TestStateIsACopy(t *testing.T) {
	c, _ := newRecorded(t)
	c.SetCollectionFilter(&Collection{ID: 5})
	st := c.State()
	*st.CollectionID = 99
	if *c.State().CollectionID != 5 {
		t.Error("mutating the returned state leaked into the controller")
	}
}

func TestSortToggle(t *testing.T) {
	var s *SortSpec
	s = s.Toggled(SortByName)
	if s.Field != SortByName || s.Direction != SortAscending {
		t.Errorf("expected ascending name, got %+v", s)
	}
	s = s.Toggled(SortByName)
	if s.Direction != SortDescending {
		t.Error("expected the second press to flip direction")
	}
	s = s.Toggled(SortByStatus)
	if s.Field != SortByStatus || s.Direction != SortAscending {
		t.Errorf("expected a new field to start ascending, got %+v", s)
	}
}

func TestSignature(t *testing.T) {
	id := int64(3)
	a := QueryState{FreeText: "x", CollectionID: &id, PageSize: 20}
	b := a
	other := int64(3)
	b.CollectionID = &other
	if a.Signature() != b.Signature() {
		t.Error("expected equal signatures for equal ids behind different pointers")
	}
	b.Sort = &SortSpec{Field: SortByName, Direction: SortDescending}
	if a.Signature() == b.Signature() {
		t.Error("expected sort to change the signature")
	}
	if got := (QueryState{PageSize: 20}).PageCount(41); got != 3 {
		t.Errorf("expected 3 pages, got %d", got)
	}
	if got := (QueryState{PageSize: 20}).PageCount(0); got != 1 {
		t.Errorf("expected at least 1 page, got %d", got)
	}
}
