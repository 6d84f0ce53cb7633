package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

func intp(n int) *int { return &n }

// fakeSource serves a five-rank carnivore tree and three species.
type fakeSource struct {
	mu        sync.Mutex
	treeErr   error
	itemsErr  error
	calls     int
	queries   []viewstate.QueryState
	members   map[int64][]string
	items     []model.RecordSummary
	itemCalls int
}

func newFakeSource() *fakeSource {
	all := []string{"1", "2", "3"}
	return &fakeSource{
		members: map[int64][]string{1: all, 2: all, 3: all, 4: all, 5: {"1", "2"}, 6: {"3"}},
		items: []model.RecordSummary{
			{ID: "1", ScientificName: "Canis lupus", CommonName: "灰狼", Status: model.StatusCurrent},
			{ID: "2", ScientificName: "Vulpes vulpes", CommonName: "赤狐", OtherNames: "紅狐", Status: model.StatusJuniorSynonym},
			{ID: "3", ScientificName: "Felis catus", CommonName: "家貓", Status: model.StatusCurrent},
		},
	}
}

func (f *fakeSource) Collections(ctx context.Context) ([]model.CollectionNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.treeErr != nil {
		return nil, f.treeErr
	}
	return []model.CollectionNode{{
		ID: 1, Name: "Animalia", NameZh: "動物界", Level: "kingdom", Count: intp(3),
		Children: []model.CollectionNode{{
			ID: 2, Name: "Chordata", Level: "phylum", Count: intp(3),
			Children: []model.CollectionNode{{
				ID: 3, Name: "Mammalia", Level: "class", Count: intp(3),
				Children: []model.CollectionNode{{
					ID: 4, Name: "Carnivora", Level: "order", Count: intp(3),
					Children: []model.CollectionNode{
						{ID: 5, Name: "Canidae", NameZh: "犬科", Level: "family", Count: intp(2)},
						{ID: 6, Name: "Felidae", NameZh: "貓科", Level: "family", Count: intp(1)},
					},
				}},
			}},
		}},
	}}, nil
}

func (f *fakeSource) Items(ctx context.Context, q viewstate.QueryState) (model.ResultPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	if f.itemsErr != nil {
		return model.ResultPage{}, f.itemsErr
	}

	allowed := map[string]bool{}
	if q.CollectionID != nil {
		for _, id := range f.members[*q.CollectionID] {
			allowed[id] = true
		}
	}
	var matched []model.RecordSummary
	for _, it := range f.items {
		if q.CollectionID != nil && !allowed[it.ID] {
			continue
		}
		if q.FreeText != "" && !strings.Contains(strings.ToLower(it.ScientificName), strings.ToLower(q.FreeText)) {
			continue
		}
		matched = append(matched, it)
	}
	page := model.ResultPage{Items: []model.RecordSummary{}, Total: len(matched)}
	start := min(q.Offset(), len(matched))
	end := min(start+q.PageSize, len(matched))
	page.Items = append(page.Items, matched[start:end]...)
	return page, nil
}

func (f *fakeSource) Item(ctx context.Context, id string) (model.RecordSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls++
	for _, it := range f.items {
		if it.ID == id {
			it.Path = []model.RankValue{{Name: "Animalia", NameZh: "動物界"}, {Name: "Chordata"}}
			return it, nil
		}
	}
	return model.RecordSummary{}, listing.ErrNotFound
}

func (f *fakeSource) lastQuery() viewstate.QueryState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Listing.PageSize = 20
	cfg.Listing.SlowAfter = 0
	cfg.Debounce.Search = 0
	cfg.Debounce.TreeFilter = 0
	cfg.Debounce.Relayout = 0
	return cfg
}

// collect runs cmd and returns the messages it produces. Commands that do
// not answer quickly (cursor blink, spinner, file watch) are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(100 * time.Millisecond):
		return nil
	}

	switch msg := msg.(type) {
	case nil:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// pump feeds msg and every message it causes back into the model until
// nothing is left.
func pump(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	queue := append([]tea.Msg(nil), msgs...)
	for i := 0; len(queue) > 0; i++ {
		if i > 200 {
			t.Fatal("message loop did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		next, cmd := m.Update(msg)
		m = next.(Model)
		queue = append(queue, collect(cmd)...)
	}
	return m
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = pump(t, m, keyMsg(string(r)))
	}
	return m
}

// start builds a model and runs the first tree load and listing fetch.
func start(t *testing.T, src *fakeSource, cfg config.Config, opts ...Option) Model {
	t.Helper()
	opts = append([]Option{WithDetailStyle("notty")}, opts...)
	m := NewModel(src, cfg, opts...)
	m.Controller().Refresh()
	return pump(t, m, LoadTreeCmd(context.Background(), src)())
}

func TestInitialLoad(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())

	if got := src.callCount(); got != 1 {
		t.Fatalf("expected one listing fetch, got %d", got)
	}
	if got := m.Listing().Page().Total; got != 3 {
		t.Errorf("expected total 3, got %d", got)
	}
	view := m.View()
	for _, want := range []string{"Animalia (動物界)", "Showing 3 species", "Canis lupus"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
	if m.Gateway().InFlight() {
		t.Error("expected no request in flight")
	}
}

func TestTreeLoadFailureShowsPlaceholder(t *testing.T) {
	src := newFakeSource()
	src.treeErr = errors.New("connection refused")
	m := start(t, src, testConfig())

	if !strings.Contains(m.View(), "Failed to load taxonomy tree") {
		t.Fatalf("expected tree error placeholder, got:\n%s", m.View())
	}

	src.mu.Lock()
	src.treeErr = nil
	src.mu.Unlock()
	m = pump(t, m, keyMsg("r"))
	if strings.Contains(m.View(), "Failed to load taxonomy tree") {
		t.Error("expected retry to load the tree")
	}
	if m.Tree().Tree() == nil {
		t.Error("expected a tree after retry")
	}
}

func TestActivatingTreeNodeFiltersListing(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())

	m = pump(t, m, keyMsg("E"))
	if got := len(m.Tree().Rows()); got != 6 {
		t.Fatalf("expected 6 rows after expand all, got %d", got)
	}
	for i := 0; i < 4; i++ {
		m = pump(t, m, keyMsg("down"))
	}
	if n := m.Tree().SelectedNode(); n == nil || n.Name != "Canidae" {
		t.Fatalf("expected cursor on Canidae, got %v", n)
	}

	m = pump(t, m, keyMsg("enter"))
	q := src.lastQuery()
	if q.CollectionID == nil || *q.CollectionID != 5 {
		t.Fatalf("expected collection 5 query, got %+v", q)
	}
	if got := m.FilterLabel(); got != "Canidae (犬科)" {
		t.Errorf("expected filter label, got %q", got)
	}
	if m.Tree().ActiveID() != m.Tree().SelectedNode().ID {
		t.Error("expected Canidae to be highlighted as active")
	}
	if got := m.Listing().Page().Total; got != 2 {
		t.Errorf("expected 2 canids, got %d", got)
	}

	// Felidae replaces Canidae as the single active selection.
	m = pump(t, m, keyMsg("down"), keyMsg("enter"))
	if got := m.FilterLabel(); got != "Felidae (貓科)" {
		t.Errorf("expected Felidae label, got %q", got)
	}
	if m.Tree().ActiveID() != m.Tree().SelectedNode().ID {
		t.Error("expected the highlight to move to Felidae")
	}

	// Activating the active node again removes the filter.
	m = pump(t, m, keyMsg("enter"))
	if m.FilterLabel() != "" || m.Tree().ActiveID() != "" {
		t.Error("expected filter removed")
	}
	if src.lastQuery().CollectionID != nil {
		t.Error("expected unfiltered query")
	}
}

func TestSearchInputsMirrorAndCommit(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())

	m = pump(t, m, keyMsg("/"))
	if m.FocusState() != "search" {
		t.Fatalf("expected search focus, got %s", m.FocusState())
	}
	m = typeText(t, m, "felis")

	for i, v := range m.SearchValues() {
		if v != "felis" {
			t.Errorf("input %d shows %q", i, v)
		}
	}
	if got := src.lastQuery().FreeText; got != "felis" {
		t.Errorf("expected committed free text, got %q", got)
	}
	if got := m.Listing().Page().Total; got != 1 {
		t.Errorf("expected one match, got %d", got)
	}

	// The gallery shows the same text.
	m = pump(t, m, keyMsg("esc"), keyMsg("v"))
	if !strings.Contains(m.View(), "felis") {
		t.Error("expected gallery search input to show mirrored text")
	}
}

func TestSearchDebounceCommitsOnlyLastValue(t *testing.T) {
	src := newFakeSource()
	cfg := testConfig()
	cfg.Debounce.Search = 10 * time.Millisecond
	m := start(t, src, cfg)
	m = pump(t, m, keyMsg("/"))

	send := func(msg tea.Msg) []tea.Msg {
		next, cmd := m.Update(msg)
		m = next.(Model)
		return collect(cmd)
	}
	var ticks []DebounceTickMsg
	for _, r := range "wol" {
		for _, msg := range send(keyMsg(string(r))) {
			if tick, ok := msg.(DebounceTickMsg); ok {
				ticks = append(ticks, tick)
			}
		}
	}
	if len(ticks) != 3 {
		t.Fatalf("expected 3 ticks, got %d", len(ticks))
	}

	before := src.callCount()
	for _, tick := range ticks[:2] {
		if out := send(tick); len(out) != 0 {
			t.Errorf("stale tick %d produced %v", tick.Gen, out)
		}
	}
	if src.callCount() != before {
		t.Fatal("stale ticks must not reload")
	}

	m = pump(t, m, ticks[2])
	if got := src.callCount(); got != before+1 {
		t.Errorf("expected exactly one reload, got %d", got-before)
	}
	if got := src.lastQuery().FreeText; got != "wol" {
		t.Errorf("expected %q, got %q", "wol", got)
	}
}

func TestStaleListingResultIsDropped(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())
	g := m.Gateway()

	first := g.Begin(viewstate.QueryState{FreeText: "canis", PageSize: 20})
	second := g.Begin(viewstate.QueryState{FreeText: "felis", PageSize: 20})

	secondPage := model.ResultPage{Items: []model.RecordSummary{{ID: "3", ScientificName: "Felis catus"}}, Total: 1}
	firstPage := model.ResultPage{Items: []model.RecordSummary{{ID: "1", ScientificName: "Canis lupus"}}, Total: 1}

	m = pump(t, m,
		ListingLoadedMsg{Result: listing.Result{Seq: second.Seq, Query: second.Query, Page: secondPage}},
		ListingLoadedMsg{Result: listing.Result{Seq: first.Seq, Query: first.Query, Page: firstPage}},
	)

	items := m.Listing().Page().Items
	if len(items) != 1 || items[0].ID != "3" {
		t.Fatalf("expected the second request's page, got %+v", items)
	}
}

func TestListingErrorPlaceholderAndRetry(t *testing.T) {
	src := newFakeSource()
	src.itemsErr = &listing.StatusError{Code: 502, URL: "http://example.test/items"}
	m := start(t, src, testConfig())

	if !strings.Contains(m.View(), "Failed to load records") {
		t.Fatalf("expected listing error placeholder, got:\n%s", m.View())
	}

	src.mu.Lock()
	src.itemsErr = nil
	src.mu.Unlock()
	m = pump(t, m, keyMsg("r"))
	if m.Listing().Err() != nil {
		t.Errorf("expected retry to clear the error, got %v", m.Listing().Err())
	}
	if got := m.Listing().Page().Total; got != 3 {
		t.Errorf("expected 3 after retry, got %d", got)
	}

	// A refresh that fails after a successful load keeps the rows on screen.
	src.mu.Lock()
	src.itemsErr = &listing.StatusError{Code: 503, URL: "http://example.test/items"}
	src.mu.Unlock()
	m = pump(t, m, keyMsg("1"))
	if m.Listing().Err() == nil {
		t.Fatal("expected the failed refresh to be reported")
	}
	view := m.View()
	for _, want := range []string{"Failed to load records", "Press r to retry.", "Canis lupus"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q after a failed refresh, got:\n%s", want, view)
		}
	}
	if got := m.Listing().Page().Total; got != 3 {
		t.Errorf("expected the previous page kept, got total %d", got)
	}
	if _, ok := m.Listing().Selected(); !ok {
		t.Error("expected the retained rows to stay selectable")
	}
}

func TestClearResetsFiltersWithOneReload(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())

	m = pump(t, m, keyMsg("/"))
	m = typeText(t, m, "c")
	m = pump(t, m, keyMsg("esc"), keyMsg("E"))
	for i := 0; i < 4; i++ {
		m = pump(t, m, keyMsg("down"))
	}
	m = pump(t, m, keyMsg("enter"))

	before := src.callCount()
	m = pump(t, m, keyMsg("x"))
	if got := src.callCount() - before; got != 1 {
		t.Fatalf("expected one reload on clear, got %d", got)
	}
	q := src.lastQuery()
	if q.FreeText != "" || q.CollectionID != nil {
		t.Errorf("expected cleared query, got %+v", q)
	}
	for i, v := range m.SearchValues() {
		if v != "" {
			t.Errorf("input %d still shows %q", i, v)
		}
	}
	if m.FilterLabel() != "" || m.Tree().ActiveID() != "" {
		t.Error("expected the filter indicator and highlight cleared")
	}
}

func TestViewModeSwitchDoesNotReload(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())
	before := src.callCount()

	m = pump(t, m, keyMsg("v"))
	if src.callCount() != before {
		t.Error("switching views must not reload")
	}
	if m.Listing().Mode() != viewstate.ViewGallery {
		t.Fatalf("expected gallery mode")
	}
	if !strings.Contains(m.View(), "[gallery]") {
		t.Error("expected gallery marker in results info")
	}
	if !strings.Contains(m.View(), "COMMON") {
		t.Error("expected status badges on gallery cards")
	}
}

func TestSlowIndicator(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())
	req := m.Gateway().Begin(m.Controller().State())

	m = pump(t, m, SlowCheckMsg{Seq: req.Seq})
	if !strings.Contains(m.View(), "taking too long") {
		t.Fatal("expected slow indicator")
	}

	page, _ := src.Items(context.Background(), req.Query)
	m = pump(t, m, ListingLoadedMsg{Result: listing.Result{Seq: req.Seq, Query: req.Query, Page: page}})
	if strings.Contains(m.View(), "taking too long") {
		t.Error("expected slow indicator cleared on arrival")
	}
}

func TestDetailOpensAndGoesBack(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())

	m = pump(t, m, keyMsg("tab"), keyMsg("down"), keyMsg("enter"))
	if m.FocusState() != "detail" {
		t.Fatalf("expected detail focus, got %s", m.FocusState())
	}
	rec, ok := m.DetailRecord()
	if !ok || rec.ID != "2" {
		t.Fatalf("expected record 2 in detail, got %+v", rec)
	}
	if len(rec.Path) == 0 {
		t.Error("expected the detail record to be enriched with its path")
	}
	if !strings.Contains(m.View(), "Vulpes vulpes") {
		t.Error("expected detail pane to show the record")
	}

	m = pump(t, m, keyMsg("esc"))
	if m.FocusState() != "listing" {
		t.Errorf("expected back to listing, got %s", m.FocusState())
	}
	if _, ok := m.DetailRecord(); ok {
		t.Error("expected detail closed")
	}
}

func TestPagingKeys(t *testing.T) {
	src := newFakeSource()
	cfg := testConfig()
	cfg.Listing.PageSize = 2
	m := start(t, src, cfg)

	m = pump(t, m, keyMsg("]"))
	if got := src.lastQuery().Page; got != 1 {
		t.Fatalf("expected page 1, got %d", got)
	}
	if got := len(m.Listing().Page().Items); got != 1 {
		t.Errorf("expected one row on the last page, got %d", got)
	}

	before := src.callCount()
	m = pump(t, m, keyMsg("]"))
	if src.callCount() != before {
		t.Error("paging past the end must not reload")
	}

	m = pump(t, m, keyMsg("["))
	if got := src.lastQuery().Page; got != 0 {
		t.Errorf("expected page 0, got %d", got)
	}
}

func TestSortKeysToggleDirection(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())

	m = pump(t, m, keyMsg("1"))
	q := src.lastQuery()
	if q.Sort == nil || q.Sort.Field != viewstate.SortByName || q.Sort.Direction != viewstate.SortAscending {
		t.Fatalf("expected name ascending, got %+v", q.Sort)
	}
	m = pump(t, m, keyMsg("1"))
	if q := src.lastQuery(); q.Sort.Direction != viewstate.SortDescending {
		t.Errorf("expected name descending, got %+v", q.Sort)
	}
	_ = pump(t, m, keyMsg("3"))
	if q := src.lastQuery(); q.Sort.Field != viewstate.SortByStatus {
		t.Errorf("expected status sort, got %+v", q.Sort)
	}
}

func TestTreeSearchFiltersLocally(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())
	before := src.callCount()

	m = pump(t, m, keyMsg("f"))
	m = typeText(t, m, "felidae")
	if src.callCount() != before {
		t.Error("tree search must not touch the listing")
	}
	rows := m.Tree().Rows()
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows on the Felidae path, got %d", len(rows))
	}
	for _, r := range rows {
		if r.Node.Name == "Canidae" {
			t.Error("expected Canidae hidden")
		}
	}
	if n := m.Tree().SelectedNode(); n == nil || n.Name != "Felidae" {
		t.Errorf("expected cursor on the match, got %v", n)
	}
}

func TestFileChangeReloadsTreeAndListing(t *testing.T) {
	src := newFakeSource()
	changes := make(chan struct{})
	close(changes)
	reloads := 0
	reload := func(context.Context) error {
		reloads++
		return nil
	}
	m := start(t, src, testConfig(), WithFileReload(changes, reload))
	before := src.callCount()

	m = pump(t, m, FileChangedMsg{})
	if reloads != 1 {
		t.Fatalf("expected one file reload, got %d", reloads)
	}
	if got := src.callCount() - before; got != 1 {
		t.Errorf("expected the listing refreshed once, got %d", got)
	}
	if msg, isErr := m.StatusMessage(); msg != "Records reloaded" || isErr {
		t.Errorf("unexpected status %q", msg)
	}
}

func TestFileReloadFailureKeepsData(t *testing.T) {
	src := newFakeSource()
	changes := make(chan struct{})
	close(changes)
	m := start(t, src, testConfig(), WithFileReload(changes, func(context.Context) error {
		return errors.New("bad row")
	}))

	m = pump(t, m, FileChangedMsg{})
	msg, isErr := m.StatusMessage()
	if !isErr || !strings.Contains(msg, "bad row") {
		t.Errorf("expected reload error in status, got %q", msg)
	}
	if m.Listing().Page().Total != 3 {
		t.Error("expected previous page kept")
	}
}

func TestWindowResizeRelayout(t *testing.T) {
	src := newFakeSource()
	m := start(t, src, testConfig())
	builds := m.Listing().Builds()

	m = pump(t, m, tea.WindowSizeMsg{Width: 160, Height: 50})
	if m.Listing().Builds() != builds+1 {
		t.Errorf("expected one relayout rebuild, got %d", m.Listing().Builds()-builds)
	}
	if m.Listing().Page().Total != 3 {
		t.Error("relayout must keep the page")
	}
}
