package viewstate

import (
	"strings"

	"github.com/vanderheijden86/taxa/pkg/debug"
)

// ViewMode selects how listing rows are presented. It never affects the
// remote query.
type ViewMode int

const (
	ViewTable ViewMode = iota
	ViewGallery
)

func (m ViewMode) String() string {
	if m == ViewGallery {
		return "gallery"
	}
	return "table"
}

// ParseViewMode maps a config value to a ViewMode, defaulting to table.
func ParseViewMode(s string) ViewMode {
	if strings.EqualFold(s, "gallery") {
		return ViewGallery
	}
	return ViewTable
}

// Controller is the single owner of the session's QueryState. Every setter
// commits the new state and fires OnReload exactly once when the query
// signature changed. It is not safe for concurrent use; the TUI drives it
// from its update loop.
type Controller struct {
	state    QueryState
	selected *Collection
	mode     ViewMode
	mirror   *Mirror

	onReload       func(QueryState)
	onFilterActive func(active bool, label string)
	onSelection    func(prev, next *Collection)
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnReload registers the reload hook.
func WithOnReload(fn func(QueryState)) Option {
	return func(c *Controller) { c.onReload = fn }
}

// WithOnFilterActiveChanged registers the active-filter indicator hook.
func WithOnFilterActiveChanged(fn func(active bool, label string)) Option {
	return func(c *Controller) { c.onFilterActive = fn }
}

// WithOnSelectionChanged registers the hook that moves the selection
// highlight from prev to next. Either may be nil.
func WithOnSelectionChanged(fn func(prev, next *Collection)) Option {
	return func(c *Controller) { c.onSelection = fn }
}

// WithMirror attaches the search inputs cleared by Clear.
func WithMirror(m *Mirror) Option {
	return func(c *Controller) { c.mirror = m }
}

// WithViewMode sets the initial view mode.
func WithViewMode(m ViewMode) Option {
	return func(c *Controller) { c.mode = m }
}

// New returns a controller with an empty query.
func New(pageSize int, opts ...Option) *Controller {
	if pageSize <= 0 {
		pageSize = 20
	}
	c := &Controller{state: QueryState{PageSize: pageSize}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the committed query.
func (c *Controller) State() QueryState {
	s := c.state
	if s.CollectionID != nil {
		id := *s.CollectionID
		s.CollectionID = &id
	}
	if s.Sort != nil {
		sort := *s.Sort
		s.Sort = &sort
	}
	return s
}

// Selected returns the active collection filter, or nil.
func (c *Controller) Selected() *Collection {
	return c.selected
}

// ViewMode returns the current presentation mode.
func (c *Controller) ViewMode() ViewMode {
	return c.mode
}

// commit applies mutate and reloads if the signature moved.
func (c *Controller) commit(reason string, mutate func(*QueryState)) bool {
	before := c.state.Signature()
	mutate(&c.state)
	if c.state.Signature() == before {
		debug.Log("viewstate: %s left query unchanged", reason)
		return false
	}
	c.reload(reason)
	return true
}

func (c *Controller) reload(reason string) {
	debug.Log("viewstate: reload (%s) %s", reason, c.state.Signature())
	if c.onReload != nil {
		c.onReload(c.State())
	}
}

// SetFreeText commits debounced search text. A change resets the page.
func (c *Controller) SetFreeText(text string) bool {
	text = strings.TrimSpace(text)
	return c.commit("free text", func(q *QueryState) {
		if q.FreeText != text {
			q.FreeText = text
			q.Page = 0
		}
	})
}

// SetCollectionFilter narrows the listing to col, replacing any previous
// selection. nil removes the collection filter.
func (c *Controller) SetCollectionFilter(col *Collection) bool {
	prev := c.selected
	if sameCollection(prev, col) {
		return false
	}
	if col != nil {
		cp := *col
		col = &cp
	}
	c.selected = col

	if c.onSelection != nil {
		c.onSelection(prev, col)
	}
	if c.onFilterActive != nil {
		if col != nil {
			c.onFilterActive(true, col.Label())
		} else {
			c.onFilterActive(false, "")
		}
	}

	return c.commit("collection", func(q *QueryState) {
		if col == nil {
			q.CollectionID = nil
		} else {
			id := col.ID
			q.CollectionID = &id
		}
		q.Page = 0
	})
}

func sameCollection(a, b *Collection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

// SetPage moves to page i (clamped at 0).
func (c *Controller) SetPage(i int) bool {
	if i < 0 {
		i = 0
	}
	return c.commit("page", func(q *QueryState) { q.Page = i })
}

// NextPage advances one page if total allows it.
func (c *Controller) NextPage(total int) bool {
	if c.state.Page+1 >= c.state.PageCount(total) {
		return false
	}
	return c.SetPage(c.state.Page + 1)
}

// PrevPage goes back one page.
func (c *Controller) PrevPage() bool {
	if c.state.Page == 0 {
		return false
	}
	return c.SetPage(c.state.Page - 1)
}

// SetSort changes the listing order. nil restores the source order.
func (c *Controller) SetSort(s *SortSpec) bool {
	if s != nil {
		cp := *s
		s = &cp
	}
	return c.commit("sort", func(q *QueryState) { q.Sort = s })
}

// Clear resets free text and the collection filter with a single reload,
// and empties every mirrored search input.
func (c *Controller) Clear() {
	prev := c.selected
	c.selected = nil
	if prev != nil && c.onSelection != nil {
		c.onSelection(prev, nil)
	}
	if c.onFilterActive != nil {
		c.onFilterActive(false, "")
	}
	if c.mirror != nil {
		c.mirror.Clear()
	}
	c.state.FreeText = ""
	c.state.CollectionID = nil
	c.state.Page = 0
	c.reload("clear")
}

// Refresh reloads the current query unconditionally, for the first load
// and for retry after an error.
func (c *Controller) Refresh() {
	c.reload("refresh")
}

// SetViewMode switches presentation without touching the query.
func (c *Controller) SetViewMode(m ViewMode) {
	c.mode = m
}
