package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxa/pkg/hierarchy"
	"github.com/vanderheijden86/taxa/pkg/treefilter"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

// TreeModel projects a hierarchy.Tree and its treefilter.State into a
// scrollable list of rows. It owns no filtering logic; every visibility
// change goes through treefilter.
type TreeModel struct {
	theme  Theme
	tree   *hierarchy.Tree
	state  *treefilter.State
	rows   []treefilter.Row
	err    error
	loaded bool

	// activeID is the node whose collection filters the listing.
	activeID string

	cursor         int
	viewportOffset int
	width          int
	height         int
}

// NewTreeModel returns an empty tree pane.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme: theme,
		state: treefilter.NewState(),
	}
}

// SetSize sets the pane dimensions.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetTree replaces the hierarchy. Expansion, the selection and the current
// filter carry over because node ids are stable across rebuilds.
func (t *TreeModel) SetTree(tree *hierarchy.Tree) {
	t.tree = tree
	t.err = nil
	t.loaded = true
	if t.state.Query != "" {
		t.state = treefilter.Apply(tree, t.state, t.state.Query)
	}
	if t.activeID != "" && tree.Find(t.activeID) == nil {
		t.activeID = ""
	}
	t.rebuildRows()
	t.restoreCursor()
}

// SetError records a hierarchy load failure.
func (t *TreeModel) SetError(err error) {
	t.err = err
	t.loaded = true
}

// Err returns the last hierarchy load failure.
func (t *TreeModel) Err() error {
	return t.err
}

// Tree returns the current hierarchy, or nil before the first load.
func (t *TreeModel) Tree() *hierarchy.Tree {
	return t.tree
}

// State returns the filter state being rendered.
func (t *TreeModel) State() *treefilter.State {
	return t.state
}

// ApplyFilter runs the tree search for query.
func (t *TreeModel) ApplyFilter(query string) {
	t.state = treefilter.Apply(t.tree, t.state, query)
	t.rebuildRows()
	t.cursor = 0
	t.viewportOffset = 0
	if t.state.Filtering() {
		for i, r := range t.rows {
			if t.state.Matched(r.Node.ID) {
				t.cursor = i
				break
			}
		}
	}
	t.ensureCursorVisible()
}

// GetFilter returns the active tree search.
func (t *TreeModel) GetFilter() string {
	return t.state.Query
}

// SetActive highlights the node for collection id, or clears the highlight
// when col is nil.
func (t *TreeModel) SetActive(col *viewstate.Collection) {
	t.activeID = ""
	if col == nil || t.tree == nil {
		return
	}
	if n := t.tree.FindCollection(col.ID); n != nil {
		t.activeID = n.ID
	}
}

// ActiveID returns the id of the highlighted node.
func (t *TreeModel) ActiveID() string {
	return t.activeID
}

func (t *TreeModel) rebuildRows() {
	t.rows = t.state.Rows(t.tree)
}

func (t *TreeModel) restoreCursor() {
	if id := t.state.Selected; id != "" {
		for i, r := range t.rows {
			if r.Node.ID == id {
				t.cursor = i
				t.ensureCursorVisible()
				return
			}
		}
	}
	t.cursor = clamp(t.cursor, 0, max(len(t.rows)-1, 0))
	t.ensureCursorVisible()
}

// Rows returns the rows currently rendered.
func (t *TreeModel) Rows() []treefilter.Row {
	return t.rows
}

// SelectedNode returns the node under the cursor.
func (t *TreeModel) SelectedNode() *hierarchy.Node {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return nil
	}
	return t.rows[t.cursor].Node
}

// SelectedCollection converts the node under the cursor into a listing
// filter.
func (t *TreeModel) SelectedCollection() *viewstate.Collection {
	n := t.SelectedNode()
	if n == nil {
		return nil
	}
	return &viewstate.Collection{ID: n.CollectionID, Name: n.Name, NameZh: n.NameZh}
}

func (t *TreeModel) syncSelection() {
	if n := t.SelectedNode(); n != nil {
		t.state.Select(n.ID)
	}
}

// MoveDown moves the cursor down one row.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.cursor++
		t.syncSelection()
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up one row.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.syncSelection()
		t.ensureCursorVisible()
	}
}

// PageDown moves the cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor = clamp(t.cursor+t.halfPage(), 0, max(len(t.rows)-1, 0))
	t.syncSelection()
	t.ensureCursorVisible()
}

// PageUp moves the cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor = clamp(t.cursor-t.halfPage(), 0, max(len(t.rows)-1, 0))
	t.syncSelection()
	t.ensureCursorVisible()
}

func (t *TreeModel) halfPage() int {
	if n := t.visibleCount() / 2; n > 0 {
		return n
	}
	return 5
}

// JumpToTop moves to the first row.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.syncSelection()
	t.ensureCursorVisible()
}

// JumpToBottom moves to the last row.
func (t *TreeModel) JumpToBottom() {
	t.cursor = max(len(t.rows)-1, 0)
	t.syncSelection()
	t.ensureCursorVisible()
}

// ToggleExpand expands or collapses the node under the cursor.
func (t *TreeModel) ToggleExpand() {
	n := t.SelectedNode()
	if n == nil || n.IsLeaf() {
		return
	}
	t.state.Toggle(n.ID)
	t.rebuildRows()
	t.ensureCursorVisible()
}

// ExpandOrMoveToChild expands a collapsed node, or steps onto its first
// child when already expanded.
func (t *TreeModel) ExpandOrMoveToChild() {
	n := t.SelectedNode()
	if n == nil || n.IsLeaf() {
		return
	}
	if !t.state.Expanded(n.ID) {
		t.ToggleExpand()
		return
	}
	t.MoveDown()
}

// CollapseOrJumpToParent collapses an expanded node, or moves to the parent.
func (t *TreeModel) CollapseOrJumpToParent() {
	n := t.SelectedNode()
	if n == nil {
		return
	}
	if !n.IsLeaf() && t.state.Expanded(n.ID) {
		t.ToggleExpand()
		return
	}
	if n.Parent == nil {
		return
	}
	for i, r := range t.rows {
		if r.Node == n.Parent {
			t.cursor = i
			t.syncSelection()
			t.ensureCursorVisible()
			return
		}
	}
}

// ExpandAll expands every node.
func (t *TreeModel) ExpandAll() {
	t.state.ExpandAll(t.tree)
	t.rebuildRows()
	t.restoreCursor()
}

// CollapseAll collapses every node.
func (t *TreeModel) CollapseAll() {
	n := t.SelectedNode()
	t.state.CollapseAll()
	t.rebuildRows()
	if n != nil {
		// fall back to the root the selection lived under
		for n.Parent != nil {
			n = n.Parent
		}
		t.state.Select(n.ID)
	}
	t.restoreCursor()
}

func (t *TreeModel) visibleCount() int {
	// header row and position indicator
	n := t.height - 2
	if n < 1 {
		return 1
	}
	return n
}

func (t *TreeModel) ensureCursorVisible() {
	count := t.visibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+count {
		t.viewportOffset = t.cursor - count + 1
	}
	maxOffset := max(len(t.rows)-count, 0)
	t.viewportOffset = clamp(t.viewportOffset, 0, maxOffset)
}

func (t *TreeModel) visibleRange() (start, end int) {
	start = t.viewportOffset
	end = min(start+t.visibleCount(), len(t.rows))
	return start, end
}

// View renders the pane.
func (t *TreeModel) View() string {
	if t.err != nil {
		return t.renderErrorState()
	}
	if !t.loaded {
		return t.theme.MutedText.Render("Loading taxonomy tree…")
	}
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	sb.WriteString(t.RenderHeader())
	sb.WriteString("\n")

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		row := t.rows[i]
		line := t.renderNode(row)
		switch {
		case i == t.cursor:
			line = t.theme.Selected.Render(line)
		case row.Node.ID == t.activeID:
			line = t.theme.Active.Render(line)
		case t.state.Filtering() && !t.state.Matched(row.Node.ID):
			line = t.theme.Renderer.NewStyle().Foreground(t.theme.Muted).Faint(true).Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(t.rows) > t.visibleCount() {
		sb.WriteString(t.renderPositionIndicator(start, end))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderHeader returns the styled column header for the pane.
func (t *TreeModel) RenderHeader() string {
	width := t.width
	if width <= 0 {
		width = 40
	}
	label := "TAXONOMY"
	if t.state.Filtering() {
		label = fmt.Sprintf("TAXONOMY  %d match(es) for %q", t.state.MatchCount(), t.state.Query)
	}
	return t.theme.Renderer.NewStyle().
		Background(t.theme.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Width(width).
		MaxWidth(width).
		Render(" " + label)
}

func (t *TreeModel) renderPositionIndicator(start, end int) string {
	return t.theme.MutedText.Render(fmt.Sprintf(" %d-%d of %d", start+1, end, len(t.rows)))
}

func (t *TreeModel) renderEmptyState() string {
	var sb strings.Builder
	sb.WriteString(t.theme.PrimaryBold.Render("Taxonomy"))
	sb.WriteString("\n\n")
	if t.state.Filtering() {
		sb.WriteString(t.theme.MutedText.Render(fmt.Sprintf("No taxon matches %q.", t.state.Query)))
	} else {
		sb.WriteString(t.theme.MutedText.Render("No taxa to display."))
	}
	return sb.String()
}

func (t *TreeModel) renderErrorState() string {
	var sb strings.Builder
	sb.WriteString(t.theme.ErrorText.Render("Failed to load taxonomy tree"))
	sb.WriteString("\n\n")
	sb.WriteString(t.theme.MutedText.Render(truncate(t.err.Error(), max(t.width, 20)*3)))
	sb.WriteString("\n\n")
	sb.WriteString(t.theme.MutedText.Render("Press r to retry."))
	return sb.String()
}

// renderNode lays out one row: [prefix] [indicator] [label] ... [count]
func (t *TreeModel) renderNode(row treefilter.Row) string {
	width := t.width
	if width <= 0 {
		width = 40
	}
	width--

	prefix := buildTreePrefix(row)
	indicator := t.getExpandIndicator(row.Node)
	count := formatCount(row.Node.Count)

	labelWidth := width - lipgloss.Width(prefix) - 2 - len(count) - 1
	label := truncate(row.Node.DisplayLabel(), max(labelWidth, 1))
	if t.state.Matched(row.Node.ID) {
		label = t.theme.MatchText.Render(label)
	}
	gap := max(width-lipgloss.Width(prefix)-2-lipgloss.Width(label)-len(count), 1)

	var sb strings.Builder
	sb.WriteString(t.theme.MutedText.Render(prefix))
	sb.WriteString(indicator)
	sb.WriteString(" ")
	sb.WriteString(label)
	sb.WriteString(strings.Repeat(" ", gap))
	sb.WriteString(t.theme.SecondaryText.Render(count))
	return sb.String()
}

// buildTreePrefix builds the indentation and branch characters for a row.
func buildTreePrefix(row treefilter.Row) string {
	if row.Depth == 0 {
		return ""
	}
	var sb strings.Builder
	// Trail[0] belongs to the root level, which draws no connector.
	for _, more := range row.Trail[1:] {
		if more {
			sb.WriteString("│   ")
		} else {
			sb.WriteString("    ")
		}
	}
	if row.Last {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
	return sb.String()
}

func (t *TreeModel) getExpandIndicator(n *hierarchy.Node) string {
	if n.IsLeaf() {
		return "•"
	}
	if t.state.Expanded(n.ID) {
		return "▾"
	}
	return "▸"
}
