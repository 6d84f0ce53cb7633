// Package ui is the bubbletea browser: a taxonomy tree beside a filtered,
// paged listing of species with a detail pane.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/vanderheijden86/taxa/pkg/config"
	"github.com/vanderheijden86/taxa/pkg/detail"
	"github.com/vanderheijden86/taxa/pkg/listing"
	"github.com/vanderheijden86/taxa/pkg/logging"
	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

// Layout defaults used until the first WindowSizeMsg arrives.
const (
	defaultWidth  = 120
	defaultHeight = 40
	minTreeWidth  = 24
)

// focus represents which UI element has keyboard focus
type focus int

const (
	focusTree focus = iota
	focusTreeSearch
	focusListing
	focusSearch
	focusDetail
)

func (f focus) String() string {
	switch f {
	case focusTree:
		return "tree"
	case focusTreeSearch:
		return "tree_search"
	case focusListing:
		return "listing"
	case focusSearch:
		return "search"
	default:
		return "detail"
	}
}

// session collects controller and gateway callbacks. The hooks fire
// synchronously inside Update; Update drains them into commands before
// returning.
type session struct {
	reload *viewstate.QueryState

	filterActive bool
	filterLabel  string

	selectionChanged bool
	selection        *viewstate.Collection

	lastErr error
}

// Option configures a Model.
type Option func(*Model)

// WithContext sets the context for background fetches.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// WithLogger sets the logger. The TUI owns the terminal, so it should
// write to a file.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Model) { m.log = l }
}

// WithFileReload makes the browser re-import records whenever changes
// delivers a notification.
func WithFileReload(changes <-chan struct{}, reload func(context.Context) error) Option {
	return func(m *Model) {
		m.changes = changes
		m.reloadFiles = reload
	}
}

// WithDetailStyle forces the glamour style of the detail pane.
func WithDetailStyle(style string) Option {
	return func(m *Model) { m.detailStyle = style }
}

// WithSource labels the header with the data source description.
func WithSource(desc string) Option {
	return func(m *Model) { m.sourceDesc = desc }
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx        context.Context
	log        logrus.FieldLogger
	cfg        config.Config
	theme      Theme
	keys       KeyMap
	help       help.Model
	sourceDesc string

	controller *viewstate.Controller
	gateway    *listing.Gateway
	session    *session
	mirror     *viewstate.Mirror

	// searches holds one mirrored input per view mode.
	searches   [2]*textinput.Model
	treeSearch *textinput.Model

	searchDebounce   *Debouncer
	treeDebounce     *Debouncer
	relayoutDebounce *Debouncer

	tree    TreeModel
	listing *ListingView

	detailStyle  string
	presenter    *detail.Presenter
	detailVP     viewport.Model
	detailRecord *model.RecordSummary

	spinner spinner.Model

	changes     <-chan struct{}
	reloadFiles func(context.Context) error

	focus         focus
	prevFocus     focus
	width         int
	height        int
	showHelp      bool
	statusMsg     string
	statusIsError bool
}

// NewModel wires the browser around src.
func NewModel(src listing.Source, cfg config.Config, opts ...Option) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	mode := viewstate.ParseViewMode(cfg.UI.DefaultView)

	m := Model{
		ctx:     context.Background(),
		log:     logging.Discard(),
		cfg:     cfg,
		theme:   theme,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		session: &session{},
		tree:    NewTreeModel(theme),
		listing: NewListingView(theme, mode),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.PrimaryBold)),
		focus:   focusTree,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	for _, opt := range opts {
		opt(&m)
	}

	for i, placeholder := range []string{"Search species (table)…", "Search species (gallery)…"} {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = "/ "
		ti.CharLimit = 120
		m.searches[i] = &ti
	}
	ts := textinput.New()
	ts.Placeholder = "Find taxon…"
	ts.Prompt = "f "
	ts.CharLimit = 80
	m.treeSearch = &ts
	m.mirror = viewstate.NewMirror(m.searches[0], m.searches[1])

	m.searchDebounce = NewDebouncer(DebounceSearch, cfg.Debounce.Search)
	m.treeDebounce = NewDebouncer(DebounceTreeFilter, cfg.Debounce.TreeFilter)
	m.relayoutDebounce = NewDebouncer(DebounceRelayout, cfg.Debounce.Relayout)

	s := m.session
	m.controller = viewstate.New(cfg.Listing.PageSize,
		viewstate.WithMirror(m.mirror),
		viewstate.WithViewMode(mode),
		viewstate.WithOnReload(func(q viewstate.QueryState) { s.reload = &q }),
		viewstate.WithOnFilterActiveChanged(func(active bool, label string) {
			s.filterActive = active
			s.filterLabel = label
		}),
		viewstate.WithOnSelectionChanged(func(_, next *viewstate.Collection) {
			s.selectionChanged = true
			s.selection = next
		}),
	)

	log := m.log
	m.gateway = listing.NewGateway(src,
		listing.WithSlowAfter(cfg.Listing.SlowAfter),
		listing.WithLogger(log),
		listing.WithOnLoaded(func(model.ResultPage) { s.lastErr = nil }),
		listing.WithOnError(func(err error) { s.lastErr = err }),
		listing.WithOnSlow(func(slow bool) {
			if slow {
				log.WithField("after", cfg.Listing.SlowAfter).Warn("listing request is taking too long")
			}
		}),
	)

	p, err := detail.New(defaultWidth/2, detail.WithStyle(m.detailStyle))
	if err != nil {
		m.log.WithError(err).Warn("detail renderer unavailable, showing plain markdown")
	}
	m.presenter = p
	m.detailVP = viewport.New(defaultWidth/2, defaultHeight-6)

	m.resize()
	m.listing.Focus(false)
	return m
}

// Controller returns the query controller.
func (m Model) Controller() *viewstate.Controller {
	return m.controller
}

// Gateway returns the listing gateway.
func (m Model) Gateway() *listing.Gateway {
	return m.gateway
}

// Listing returns the listing pane.
func (m Model) Listing() *ListingView {
	return m.listing
}

// Tree returns the tree pane.
func (m Model) Tree() *TreeModel {
	return &m.tree
}

// FocusState names the focused element.
func (m Model) FocusState() string {
	return m.focus.String()
}

// FilterLabel returns the active-filter indicator text, or "".
func (m Model) FilterLabel() string {
	if !m.session.filterActive {
		return ""
	}
	return m.session.filterLabel
}

// SearchValues returns what every mirrored search input shows.
func (m Model) SearchValues() []string {
	out := make([]string, len(m.searches))
	for i, in := range m.searches {
		out[i] = in.Value()
	}
	return out
}

// DetailRecord returns the record open in the detail pane.
func (m Model) DetailRecord() (model.RecordSummary, bool) {
	if m.detailRecord == nil {
		return model.RecordSummary{}, false
	}
	return *m.detailRecord, true
}

// StatusMessage returns the footer message and whether it is an error.
func (m Model) StatusMessage() (string, bool) {
	return m.statusMsg, m.statusIsError
}

func (m Model) Init() tea.Cmd {
	m.controller.Refresh()
	cmds := []tea.Cmd{
		LoadTreeCmd(m.ctx, m.gateway.Source()),
		m.issueReload(),
		m.spinner.Tick,
	}
	if m.changes != nil && m.reloadFiles != nil {
		cmds = append(cmds, WatchChangesCmd(m.changes))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		cmds = append(cmds, m.relayoutDebounce.Trigger(""))

	case DebounceTickMsg:
		cmds = append(cmds, m.handleDebounce(msg))

	case TreeUpdatedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Error("taxonomy tree load failed")
			m.tree.SetError(msg.Err)
			break
		}
		m.tree.SetTree(msg.Tree)
		m.tree.SetActive(m.controller.Selected())
		m.log.WithField("nodes", msg.Tree.Len()).Debug("taxonomy tree updated")

	case ListingLoadedMsg:
		if !m.gateway.Resolve(msg.Result) {
			break
		}
		m.listing.Render(msg.Page)
		m.listing.Focus(m.focus == focusListing)

	case ListingErrorMsg:
		if !m.gateway.Resolve(msg.Result) {
			break
		}
		m.listing.ShowError(msg.Err)

	case SlowCheckMsg:
		m.gateway.MarkSlow(msg.Seq)

	case FileChangedMsg:
		m.setStatus("Records changed, reloading…", false)
		cmds = append(cmds, ReloadFilesCmd(m.ctx, m.reloadFiles), WatchChangesCmd(m.changes))

	case FilesReloadedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("records reload failed, keeping previous data")
			m.setStatus(msg.Err.Error(), true)
			break
		}
		m.setStatus("Records reloaded", false)
		m.controller.Refresh()
		cmds = append(cmds, LoadTreeCmd(m.ctx, m.gateway.Source()))

	case DetailLoadedMsg:
		if msg.Err != nil {
			m.setStatus(msg.Err.Error(), true)
			break
		}
		rec := msg.Record
		m.detailRecord = &rec
		m.renderDetail()
		if m.focus != focusDetail {
			m.prevFocus = m.focus
		}
		m.focus = focusDetail
		m.listing.Focus(false)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.drainSession())
	return m, tea.Batch(cmds...)
}

// drainSession applies queued callback effects and issues a pending reload.
func (m *Model) drainSession() tea.Cmd {
	s := m.session
	if s.selectionChanged {
		s.selectionChanged = false
		m.tree.SetActive(s.selection)
	}
	return m.issueReload()
}

func (m *Model) issueReload() tea.Cmd {
	q := m.session.reload
	if q == nil {
		return nil
	}
	m.session.reload = nil
	req := m.gateway.Begin(*q)
	cmds := []tea.Cmd{FetchCmd(m.ctx, m.gateway, req)}
	if after := m.gateway.SlowAfter(); after > 0 {
		cmds = append(cmds, SlowCheckCmd(after, req.Seq))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleDebounce(msg DebounceTickMsg) tea.Cmd {
	switch msg.Kind {
	case DebounceSearch:
		if m.searchDebounce.Fire(msg) {
			m.controller.SetFreeText(msg.Value)
		}
	case DebounceTreeFilter:
		if m.treeDebounce.Fire(msg) {
			m.tree.ApplyFilter(msg.Value)
		}
	case DebounceRelayout:
		if m.relayoutDebounce.Fire(msg) {
			m.relayout()
		}
	}
	return nil
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusIsError = isErr
}

func (m *Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return *m, tea.Quit
	}

	switch m.focus {
	case focusSearch:
		return m.handleSearchKeys(msg)
	case focusTreeSearch:
		return m.handleTreeSearchKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return *m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		return *m, nil
	case key.Matches(msg, m.keys.Search):
		return *m, m.focusInput(focusSearch)
	case key.Matches(msg, m.keys.TreeSearch):
		return *m, m.focusInput(focusTreeSearch)
	case key.Matches(msg, m.keys.Clear):
		m.searchDebounce.Cancel()
		m.controller.Clear()
		m.setStatus("Filters cleared", false)
		return *m, nil
	case key.Matches(msg, m.keys.ViewMode):
		m.toggleViewMode()
		return *m, nil
	case key.Matches(msg, m.keys.NextPage):
		m.controller.NextPage(m.gateway.Total())
		return *m, nil
	case key.Matches(msg, m.keys.PrevPage):
		m.controller.PrevPage()
		return *m, nil
	case key.Matches(msg, m.keys.SortName):
		m.toggleSort(viewstate.SortByName)
		return *m, nil
	case key.Matches(msg, m.keys.SortNameZh):
		m.toggleSort(viewstate.SortByNameZh)
		return *m, nil
	case key.Matches(msg, m.keys.SortStatus):
		m.toggleSort(viewstate.SortByStatus)
		return *m, nil
	case key.Matches(msg, m.keys.Retry):
		return *m, m.retry()
	case key.Matches(msg, m.keys.NextPane):
		m.cycleFocus()
		return *m, nil
	}

	switch m.focus {
	case focusTree:
		m.handleTreeKeys(msg)
		return *m, nil
	case focusListing:
		return *m, m.handleListingKeys(msg)
	case focusDetail:
		return *m, m.handleDetailKeys(msg)
	}
	return *m, nil
}

func (m *Model) handleTreeKeys(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.tree.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.tree.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.tree.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.tree.PageDown()
	case key.Matches(msg, m.keys.Expand):
		m.tree.ExpandOrMoveToChild()
	case key.Matches(msg, m.keys.Collapse):
		m.tree.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.Toggle):
		m.tree.ToggleExpand()
	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandAll()
	case key.Matches(msg, m.keys.CollapseAll):
		m.tree.CollapseAll()
	case key.Matches(msg, m.keys.Back):
		if m.controller.Selected() != nil {
			m.controller.SetCollectionFilter(nil)
		}
	case key.Matches(msg, m.keys.Activate):
		m.activateTreeNode()
	default:
		switch msg.String() {
		case "g", "home":
			m.tree.JumpToTop()
		case "G", "end":
			m.tree.JumpToBottom()
		}
	}
}

// activateTreeNode narrows the listing to the node under the cursor.
// Activating the node that already filters the listing removes the filter.
func (m *Model) activateTreeNode() {
	col := m.tree.SelectedCollection()
	if col == nil {
		return
	}
	if cur := m.controller.Selected(); cur != nil && cur.ID == col.ID {
		m.controller.SetCollectionFilter(nil)
		return
	}
	m.controller.SetCollectionFilter(col)
}

func (m *Model) handleListingKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Activate):
		rec, ok := m.listing.Selected()
		if !ok {
			return nil
		}
		return DetailCmd(m.ctx, m.gateway, rec.ID)
	case key.Matches(msg, m.keys.Copy):
		if rec, ok := m.listing.Selected(); ok {
			m.copyName(rec)
		}
		return nil
	case key.Matches(msg, m.keys.Back):
		m.focus = focusTree
		m.listing.Focus(false)
		return nil
	}
	return m.listing.Update(msg)
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back), msg.String() == "backspace":
		m.closeDetail()
		return nil
	case key.Matches(msg, m.keys.Copy):
		if m.detailRecord != nil {
			m.copyName(*m.detailRecord)
		}
		return nil
	}
	var cmd tea.Cmd
	m.detailVP, cmd = m.detailVP.Update(msg)
	return cmd
}

func (m *Model) closeDetail() {
	m.detailRecord = nil
	m.focus = m.prevFocus
	if m.focus == focusDetail {
		m.focus = focusListing
	}
	m.listing.Focus(m.focus == focusListing)
}

func (m *Model) copyName(rec model.RecordSummary) {
	if err := detail.CopyName(rec); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s", rec.ScientificName), false)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	in := m.searches[m.controller.ViewMode()]
	switch msg.String() {
	case "esc", "tab":
		m.blurInputs()
		return *m, nil
	case "enter":
		// commit without waiting for the quiet period
		m.searchDebounce.Cancel()
		m.controller.SetFreeText(in.Value())
		m.blurInputs()
		return *m, nil
	}

	before := in.Value()
	updated, cmd := in.Update(msg)
	*in = updated
	if v := in.Value(); v != before {
		m.mirror.Input(int(m.controller.ViewMode()), v)
		return *m, tea.Batch(cmd, m.searchDebounce.Trigger(v))
	}
	return *m, cmd
}

func (m *Model) handleTreeSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	in := m.treeSearch
	switch msg.String() {
	case "esc", "tab", "enter":
		if msg.String() == "enter" {
			m.treeDebounce.Cancel()
			m.tree.ApplyFilter(in.Value())
		}
		m.blurInputs()
		return *m, nil
	}

	before := in.Value()
	updated, cmd := in.Update(msg)
	*in = updated
	if v := in.Value(); v != before {
		return *m, tea.Batch(cmd, m.treeDebounce.Trigger(v))
	}
	return *m, cmd
}

func (m *Model) focusInput(f focus) tea.Cmd {
	if m.focus != focusSearch && m.focus != focusTreeSearch {
		m.prevFocus = m.focus
	}
	m.blurAll()
	m.focus = f
	if f == focusTreeSearch {
		return m.treeSearch.Focus()
	}
	return m.searches[m.controller.ViewMode()].Focus()
}

func (m *Model) blurAll() {
	for _, in := range m.searches {
		in.Blur()
	}
	m.treeSearch.Blur()
	m.listing.Focus(false)
}

func (m *Model) blurInputs() {
	m.blurAll()
	m.focus = m.prevFocus
	if m.focus == focusSearch || m.focus == focusTreeSearch {
		m.focus = focusTree
	}
	if m.focus == focusDetail && m.detailRecord == nil {
		m.focus = focusListing
	}
	m.listing.Focus(m.focus == focusListing)
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case focusTree:
		m.focus = focusListing
	default:
		m.focus = focusTree
	}
	m.listing.Focus(m.focus == focusListing)
}

func (m *Model) toggleViewMode() {
	mode := viewstate.ViewGallery
	if m.controller.ViewMode() == viewstate.ViewGallery {
		mode = viewstate.ViewTable
	}
	m.controller.SetViewMode(mode)
	m.listing.SetMode(mode)
	m.listing.Focus(m.focus == focusListing)
}

func (m *Model) toggleSort(field string) {
	m.controller.SetSort(m.controller.State().Sort.Toggled(field))
}

func (m *Model) retry() tea.Cmd {
	var cmds []tea.Cmd
	if m.tree.Err() != nil {
		cmds = append(cmds, LoadTreeCmd(m.ctx, m.gateway.Source()))
	}
	if m.gateway.Err() != nil {
		m.controller.Refresh()
	}
	return tea.Batch(cmds...)
}

// layout splits the screen into the tree pane and the listing pane.
func (m Model) layout() (treeW, rightW, bodyH int) {
	ratio := m.cfg.UI.TreeRatio
	if ratio <= 0 {
		ratio = 0.35
	}
	treeW = max(int(float64(m.width)*ratio), minTreeWidth)
	rightW = max(m.width-treeW, 20)
	bodyH = max(m.height-2, 6)
	return treeW, rightW, bodyH
}

// resize applies cheap size changes immediately. The listing widget and
// the detail renderer wait for the debounced relayout.
func (m *Model) resize() {
	treeW, rightW, bodyH := m.layout()
	m.tree.SetSize(treeW-2, bodyH-3)
	m.listing.SetSize(rightW-2, bodyH-4)
	m.treeSearch.Width = treeW - 6
	for _, in := range m.searches {
		in.Width = rightW - 6
	}
	m.detailVP.Width = rightW - 2
	m.detailVP.Height = bodyH - 3
}

func (m *Model) relayout() {
	_, rightW, bodyH := m.layout()
	m.listing.ForceRelayout(rightW-2, bodyH-4)
	m.listing.Focus(m.focus == focusListing)
	if m.presenter != nil {
		if err := m.presenter.SetWidth(rightW - 4); err != nil {
			m.log.WithError(err).Warn("resizing detail renderer")
		}
	}
	if m.detailRecord != nil {
		m.renderDetail()
	}
}

func (m *Model) renderDetail() {
	if m.detailRecord == nil {
		return
	}
	content := detail.Markdown(*m.detailRecord)
	if m.presenter != nil {
		out, err := m.presenter.Render(*m.detailRecord)
		if err != nil {
			m.log.WithError(err).Warn("rendering detail")
		} else {
			content = out
		}
	}
	m.detailVP.SetContent(content)
	m.detailVP.GotoTop()
}
