package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxa/pkg/model"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

const (
	galleryCardWidth  = 30
	galleryCardHeight = 6
)

// ListingView renders one page of records as a table or a card gallery.
// Each page gets a freshly built widget: Render destroys the previous one
// first, so no rows or cursor survive from an older result set.
type ListingView struct {
	theme  Theme
	mode   viewstate.ViewMode
	width  int
	height int

	page   model.ResultPage
	table  *table.Model
	cursor int
	err    error
	live   bool

	// builds counts widget constructions.
	builds int
}

// NewListingView returns an empty listing pane.
func NewListingView(theme Theme, mode viewstate.ViewMode) *ListingView {
	return &ListingView{theme: theme, mode: mode}
}

// Destroy tears down the current widget.
func (v *ListingView) Destroy() {
	v.table = nil
	v.page = model.ResultPage{}
	v.cursor = 0
	v.live = false
}

// Render replaces the widget with one built for page.
func (v *ListingView) Render(page model.ResultPage) {
	v.Destroy()
	v.page = page
	v.err = nil
	v.build()
}

// ShowError marks the listing as failed. Whatever was displayed stays on
// screen, cursor included, under an error banner.
func (v *ListingView) ShowError(err error) {
	v.err = err
}

// Err returns the error being displayed.
func (v *ListingView) Err() error {
	return v.err
}

// ForceRelayout rebuilds the widget for a new size without losing the
// cursor.
func (v *ListingView) ForceRelayout(width, height int) {
	v.width = width
	v.height = height
	if !v.live {
		return
	}
	cursor := v.cursor
	if v.table != nil {
		cursor = v.table.Cursor()
	}
	v.build()
	v.setCursor(cursor)
}

// SetSize records the pane size without rebuilding.
func (v *ListingView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// SetMode switches between table and gallery and rebuilds the widget.
func (v *ListingView) SetMode(mode viewstate.ViewMode) {
	if v.mode == mode {
		return
	}
	cursor := v.Cursor()
	v.mode = mode
	if v.live {
		v.build()
		v.setCursor(cursor)
	}
}

// Mode returns the presentation mode.
func (v *ListingView) Mode() viewstate.ViewMode {
	return v.mode
}

// Live reports whether a widget is currently built.
func (v *ListingView) Live() bool {
	return v.live
}

// Builds returns how many widgets have been constructed.
func (v *ListingView) Builds() int {
	return v.builds
}

// Page returns the page being displayed.
func (v *ListingView) Page() model.ResultPage {
	return v.page
}

func (v *ListingView) build() {
	v.builds++
	v.live = true
	v.table = nil
	if v.mode == viewstate.ViewTable {
		t := v.buildTable()
		v.table = &t
	}
	v.cursor = 0
}

func (v *ListingView) columns() []table.Column {
	width := max(v.width-4, 40)
	name := width * 35 / 100
	common := width * 20 / 100
	status := 8
	other := max(width-name-common-status, 8)
	return []table.Column{
		{Title: "Status", Width: status},
		{Title: "Scientific name", Width: name},
		{Title: "Common name", Width: common},
		{Title: "Other names", Width: other},
	}
}

func (v *ListingView) buildTable() table.Model {
	cols := v.columns()
	rows := make([]table.Row, 0, len(v.page.Items))
	for _, it := range v.page.Items {
		badge := it.Status.Badge()
		if it.Status == model.StatusUnknown {
			badge = ""
		}
		rows = append(rows, table.Row{
			badge,
			truncate(it.ScientificName, cols[1].Width),
			truncate(it.CommonName, cols[2].Width),
			truncate(it.OtherNames, cols[3].Width),
		})
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(v.theme.Border).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(v.theme.Primary).
		Bold(false)

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(v.height-2, 3)),
		table.WithWidth(max(v.width, 40)),
	)
	t.SetStyles(styles)
	return t
}

// Focus enables keyboard navigation of the table.
func (v *ListingView) Focus(on bool) {
	if v.table == nil {
		return
	}
	if on {
		v.table.Focus()
	} else {
		v.table.Blur()
	}
}

// Cursor returns the index of the highlighted record on the page.
func (v *ListingView) Cursor() int {
	if v.table != nil {
		return v.table.Cursor()
	}
	return v.cursor
}

func (v *ListingView) setCursor(i int) {
	i = clamp(i, 0, max(len(v.page.Items)-1, 0))
	if v.table != nil {
		v.table.SetCursor(i)
	}
	v.cursor = i
}

// Selected returns the highlighted record.
func (v *ListingView) Selected() (model.RecordSummary, bool) {
	if !v.live || len(v.page.Items) == 0 {
		return model.RecordSummary{}, false
	}
	i := v.Cursor()
	if i < 0 || i >= len(v.page.Items) {
		return model.RecordSummary{}, false
	}
	return v.page.Items[i], true
}

// Update forwards navigation keys to the active widget.
func (v *ListingView) Update(msg tea.KeyMsg) tea.Cmd {
	if !v.live {
		return nil
	}
	if v.table != nil {
		t, cmd := v.table.Update(msg)
		v.table = &t
		return cmd
	}
	cols := v.galleryColumns()
	switch msg.String() {
	case "left", "h":
		v.setCursor(v.cursor - 1)
	case "right", "l":
		v.setCursor(v.cursor + 1)
	case "up", "k":
		v.setCursor(v.cursor - cols)
	case "down", "j":
		v.setCursor(v.cursor + cols)
	case "home", "g":
		v.setCursor(0)
	case "end", "G":
		v.setCursor(len(v.page.Items) - 1)
	}
	return nil
}

// ResultsInfo is the "Showing N species" line.
func (v *ListingView) ResultsInfo() string {
	return fmt.Sprintf("Showing %d species", v.page.Total)
}

// View renders the pane body.
func (v *ListingView) View() string {
	if !v.live {
		if v.err != nil {
			return v.renderError()
		}
		return v.theme.MutedText.Render("Loading records…")
	}
	body := v.renderBody()
	if v.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left, v.renderErrorBanner(), body)
	}
	return body
}

func (v *ListingView) renderBody() string {
	if len(v.page.Items) == 0 {
		return v.theme.MutedText.Render("No species match the current filters.")
	}
	if v.table != nil {
		return v.table.View()
	}
	return v.renderGallery()
}

// renderErrorBanner sits above the retained rows after a failed refresh.
func (v *ListingView) renderErrorBanner() string {
	const label = "Failed to load records:"
	detail := truncate(v.err.Error(), max(v.width-len(label)-1, 10))
	return v.theme.ErrorText.Render(label) + " " + v.theme.MutedText.Render(detail) + "\n" +
		v.theme.MutedText.Render("Press r to retry.")
}

func (v *ListingView) renderError() string {
	var sb strings.Builder
	sb.WriteString(v.theme.ErrorText.Render("Failed to load records"))
	sb.WriteString("\n\n")
	sb.WriteString(v.theme.MutedText.Render(truncate(v.err.Error(), max(v.width, 20)*3)))
	sb.WriteString("\n\n")
	sb.WriteString(v.theme.MutedText.Render("Press r to retry."))
	return sb.String()
}

func (v *ListingView) galleryColumns() int {
	return max(v.width/(galleryCardWidth+2), 1)
}

func (v *ListingView) renderGallery() string {
	cols := v.galleryColumns()
	rowsFit := max(v.height/(galleryCardHeight+2), 1)

	// Scroll by whole card rows so the cursor stays on screen.
	firstRow := 0
	if cur := v.cursor / cols; cur >= rowsFit {
		firstRow = cur - rowsFit + 1
	}

	var lines []string
	for r := firstRow; r < firstRow+rowsFit; r++ {
		var cards []string
		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= len(v.page.Items) {
				break
			}
			cards = append(cards, v.renderCard(v.page.Items[i], i == v.cursor))
		}
		if len(cards) == 0 {
			break
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (v *ListingView) renderCard(rec model.RecordSummary, selected bool) string {
	inner := galleryCardWidth - 2
	var body strings.Builder
	body.WriteString(RenderStatusBadge(rec.Status))
	body.WriteString("\n")
	body.WriteString(v.theme.Renderer.NewStyle().Italic(true).Bold(true).Render(truncate(rec.ScientificName, inner)))
	body.WriteString("\n")
	body.WriteString(truncate(rec.CommonName, inner))
	body.WriteString("\n")
	body.WriteString(v.theme.MutedText.Render(truncate(rec.OtherNames, inner)))

	style := PanelStyle
	if selected {
		style = FocusedPanelStyle
	}
	return style.
		Width(inner).
		Height(galleryCardHeight - 2).
		Render(body.String())
}
