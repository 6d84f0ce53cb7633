package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxa/pkg/metrics"
	"github.com/vanderheijden86/taxa/pkg/viewstate"
)

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	treeW, rightW, bodyH := m.layout()

	treePane := m.renderTreePane(treeW-2)
	rightPane := m.renderRightPane(rightW-2)

	treeStyle, rightStyle := PanelStyle, PanelStyle
	switch m.focus {
	case focusTree, focusTreeSearch:
		treeStyle = FocusedPanelStyle
	default:
		rightStyle = FocusedPanelStyle
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		treeStyle.Width(treeW-2).Height(bodyH-2).MaxHeight(bodyH).Render(treePane),
		rightStyle.Width(rightW-2).Height(bodyH-2).MaxHeight(bodyH).Render(rightPane),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	left := m.theme.Header.Render("taxa")
	if m.sourceDesc != "" {
		left += " " + m.theme.MutedText.Render(truncate(m.sourceDesc, 40))
	}
	if ind := m.renderFilterIndicator(); ind != "" {
		left += "  " + ind
	}

	right := m.renderLoadState()
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

// renderFilterIndicator shows the collection currently narrowing the
// listing. There is at most one.
func (m Model) renderFilterIndicator() string {
	label := m.FilterLabel()
	if label == "" {
		return ""
	}
	chip := m.theme.Renderer.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Background(m.theme.Common).
		Padding(0, 1).
		Render("Filter: " + truncate(label, 40))
	return chip + m.theme.MutedText.Render(" (esc in tree or x to clear)")
}

func (m Model) renderLoadState() string {
	switch {
	case m.gateway.Slow():
		return m.theme.WarningText.Render(m.spinner.View() + " Request is taking too long…")
	case m.gateway.InFlight():
		return m.spinner.View() + m.theme.MutedText.Render(" Loading")
	}
	return ""
}

func (m Model) renderTreePane(width int) string {
	search := m.treeSearch.View()
	if m.focus != focusTreeSearch && m.treeSearch.Value() == "" {
		search = m.theme.MutedText.Render("f find taxon")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		truncateLines(search, width),
		m.tree.View(),
	)
}

func (m Model) renderRightPane(width int) string {
	if m.focus == focusDetail && m.detailRecord != nil {
		title := m.theme.PrimaryBold.Render(truncate(m.detailRecord.DisplayName(), width-12)) +
			m.theme.MutedText.Render("  esc back")
		return lipgloss.JoinVertical(lipgloss.Left, title, m.detailVP.View())
	}

	in := m.searches[m.controller.ViewMode()]
	search := in.View()
	if m.focus != focusSearch && in.Value() == "" {
		search = m.theme.MutedText.Render("/ search species")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		truncateLines(search, width),
		m.renderResultsInfo(width),
		m.listing.View(),
	)
}

func (m Model) renderResultsInfo(width int) string {
	q := m.controller.State()
	info := m.listing.ResultsInfo()
	if m.listing.Live() {
		info += fmt.Sprintf("  page %d/%d", q.Page+1, q.PageCount(m.listing.Page().Total))
	}
	if q.Sort != nil {
		info += fmt.Sprintf("  sort %s %s", q.Sort.Field, q.Sort.Direction)
	}
	mode := "table"
	if m.controller.ViewMode() == viewstate.ViewGallery {
		mode = "gallery"
	}
	info += "  [" + mode + "]"
	return m.theme.SecondaryText.Render(truncate(info, width))
}

func (m Model) renderFooter() string {
	if m.statusMsg != "" {
		style := m.theme.MutedText
		if m.statusIsError {
			style = m.theme.ErrorText
		}
		return style.Render(truncate(m.statusMsg, m.width))
	}
	if err := m.session.lastErr; err != nil {
		return m.theme.ErrorText.Render(truncate("Listing request failed: "+err.Error(), m.width))
	}
	return m.help.View(m.keys)
}

// truncateLines clips styled text to width cells without splitting escape
// sequences.
func truncateLines(s string, width int) string {
	return lipgloss.NewStyle().MaxWidth(max(width, 1)).Render(s)
}
