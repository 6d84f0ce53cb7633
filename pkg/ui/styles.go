package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxa/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}

	// Status badge colors
	ColorStatusCommon   = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorStatusCommonBg = lipgloss.AdaptiveColor{Light: "#D4EDDA", Dark: "#1A3D2A"}
	ColorStatusRare     = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorStatusRareBg   = lipgloss.AdaptiveColor{Light: "#FFE8CC", Dark: "#3D2A1A"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// RenderStatusBadge returns the styled common/rare badge for a status.
// Records without a status get a blank badge of the same width.
func RenderStatusBadge(s model.Status) string {
	if s == model.StatusUnknown {
		return "      "
	}
	fg, bg, label := ColorStatusRare, ColorStatusRareBg, "RARE"
	if s.Badge() == "common" {
		fg, bg, label = ColorStatusCommon, ColorStatusCommonBg, "COMMON"
	}
	return lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Width(6).
		Render(label)
}
