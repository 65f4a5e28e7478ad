package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/planeissues/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#3B82F6"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#16A34A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#CA8A04"}
	ColorAmber  = lipgloss.AdaptiveColor{Dark: "#FBBF24", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#DC2626"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#EA580C"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#6B7280"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// TitleStyle is used for card titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// FieldNameStyle labels a field inside a card.
var FieldNameStyle = lipgloss.NewStyle().
	Bold(true)

// MutedStyle is used for footers, links and secondary text.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// QuoteStyle renders a description block.
var QuoteStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorGray)

// CardStyle returns the bordered panel used for every rendered message,
// with its border tinted by accent.
func CardStyle(accent lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent)
}

// PriorityColor returns the accent color for an issue priority.
func PriorityColor(priority model.Priority) lipgloss.TerminalColor {
	switch model.Priority(strings.ToLower(string(priority))) {
	case model.PriorityUrgent:
		return ColorRed
	case model.PriorityHigh:
		return ColorOrange
	case model.PriorityMedium:
		return ColorYellow
	case model.PriorityLow:
		return ColorGreen
	default:
		return ColorGray
	}
}

// PriorityStyle returns a color-coded style for the given priority.
func PriorityStyle(priority model.Priority) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(PriorityColor(priority))
}

// IssueColor prefers the state's own color and falls back to the priority's.
func IssueColor(issue model.EnrichedIssue) lipgloss.TerminalColor {
	if issue.StateDetail.Color != "" {
		return lipgloss.Color(issue.StateDetail.Color)
	}
	return PriorityColor(issue.Priority)
}

// LabelStyle renders a label chip in the label's color.
func LabelStyle(label model.Label) lipgloss.Style {
	var color lipgloss.TerminalColor = ColorGray
	if label.Color != "" {
		color = lipgloss.Color(label.Color)
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Padding(0, 1).
		Border(lipgloss.NormalBorder(), false, true).
		BorderForeground(color)
}
