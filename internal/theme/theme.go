// Package theme holds the lipgloss styles used to render toasts on the
// daemon console.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/deskalert/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// ToastStyle wraps a toast body in a rounded box.
var ToastStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// TitleStyle is used for the toast headline.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// HintStyle is used for the action route and category footer.
var HintStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// VariantStyle returns the toast box style for a variant, with the border
// colored by variant.
func VariantStyle(v model.ToastVariant) lipgloss.Style {
	switch v {
	case model.ToastPayment:
		return ToastStyle.BorderForeground(ColorGreen)
	case model.ToastProject:
		return ToastStyle.BorderForeground(ColorBlue)
	default:
		return ToastStyle
	}
}

// PriorityStyle returns a color-coded label style for a priority tier.
func PriorityStyle(p model.Priority) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch p {
	case model.PriorityCritical:
		return base.Foreground(ColorRed)
	case model.PriorityHigh:
		return base.Foreground(ColorOrange)
	default:
		return base.Foreground(ColorGray)
	}
}
