package tui

import "github.com/charmbracelet/lipgloss"

// Color constants matching the ash-and-ember theme
const (
	ColorBg     = "#14110f"
	ColorCard   = "#1e1a17"
	ColorBorder = "#3d342d"
	ColorEmber  = "#d4603a"
	ColorGold   = "#c9a24d"
	ColorGreen  = "#6ba85a"
	ColorRed    = "#e05a4f"
	ColorGray   = "#8b8b8b"
	ColorText   = "#d8cfc4"
	ColorBright = "#f4ede4"
)

// Styles holds all lipgloss styles for the TUI
type Styles struct {
	// Text styles
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Help     lipgloss.Style
	Label    lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style

	// Banners
	ErrorBanner  lipgloss.Style
	StatusBanner lipgloss.Style

	// Badges
	Badge       lipgloss.Style
	DangerBadge lipgloss.Style

	// Card and sections
	Card        lipgloss.Style
	Section     lipgloss.Style
	StatBar     lipgloss.Style
	StatBarRest lipgloss.Style
	RawText     lipgloss.Style

	// Gallery
	GalleryItem   lipgloss.Style
	GalleryActive lipgloss.Style

	// Footer
	Usage lipgloss.Style

	// Spinner
	Spinner lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)),

		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGold)).
			Italic(true),

		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGold)).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		ErrorBanner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBright)).
			Background(lipgloss.Color(ColorRed)).
			Padding(0, 1).
			Bold(true),

		StatusBanner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBg)).
			Background(lipgloss.Color(ColorGreen)).
			Padding(0, 1),

		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBright)).
			Background(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		DangerBadge: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBg)).
			Background(lipgloss.Color(ColorEmber)).
			Padding(0, 1).
			Bold(true),

		Card: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorEmber)).
			Padding(1, 2),

		Section: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorEmber)).
			Bold(true).
			MarginTop(1),

		StatBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorEmber)),

		StatBarRest: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBorder)),

		RawText: lipgloss.NewStyle().
			Background(lipgloss.Color(ColorCard)).
			Foreground(lipgloss.Color(ColorText)).
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorRed)),

		GalleryItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			PaddingLeft(2),

		GalleryActive: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorEmber)).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color(ColorEmber)).
			PaddingLeft(1),

		Usage: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)),

		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorEmber)),
	}
}

// ElementStyle returns a badge coloured with the element's colour.
func ElementStyle(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBg)).
		Background(lipgloss.Color(color)).
		Padding(0, 1).
		Bold(true)
}
