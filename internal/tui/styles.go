package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/starvectl/internal/config"
	"github.com/muurk/starvectl/internal/version"
)

// Application branding constants
const (
	AppName   = "STARVECTL DHCP EXHAUSTION LAB"
	GitHubURL = "github.com/muurk/starvectl"
)

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 72 // Minimum supported terminal width
	MinTableHeight   = 5  // Minimum lease table height
)

// Palette is one colour scheme
type Palette struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Text    lipgloss.Color
	Subtle  lipgloss.Color
	Border  lipgloss.Color
}

// LightPalette is used on light terminals
var LightPalette = Palette{
	Primary: lipgloss.Color("#5A3FC0"),
	Success: lipgloss.Color("#1E8E3E"),
	Warning: lipgloss.Color("#B26A00"),
	Error:   lipgloss.Color("#C62828"),
	Text:    lipgloss.Color("#1A1A1A"),
	Subtle:  lipgloss.Color("#757575"),
	Border:  lipgloss.Color("#5A3FC0"),
}

// DarkPalette is used on dark terminals
var DarkPalette = Palette{
	Primary: lipgloss.Color("#7D56F4"),
	Success: lipgloss.Color("#43BF6D"),
	Warning: lipgloss.Color("#FFA500"),
	Error:   lipgloss.Color("#FF5555"),
	Text:    lipgloss.Color("#FFFFFF"),
	Subtle:  lipgloss.Color("#626262"),
	Border:  lipgloss.Color("#7D56F4"),
}

// Styles holds every style derived from a palette
type Styles struct {
	Name    string
	Palette Palette

	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Locked    lipgloss.Style
	Spinner   lipgloss.Style
	Panel     lipgloss.Style
	Entering  lipgloss.Style
	Exiting   lipgloss.Style
	Releasing lipgloss.Style
	Counter   lipgloss.Style
	Button    lipgloss.Style
	Disabled  lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Info      lipgloss.Style
	Modal     lipgloss.Style
	Selected  lipgloss.Style
}

// NewStyles builds the styles for a theme name ("light" or "dark").
// Unknown names fall back to light.
func NewStyles(theme string) Styles {
	p := LightPalette
	if theme == config.ThemeDark {
		p = DarkPalette
	} else {
		theme = config.ThemeLight
	}

	return Styles{
		Name:    theme,
		Palette: p,

		Title: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(p.Subtle).
			Italic(true),

		Label: lipgloss.NewStyle().
			Foreground(p.Subtle).
			Width(14),

		Value: lipgloss.NewStyle().
			Foreground(p.Text).
			Bold(true),

		Locked: lipgloss.NewStyle().
			Foreground(p.Subtle).
			Bold(true),

		Spinner: lipgloss.NewStyle().
			Foreground(p.Primary),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),

		Entering: lipgloss.NewStyle().
			Foreground(p.Success),

		Exiting: lipgloss.NewStyle().
			Foreground(p.Subtle).
			Strikethrough(true),

		Releasing: lipgloss.NewStyle().
			Foreground(p.Warning),

		Counter: lipgloss.NewStyle().
			Foreground(p.Primary).
			Bold(true),

		Button: lipgloss.NewStyle().
			Foreground(p.Text).
			Background(p.Primary).
			Padding(0, 1),

		Disabled: lipgloss.NewStyle().
			Foreground(p.Subtle).
			Padding(0, 1),

		Success: lipgloss.NewStyle().
			Foreground(p.Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(p.Error).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(p.Subtle),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(p.Warning).
			Padding(1, 2),

		Selected: lipgloss.NewStyle().
			Foreground(p.Success).
			Bold(true),
	}
}

// BuildHeaderContent creates header content with app name and GitHub URL
func (s Styles) BuildHeaderContent() string {
	left := lipgloss.NewStyle().
		Foreground(s.Palette.Text).
		Bold(true).
		Render(AppName + " " + version.Short())

	right := lipgloss.NewStyle().
		Foreground(s.Palette.Subtle).
		Render(GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
}

// RenderApplicationContainer wraps a screen with the application header,
// a context-sensitive footer and an outer border filling the terminal
func (s Styles) RenderApplicationContainer(content, footerText string, width, height int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if height < 10 {
		height = 10
	}

	header := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(s.Palette.Border).
		Width(width-4).
		Padding(0, 1).
		Render(s.BuildHeaderContent())

	footer := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(s.Palette.Border).
		Width(width-4).
		Padding(0, 1).
		Render(lipgloss.NewStyle().Foreground(s.Palette.Subtle).Render(footerText))

	body := lipgloss.NewStyle().
		Width(width - 4).
		Render(content)

	inner := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(s.Palette.Border).
		Width(width - 2).
		Height(height - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, bordered)
}

// RenderModal centres modal content on screen
func (s Styles) RenderModal(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, s.Modal.Render(content))
}
