// Package ui provides the visual styling for the mayachat terminal widget.
// Uses the Vivid Realty brand palette with light/dark mode support.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette based on the Vivid Realty brand (purple primary).
var (
	// Light Mode Colors
	LightBackground = lipgloss.Color("#faf9fb")
	LightForeground = lipgloss.Color("#1f2937")
	LightPrimary    = lipgloss.Color("#9333ea") // Purple 600
	LightAccent     = lipgloss.Color("#7c3aed")
	LightSecondary  = lipgloss.Color("#ede9fe") // Purple 100
	LightMuted      = lipgloss.Color("#9ca3af")
	LightBorder     = lipgloss.Color("#e5e7eb")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#17121f")
	DarkForeground = lipgloss.Color("#f2f2f2")
	DarkPrimary    = lipgloss.Color("#c084fc") // Purple 400
	DarkAccent     = lipgloss.Color("#a78bfa")
	DarkSecondary  = lipgloss.Color("#2a2138")
	DarkMuted      = lipgloss.Color("#6b7280")
	DarkBorder     = lipgloss.Color("#3f3351")
	DarkCard       = lipgloss.Color("#211a2e")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#22c55e")
	Warning     = lipgloss.Color("#f59e0b")
	Info        = lipgloss.Color("#3b82f6")
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// ThemeByName resolves a configured theme name, auto-detecting when empty.
func ThemeByName(name string) Theme {
	switch name {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	default:
		return DetectTheme()
	}
}

// DetectTheme guesses the terminal background from COLORFGBG and falls back
// to dark.
func DetectTheme() Theme {
	colorTerm := os.Getenv("COLORFGBG")
	if colorTerm != "" {
		// Format is usually "foreground;background".
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if bgIdx >= 7 && bgIdx <= 15 && bgIdx != 8 {
					return LightTheme()
				}
			}
		}
	}
	return DarkTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Chat
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style

	// Widgets
	WidgetPane     lipgloss.Style
	Option         lipgloss.Style
	OptionSelected lipgloss.Style
	ChipOn         lipgloss.Style
	ChipOff        lipgloss.Style
	FieldLabel     lipgloss.Style
	FieldError     lipgloss.Style
	Card           lipgloss.Style
	CardSelected   lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style

	Spinner lipgloss.Style
	Prompt  lipgloss.Style
}

// NewStyles creates a Styles instance for the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Content: lipgloss.NewStyle().
			Padding(0, 1),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		UserLabel: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginTop(1),

		AssistantLabel: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			MarginTop(1),

		UserBubble: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			PaddingLeft(2),

		WidgetPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		Option: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Padding(0, 1),

		OptionSelected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(theme.Primary).
			Padding(0, 1).
			Bold(true),

		ChipOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(theme.Accent).
			Padding(0, 1),

		ChipOff: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		FieldLabel: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		FieldError: lipgloss.NewStyle().
			Foreground(Destructive),

		Card: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		CardSelected: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(theme.Primary).
			Padding(0, 1),

		Success: lipgloss.NewStyle().
			Foreground(Success),

		Error: lipgloss.NewStyle().
			Foreground(Destructive),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Primary),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}
