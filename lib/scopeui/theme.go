// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/taskscope/taskscope/lib/wire"
)

// Color palettes selectable with --palette. ANSI8 restricts every
// style to the 8 base colors for terminals without 256-color support.
const (
	PaletteANSI256 = "ansi256"
	PaletteANSI8   = "ansi8"
)

// Color categories that --no-color can disable individually. "all"
// strips color entirely while keeping bold/reverse attributes off too.
const (
	ColorsAll       = "all"
	ColorsState     = "state"
	ColorsDuration  = "duration"
	ColorsWarning   = "warning"
	ColorsSelection = "selection"
	ColorsChrome    = "chrome"
)

// Glyphs are the non-ASCII characters the renderer uses, with ASCII
// fallbacks selected by --ascii-only.
type Glyphs struct {
	Selection string // Marker on the selected row.
	SortAsc   string // Sort direction indicator, ascending.
	SortDesc  string // Sort direction indicator, descending.
	Warning   string // Prefix for warning lines.
	Ellipsis  string // Truncation marker.
}

var unicodeGlyphs = Glyphs{
	Selection: "▶ ",
	SortAsc:   "▲",
	SortDesc:  "▼",
	Warning:   "⚠ ",
	Ellipsis:  "…",
}

var asciiGlyphs = Glyphs{
	Selection: "> ",
	SortAsc:   "^",
	SortDesc:  "v",
	Warning:   "! ",
	Ellipsis:  "~",
}

// Theme holds the styles and glyphs for the terminal UI. Styles are
// grouped into categories that --no-color disables independently, so
// a user can keep state colors while muting chrome, or run fully
// monochrome.
type Theme struct {
	Glyphs Glyphs

	// ASCII is true under --ascii-only; duration formatting also
	// consults it to avoid the µ sign.
	ASCII bool

	// Chrome.
	Header    lipgloss.Style
	SortedBy  lipgloss.Style
	Faint     lipgloss.Style
	StatusBar lipgloss.Style
	HelpText  lipgloss.Style

	// Selection.
	Selected lipgloss.Style

	// Entity state.
	StateRunning   lipgloss.Style
	StateIdle      lipgloss.Style
	StateCompleted lipgloss.Style

	// Durations in table cells.
	Duration lipgloss.Style

	// Warnings (self-wake heavy tasks, disconnected stream).
	Warning lipgloss.Style
}

// themeColors is one palette's worth of raw colors.
type themeColors struct {
	header    lipgloss.Color
	faint     lipgloss.Color
	statusBar lipgloss.Color
	help      lipgloss.Color

	selectedForeground lipgloss.Color
	selectedBackground lipgloss.Color

	running   lipgloss.Color
	idle      lipgloss.Color
	completed lipgloss.Color
	duration  lipgloss.Color
	warning   lipgloss.Color
}

var ansi256Colors = themeColors{
	header:    lipgloss.Color("255"),
	faint:     lipgloss.Color("245"),
	statusBar: lipgloss.Color("250"),
	help:      lipgloss.Color("241"),

	selectedForeground: lipgloss.Color("255"),
	selectedBackground: lipgloss.Color("236"),

	running:   lipgloss.Color("114"), // green
	idle:      lipgloss.Color("220"), // amber
	completed: lipgloss.Color("245"), // gray
	duration:  lipgloss.Color("75"),  // blue
	warning:   lipgloss.Color("196"), // bright red
}

var ansi8Colors = themeColors{
	header:    lipgloss.Color("7"),
	faint:     lipgloss.Color("7"),
	statusBar: lipgloss.Color("7"),
	help:      lipgloss.Color("7"),

	selectedForeground: lipgloss.Color("0"),
	selectedBackground: lipgloss.Color("7"),

	running:   lipgloss.Color("2"),
	idle:      lipgloss.Color("3"),
	completed: lipgloss.Color("7"),
	duration:  lipgloss.Color("4"),
	warning:   lipgloss.Color("1"),
}

// NewTheme builds a Theme for the given palette, glyph set, and
// disabled color categories. The palette also caps lipgloss's color
// profile so 256-color codes degrade cleanly on --palette=ansi8.
func NewTheme(palette string, asciiOnly bool, disabledColors []string) Theme {
	colors := ansi256Colors
	if palette == PaletteANSI8 {
		colors = ansi8Colors
		lipgloss.SetColorProfile(termenv.ANSI)
	}

	disabled := make(map[string]bool, len(disabledColors))
	for _, category := range disabledColors {
		disabled[category] = true
	}
	off := func(category string) bool { return disabled[ColorsAll] || disabled[category] }
	foreground := func(category string, color lipgloss.Color) lipgloss.Style {
		if off(category) {
			return lipgloss.NewStyle()
		}
		return lipgloss.NewStyle().Foreground(color)
	}

	theme := Theme{
		Glyphs: unicodeGlyphs,

		Header:    foreground(ColorsChrome, colors.header).Bold(!off(ColorsChrome)),
		SortedBy:  foreground(ColorsChrome, colors.header).Bold(!off(ColorsChrome)).Underline(!off(ColorsChrome)),
		Faint:     foreground(ColorsChrome, colors.faint),
		StatusBar: foreground(ColorsChrome, colors.statusBar),
		HelpText:  foreground(ColorsChrome, colors.help),

		StateRunning:   foreground(ColorsState, colors.running),
		StateIdle:      foreground(ColorsState, colors.idle),
		StateCompleted: foreground(ColorsState, colors.completed),

		Duration: foreground(ColorsDuration, colors.duration),
		Warning:  foreground(ColorsWarning, colors.warning).Bold(!off(ColorsWarning)),
	}

	if off(ColorsSelection) {
		// Keep the selected row findable without color.
		theme.Selected = lipgloss.NewStyle().Reverse(true)
	} else {
		theme.Selected = lipgloss.NewStyle().
			Foreground(colors.selectedForeground).
			Background(colors.selectedBackground)
	}

	if asciiOnly {
		theme.Glyphs = asciiGlyphs
		theme.ASCII = true
	}
	return theme
}

// StateStyle returns the style for an entity state string.
func (theme Theme) StateStyle(entityState string) lipgloss.Style {
	switch entityState {
	case wire.TaskRunning, wire.OpReady:
		return theme.StateRunning
	case wire.TaskIdle, wire.OpPending:
		return theme.StateIdle
	case wire.TaskCompleted:
		return theme.StateCompleted
	default:
		return theme.Faint
	}
}
