// Copyright 2026 The Taskscope Authors
// SPDX-License-Identifier: Apache-2.0

package scopeui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the taskscope TUI.
type KeyMap struct {
	// List navigation.
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Sort column selection (list screens only).
	SortLeft  key.Binding
	SortRight key.Binding
	SortFlip  key.Binding

	// Screen switching.
	ShowTasks     key.Binding
	ShowResources key.Binding
	Activate      key.Binding
	Back          key.Binding

	// Freeze the display on the current snapshot.
	Pause key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	SortLeft: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "sort column left"),
	),
	SortRight: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "sort column right"),
	),
	SortFlip: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "invert sort"),
	),
	ShowTasks: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "tasks"),
	),
	ShowResources: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "resources"),
	),
	Activate: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "details"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("Esc", "back"),
	),
	Pause: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("Space", "pause"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ASCIIKeyMap returns DefaultKeyMap with the arrow glyphs in the help
// text replaced by ASCII spellings, for --ascii-only terminals.
func ASCIIKeyMap() KeyMap {
	keys := DefaultKeyMap
	keys.Up.SetHelp("k/up", "up")
	keys.Down.SetHelp("j/down", "down")
	keys.SortLeft.SetHelp("h/left", "sort column left")
	keys.SortRight.SetHelp("l/right", "sort column right")
	return keys
}
