// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultview

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the result view.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Filter editing.
	FilterActivate key.Binding // Start editing the text filters.
	FilterNext     key.Binding // Move to the next text filter field.
	FilterClear    key.Binding // Clear the field, or leave edit mode when empty.

	// Type toggles.
	TogglePhysical   key.Binding
	ToggleTemporary  key.Binding
	ToggleAttachment key.Binding
	ToggleOther      key.Binding

	// Actions on the search or the selected row.
	Refresh key.Binding
	Track   key.Binding
	Block   key.Binding
	Export  key.Binding

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
	FilterActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterNext: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next field"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear"),
	),
	TogglePhysical: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "physical"),
	),
	ToggleTemporary: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "temporary"),
	),
	ToggleAttachment: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "attachments"),
	),
	ToggleOther: key.NewBinding(
		key.WithKeys("4"),
		key.WithHelp("4", "other"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Track: key.NewBinding(
		key.WithKeys("t", "enter"),
		key.WithHelp("t", "track"),
	),
	Block: key.NewBinding(
		key.WithKeys("b"),
		key.WithHelp("b", "block"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpBindings are shown in the footer, in order.
func (keys KeyMap) helpBindings() []key.Binding {
	return []key.Binding{
		keys.FilterActivate, keys.TogglePhysical, keys.ToggleTemporary,
		keys.ToggleAttachment, keys.ToggleOther, keys.Refresh,
		keys.Track, keys.Block, keys.Export, keys.Quit,
	}
}
