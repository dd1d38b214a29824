package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Allocator
	Allocate key.Binding
	Free     key.Binding
	FreeAll  key.Binding
	Verify   key.Binding
	Copy     key.Binding
	Zero     key.Binding
	Help     key.Binding
	Esc      key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous order"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next order"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("home/g", "order 0"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("end/G", "last order"),
		),
		Allocate: key.NewBinding(
			key.WithKeys("a", "enter"),
			key.WithHelp("a", "allocate a block of the selected order"),
		),
		Free: key.NewBinding(
			key.WithKeys("f", "backspace"),
			key.WithHelp("f", "free the most recent allocation"),
		),
		FreeAll: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "free every allocation"),
		),
		Verify: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "verify allocator invariants"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y", "c"),
			key.WithHelp("y", "copy free lists to clipboard"),
		),
		Zero: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "toggle zeroed allocations"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// helpSections groups bindings for the help overlay.
func (k KeyMap) helpSections() []helpSection {
	return []helpSection{
		{Title: "Navigation", Bindings: []key.Binding{k.Up, k.Down, k.Home, k.End}},
		{Title: "Allocator", Bindings: []key.Binding{k.Allocate, k.Free, k.FreeAll, k.Zero, k.Verify}},
		{Title: "Other", Bindings: []key.Binding{k.Copy, k.Help, k.Quit}},
	}
}

type helpSection struct {
	Title    string
	Bindings []key.Binding
}
