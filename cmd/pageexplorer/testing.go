package main

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

// TestHelper provides utilities for testing TUI components
type TestHelper struct {
	model Model
}

// NewTestHelper creates a test helper over a fully free allocator
func NewTestHelper(pages uint64, lastOrder int) *TestHelper {
	return newTestHelper(pagealloc.Config{Pages: pages, LastOrder: lastOrder})
}

// NewBackedTestHelper is NewTestHelper with memory behind every page
func NewBackedTestHelper(pages uint64, lastOrder int) *TestHelper {
	return newTestHelper(pagealloc.Config{Pages: pages, LastOrder: lastOrder, Backed: true})
}

func newTestHelper(cfg pagealloc.Config) *TestHelper {
	pages := cfg.Pages
	ctx, err := pagealloc.New(cfg)
	if err != nil {
		panic(err)
	}
	ctx.InsertPages(0, pages)
	return &TestHelper{
		model: NewModel(ctx, "test"),
	}
}

// SendKey simulates a special key press
func (h *TestHelper) SendKey(keyType tea.KeyType) tea.Cmd {
	msg := tea.KeyMsg{Type: keyType}
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

// SendKeyRune simulates a character key press
func (h *TestHelper) SendKeyRune(r rune) tea.Cmd {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	return cmd
}

// SendWindowSize simulates a window resize
func (h *TestHelper) SendWindowSize(width, height int) *TestHelper {
	msg := tea.WindowSizeMsg{Width: width, Height: height}
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// Send delivers an arbitrary message
func (h *TestHelper) Send(msg tea.Msg) *TestHelper {
	updated, _ := h.model.Update(msg)
	h.model = updated.(Model)
	return h
}

// GetModel returns the current model
func (h *TestHelper) GetModel() Model {
	return h.model
}

// GetView returns the rendered view
func (h *TestHelper) GetView() string {
	return h.model.View()
}
