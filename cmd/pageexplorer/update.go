package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/mem/buddy"
)

// clearStatusMsg clears the status line
type clearStatusMsg struct{}

// statusTimeout is how long status messages stay visible
const statusTimeout = 2 * time.Second

// copyToClipboard is replaced in tests
var copyToClipboard = clipboard.WriteAll

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Esc):
			m.showHelp = false
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < m.ctx.LastOrder() {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.selected = 0
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.selected = m.ctx.LastOrder()
		return m, nil

	case key.Matches(msg, m.keys.Allocate):
		return m.allocate()

	case key.Matches(msg, m.keys.Free):
		return m.freeLast()

	case key.Matches(msg, m.keys.FreeAll):
		return m.freeAll()

	case key.Matches(msg, m.keys.Zero):
		if !m.ctx.Backed() {
			return m.setStatus("Context is not backed; start with --backed to zero allocations")
		}
		m.zero = !m.zero
		if m.zero {
			return m.setStatus("Allocations are zeroed")
		}
		return m.setStatus("Allocations are not zeroed")

	case key.Matches(msg, m.keys.Verify):
		if err := m.ctx.Verify(); err != nil {
			logger.Warn("verify failed", "error", err)
			return m.setStatus(fmt.Sprintf("Verify failed: %v", err))
		}
		return m.setStatus("Invariants hold")

	case key.Matches(msg, m.keys.Copy):
		var sb strings.Builder
		if err := m.ctx.Dump(&sb); err != nil {
			return m.setStatus(fmt.Sprintf("Dump failed: %v", err))
		}
		if err := copyToClipboard(sb.String()); err != nil {
			logger.Warn("clipboard write failed", "error", err)
			return m.setStatus("Failed to copy to clipboard")
		}
		return m.setStatus("Free lists copied to clipboard")
	}

	return m, nil
}

func (m Model) allocate() (tea.Model, tea.Cmd) {
	blk, err := m.ctx.AllocatePages(m.selected, m.allocFlags())
	if errors.Is(err, buddy.ErrOutOfMemory) {
		return m.setStatus(fmt.Sprintf("Out of memory at order %d", m.selected))
	}
	if err != nil {
		m.err = err
		return m, nil
	}

	m.allocs = append(m.allocs, blk)
	logger.Debug("allocated", "pfn", uint64(blk.PFN), "order", blk.Order)
	return m.setStatus(fmt.Sprintf("Allocated order %d at pfn %#x", blk.Order, uint64(blk.PFN)))
}

func (m Model) freeLast() (tea.Model, tea.Cmd) {
	if len(m.allocs) == 0 {
		return m.setStatus("Nothing to free")
	}

	last := len(m.allocs) - 1
	blk := m.allocs[last]
	m.allocs = m.allocs[:last:last]
	if err := m.guard(func() { m.ctx.FreePages(blk) }); err != nil {
		m.err = err
		return m, nil
	}
	return m.setStatus(fmt.Sprintf("Freed order %d at pfn %#x", blk.Order, uint64(blk.PFN)))
}

func (m Model) freeAll() (tea.Model, tea.Cmd) {
	n := len(m.allocs)
	for len(m.allocs) > 0 {
		last := len(m.allocs) - 1
		blk := m.allocs[last]
		m.allocs = m.allocs[:last:last]
		if err := m.guard(func() { m.ctx.FreePages(blk) }); err != nil {
			m.err = err
			return m, nil
		}
	}
	m.allocs = nil
	return m.setStatus(fmt.Sprintf("Freed %d allocations", n))
}

// guard turns an allocator fault into an error shown by View.
func (m Model) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*buddy.Fault)
			if !ok {
				panic(r)
			}
			err = f
		}
	}()
	fn()
	return nil
}

func (m Model) setStatus(s string) (tea.Model, tea.Cmd) {
	m.statusMessage = s
	return m, tea.Tick(statusTimeout, func(t time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}
