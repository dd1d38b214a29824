package main

import (
	"github.com/joshuapare/pagekit/mem/buddy"
	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

// Model is the main Bubbletea model
type Model struct {
	ctx    *pagealloc.Context
	source string // where the free lists were seeded from
	keys   KeyMap

	// Selected order row
	selected int

	// Outstanding allocations, most recent last
	allocs []pagealloc.Block
	zero   bool

	// UI state
	width         int
	height        int
	showHelp      bool
	statusMessage string
	err           error
}

// NewModel creates the explorer model over an allocator context.
func NewModel(ctx *pagealloc.Context, source string) Model {
	return Model{
		ctx:    ctx,
		source: source,
		keys:   DefaultKeyMap(),
	}
}

// Close releases the allocator context.
func (m Model) Close() error {
	if m.ctx == nil {
		return nil
	}
	return m.ctx.Close()
}

// allocFlags returns the flags used for new allocations.
func (m Model) allocFlags() buddy.Flags {
	if m.zero {
		return buddy.FlagZero
	}
	return buddy.FlagNone
}

// outstandingPages sums the pages held by the explorer.
func (m Model) outstandingPages() uint64 {
	var n uint64
	for _, blk := range m.allocs {
		n += blk.Pages()
	}
	return n
}
