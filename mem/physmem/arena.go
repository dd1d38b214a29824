// Package physmem provides the byte storage behind physical page frames.
//
// An Arena maps every PFN of a page.Store to PageSize bytes so that blocks
// handed out by the page allocator can be read, written and zero-filled.
// On unix systems the arena is an anonymous private mapping; elsewhere it is
// an ordinary heap slice.
package physmem

import (
	"errors"
	"fmt"

	"github.com/joshuapare/pagekit/mem/page"
)

// ErrClosed indicates use of an arena after Close.
var ErrClosed = errors.New("physmem: arena closed")

// maxArenaBytes caps an arena at what a slice length can address.
const maxArenaBytes = uint64(^uint(0) >> 1)

// Arena is the backing memory for numPages physical pages.
type Arena struct {
	mem     []byte
	pages   uint64
	release func([]byte) error
}

// New creates a zeroed arena of numPages pages.
func New(numPages uint64) (*Arena, error) {
	if numPages == 0 {
		return nil, errors.New("physmem: arena needs at least one page")
	}
	if numPages > maxArenaBytes>>page.PageBits {
		return nil, fmt.Errorf("physmem: %d pages exceeds addressable size", numPages)
	}

	mem, release, err := mapAnon(int(numPages << page.PageBits))
	if err != nil {
		return nil, fmt.Errorf("physmem: map %d pages: %w", numPages, err)
	}
	return &Arena{mem: mem, pages: numPages, release: release}, nil
}

// Pages returns the number of pages in the arena.
func (a *Arena) Pages() uint64 { return a.pages }

// Block returns the bytes of the block of 2^order pages starting at pfn.
// The slice aliases the arena and is invalid after Close.
func (a *Arena) Block(pfn page.PFN, order int) []byte {
	if a.mem == nil {
		panic(ErrClosed)
	}
	count := page.PagesPerBlock(order)
	end := uint64(pfn) + count
	if order < 0 || order > page.MaxOrder || end < uint64(pfn) || end > a.pages {
		panic(fmt.Sprintf("physmem: block pfn=%#x order=%d outside arena of %d pages", uint64(pfn), order, a.pages))
	}
	lo := uint64(pfn) << page.PageBits
	hi := end << page.PageBits
	return a.mem[lo:hi:hi]
}

// Zero clears the block of 2^order pages starting at pfn.
func (a *Arena) Zero(pfn page.PFN, order int) {
	clear(a.Block(pfn, order))
}

// Close releases the mapping. Calling Close more than once is a no-op.
func (a *Arena) Close() error {
	if a.mem == nil {
		return nil
	}
	mem := a.mem
	a.mem = nil
	return a.release(mem)
}
