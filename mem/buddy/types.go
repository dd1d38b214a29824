package buddy

import (
	"io"
	"strconv"

	"github.com/joshuapare/pagekit/mem/page"
)

// DefaultLastOrder is the largest block order used when no config is given
// (2^16 pages, 256MB with 4KB pages).
const DefaultLastOrder = 16

// Flags are allocation policy hints. The allocator forwards them untouched;
// interpreting them (for example zero-filling) is up to the memory context
// that owns the backing storage.
type Flags uint32

const (
	FlagNone Flags = 0
	FlagZero Flags = 1 << 0 // zero-fill the block before handing it out
)

func (f Flags) String() string {
	switch f {
	case FlagNone:
		return "none"
	case FlagZero:
		return "zero"
	}
	return "flags(" + strconv.FormatUint(uint64(f), 16) + ")"
}

// Config controls allocator construction.
type Config struct {
	// LastOrder bounds the largest block size (2^LastOrder pages).
	LastOrder int
}

// DefaultConfig is used when New is given a nil config.
var DefaultConfig = Config{LastOrder: DefaultLastOrder}

// Allocator is the page allocator call surface consumed by the memory
// subsystem and its boot-time memory-map importer.
//
// Implementations:
//   - *Buddy: the buddy-system allocator in this package
type Allocator interface {
	// InsertPages makes count pages starting at start available.
	InsertPages(start page.PFN, count uint64)

	// RemovePages withdraws count pages starting at start. Pages that are
	// not currently free are skipped.
	RemovePages(start page.PFN, count uint64)

	// AllocatePages returns the head PFN of a free block of 2^order pages,
	// or ErrOutOfMemory.
	AllocatePages(order int, flags Flags) (page.PFN, error)

	// FreePages returns a block obtained from AllocatePages at the same order.
	FreePages(pfn page.PFN, order int)

	// Dump writes a human-readable snapshot of the free lists.
	Dump(w io.Writer) error

	// LastOrder returns the largest supported block order.
	LastOrder() int
}
