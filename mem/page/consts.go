package page

import "math"

const (
	// PageBits is log2(PageSize). Shift a PFN left by PageBits to get its base address.
	PageBits = 12

	// PageSize is the size of one physical page in bytes.
	PageSize = 1 << PageBits

	// MaxOrder is the largest block order representable in a PFN shift.
	MaxOrder = 63
)

// PFN is a page frame number: the index of a page in the descriptor store.
type PFN uint64

// NilPFN marks an empty free link.
const NilPFN = PFN(math.MaxUint64)

// Valid reports whether the PFN is not the nil link.
func (p PFN) Valid() bool {
	return p != NilPFN
}

// Address returns the physical base address of the frame.
func (p PFN) Address() uint64 {
	return uint64(p) << PageBits
}

// FromAddress returns the frame containing a physical address.
func FromAddress(addr uint64) PFN {
	return PFN(addr >> PageBits)
}

// Size represents a memory size in bytes.
type Size uint64

// Common memory sizes.
const (
	Byte Size = 1
	KiB       = 1024 * Byte
	MiB       = 1024 * KiB
	GiB       = 1024 * MiB
)

// Pages returns the number of whole pages that fit in s.
func (s Size) Pages() uint64 {
	return uint64(s) >> PageBits
}

// PagesPerBlock returns the number of pages in a block of the given order.
func PagesPerBlock(order int) uint64 {
	return 1 << uint(order)
}

// BlockAligned reports whether pfn is a valid head for a block of the given order.
func BlockAligned(order int, pfn PFN) bool {
	return uint64(pfn)&(PagesPerBlock(order)-1) == 0
}
