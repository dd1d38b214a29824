package page

import "fmt"

// Flags holds diagnostic state for a page descriptor.
type Flags uint8

const (
	// FlagFree is set while the page is the head of a block on a free list.
	FlagFree Flags = 1 << iota

	// FlagReserved is set when the page was withdrawn from the free pool by a
	// range removal (firmware, kernel image, MMIO holes).
	FlagReserved
)

// Page is the metadata record for one physical page.
type Page struct {
	pfn   PFN
	next  PFN // free-list link, NilPFN unless the page heads a free block
	flags Flags
}

// PFN returns the page's frame number.
func (p *Page) PFN() PFN { return p.pfn }

// BaseAddress returns the physical address of the first byte of the page.
func (p *Page) BaseAddress() uint64 { return p.pfn.Address() }

// Next returns the free-list link.
func (p *Page) Next() PFN { return p.next }

// SetNext sets the free-list link. Only the owning free list may call this.
func (p *Page) SetNext(next PFN) { p.next = next }

// Flags returns the diagnostic flags.
func (p *Page) Flags() Flags { return p.flags }

// Has reports whether all bits in f are set.
func (p *Page) Has(f Flags) bool { return p.flags&f == f }

// Set sets the bits in f.
func (p *Page) Set(f Flags) { p.flags |= f }

// Clear clears the bits in f.
func (p *Page) Clear(f Flags) { p.flags &^= f }

func (p *Page) String() string {
	return fmt.Sprintf("page{pfn=%#x base=%#x}", uint64(p.pfn), p.BaseAddress())
}

// Store is the fixed-size array of page descriptors, indexed by PFN.
type Store struct {
	pages []Page
}

// NewStore creates a store with one descriptor per page, PFNs 0 to numPages-1.
// All links start out nil.
func NewStore(numPages uint64) *Store {
	s := &Store{pages: make([]Page, numPages)}
	for i := range s.pages {
		s.pages[i] = Page{pfn: PFN(i), next: NilPFN}
	}
	return s
}

// Len returns the number of descriptors.
func (s *Store) Len() uint64 {
	return uint64(len(s.pages))
}

// Contains reports whether pfn indexes a descriptor in the store.
func (s *Store) Contains(pfn PFN) bool {
	return uint64(pfn) < uint64(len(s.pages))
}

// ContainsRange reports whether every frame in [start, start+count) is in the store.
func (s *Store) ContainsRange(start PFN, count uint64) bool {
	end := uint64(start) + count
	return end >= uint64(start) && end <= uint64(len(s.pages))
}

// GetFromPFN returns the descriptor for pfn. An out-of-range PFN panics; callers
// must only pass frames they obtained from the store or its allocator.
func (s *Store) GetFromPFN(pfn PFN) *Page {
	if !s.Contains(pfn) {
		panic(fmt.Sprintf("page: pfn %#x out of range (store has %d pages)", uint64(pfn), len(s.pages)))
	}
	return &s.pages[pfn]
}

// GetFromAddress returns the descriptor for the page containing addr.
func (s *Store) GetFromAddress(addr uint64) *Page {
	return s.GetFromPFN(FromAddress(addr))
}
