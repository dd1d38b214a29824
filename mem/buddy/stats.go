package buddy

// allocatorStats holds internal allocator counters.
type allocatorStats struct {
	InsertCalls    int    // InsertPages() calls
	RemoveCalls    int    // RemovePages() calls
	AllocCalls     int    // AllocatePages() calls
	AllocFailures  int    // AllocatePages() calls that returned ErrOutOfMemory
	FreeCalls      int    // FreePages() calls
	Splits         int    // block splits
	Merges         int    // buddy merges
	PagesInserted  uint64 // pages donated through InsertPages
	PagesRemoved   uint64 // pages withdrawn through RemovePages (skipped pages excluded)
	PagesAllocated uint64 // pages handed out by AllocatePages
	PagesFreed     uint64 // pages returned through FreePages
}

// Stats is a snapshot of allocator state and counters.
type Stats struct {
	allocatorStats

	LastOrder  int
	FreePages  uint64
	FreeBlocks []int // free block count per order
}

// Stats returns a snapshot of the allocator counters and free-list sizes.
func (b *Buddy) Stats() Stats {
	return Stats{
		allocatorStats: b.stats,
		LastOrder:      b.lastOrder,
		FreePages:      b.freePages,
		FreeBlocks:     append([]int(nil), b.length...),
	}
}

// ExpectedFreePages is the free page count implied by the counters:
// inserted - removed - allocated + freed.
func (s Stats) ExpectedFreePages() uint64 {
	return s.PagesInserted - s.PagesRemoved - s.PagesAllocated + s.PagesFreed
}

// LargestFreeOrder returns the highest order with a free block, or -1.
func (s Stats) LargestFreeOrder() int {
	for o := len(s.FreeBlocks) - 1; o >= 0; o-- {
		if s.FreeBlocks[o] > 0 {
			return o
		}
	}
	return -1
}
