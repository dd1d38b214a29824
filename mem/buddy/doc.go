// Package buddy implements a buddy-system physical page allocator.
//
// # Overview
//
// Free physical memory is kept as power-of-two blocks of pages. A block of
// order o spans 2^o contiguous pages and starts at a PFN divisible by 2^o.
// Each order has its own free list, so allocation, deallocation and
// coalescing take time proportional to the number of orders rather than the
// number of pages.
//
// Free lists are intrusive: the link lives in the head page's descriptor in
// a page.Store, and only the head page of a free block is linked. Lists are
// kept sorted by ascending PFN.
//
// # Operations
//
//   - InsertPages(start, n): donate an arbitrary range of pages
//   - RemovePages(start, n): withdraw an arbitrary range, splitting blocks
//   - AllocatePages(order, flags): take a block of exactly 2^order pages
//   - FreePages(pfn, order): return a block and coalesce with its buddies
//   - Dump(w): print the free lists
//
// # Usage Example
//
//	store := page.NewStore(1 << 16)
//	b, err := buddy.New(store, nil)
//	if err != nil {
//	    return err
//	}
//
//	// Seed from the boot memory map
//	b.InsertPages(0x100, 0xFF00)
//	b.RemovePages(0x100, 0x400) // kernel image
//
//	pfn, err := b.AllocatePages(2, buddy.FlagNone)
//	if errors.Is(err, buddy.ErrOutOfMemory) {
//	    // reclaim or fail the request
//	}
//	b.FreePages(pfn, 2)
//
// # Buddies
//
// Two blocks of order o are buddies iff their PFNs differ only in bit o:
//
//	buddy(pfn, o) = pfn XOR 2^o
//
// Freeing a block merges it with its buddy whenever the buddy is also free,
// then repeats one order up, until no buddy is found or LastOrder is reached.
//
// # Failure Model
//
// Running out of memory is an ordinary condition reported as ErrOutOfMemory.
// Broken preconditions (misaligned blocks, freeing memory that is already
// free, removing a block that is not on its list) are bookkeeping bugs: the
// allocator panics with a *Fault instead of continuing with corrupt lists.
//
// # Thread Safety
//
// Buddy instances are not thread-safe. Every operation mutates shared list
// heads and page links without locking. Callers must serialize access
// externally; pkg/pagealloc wraps a Buddy behind a mutex.
package buddy
