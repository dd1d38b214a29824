package buddy

import (
	"errors"
	"fmt"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/mem/page"
)

// Buddy is a buddy-system page allocator over a page.Store.
// - head[o] is the lowest-PFN free block of order o, linked through page descriptors
// - lists are sorted by ascending PFN
// - freePages is maintained incrementally by every list insert and removal.
type Buddy struct {
	store     *page.Store
	lastOrder int

	head   []page.PFN // per-order list heads, NilPFN when empty
	length []int      // per-order list lengths

	freePages uint64

	stats allocatorStats
}

// New creates an allocator with empty free lists over store.
//
// Parameters:
//   - store: page descriptors for every frame the allocator may manage
//   - config: allocator configuration (use nil for DefaultConfig)
func New(store *page.Store, config *Config) (*Buddy, error) {
	if store == nil {
		return nil, errors.New("buddy: nil page store")
	}
	if config == nil {
		config = &DefaultConfig
	}
	if config.LastOrder < 0 || config.LastOrder > page.MaxOrder {
		return nil, fmt.Errorf("%w: last order %d (max %d)", ErrBadOrder, config.LastOrder, page.MaxOrder)
	}

	b := &Buddy{
		store:     store,
		lastOrder: config.LastOrder,
		head:      make([]page.PFN, config.LastOrder+1),
		length:    make([]int, config.LastOrder+1),
	}
	for i := range b.head {
		b.head[i] = page.NilPFN
	}
	return b, nil
}

// LastOrder returns the largest block order.
func (b *Buddy) LastOrder() int { return b.lastOrder }

// Store returns the descriptor store the allocator links through.
func (b *Buddy) Store() *page.Store { return b.store }

// FreePageCount returns the number of pages currently on free lists.
func (b *Buddy) FreePageCount() uint64 { return b.freePages }

// FreeBlocks returns the heads of the free blocks of one order, ascending.
func (b *Buddy) FreeBlocks(order int) []page.PFN {
	if order < 0 || order > b.lastOrder {
		return nil
	}
	blocks := make([]page.PFN, 0, b.length[order])
	for cur := b.head[order]; cur.Valid(); cur = b.next(cur) {
		blocks = append(blocks, cur)
	}
	return blocks
}

// InsertPages adds count pages starting at start to the free lists.
//
// The range may be misaligned and of any length. It is carved greedily into
// the largest blocks that are aligned at the cursor and fit in what is left,
// each merged with any free buddy as it is inserted.
func (b *Buddy) InsertPages(start page.PFN, count uint64) {
	logger.Debug("insert_pages", "pfn", uint64(start), "count", count)
	if !b.store.ContainsRange(start, count) {
		fault("insert_pages", 0, start, "range of %d pages exceeds store of %d pages", count, b.store.Len())
	}
	b.stats.InsertCalls++

	for pfn := start; pfn < start+page.PFN(count); pfn++ {
		b.store.GetFromPFN(pfn).Clear(page.FlagReserved)
	}

	cursor := start
	remaining := count
	for remaining > 0 {
		order := 0
		for order < b.lastOrder &&
			page.BlockAligned(order+1, cursor) &&
			remaining >= page.PagesPerBlock(order+1) {
			order++
		}

		size := page.PagesPerBlock(order)
		b.checkNotFree("insert_pages", order, cursor)
		b.insertFreeBlock(order, cursor)
		b.mergeBuddies(order, cursor)

		b.stats.PagesInserted += size
		cursor += page.PFN(size)
		remaining -= size
	}
}

// RemovePages withdraws count pages starting at start from the free lists.
//
// Free blocks that straddle the range are split until the range boundary is
// block-aligned. Pages in the range that are not free (already reserved or
// allocated) are skipped.
func (b *Buddy) RemovePages(start page.PFN, count uint64) {
	logger.Debug("remove_pages", "pfn", uint64(start), "count", count)
	if !b.store.ContainsRange(start, count) {
		fault("remove_pages", 0, start, "range of %d pages exceeds store of %d pages", count, b.store.Len())
	}
	b.stats.RemoveCalls++

	cursor := start
	remaining := count
	for remaining > 0 {
		found := false

		for order := b.lastOrder; order >= 0; order-- {
			block, ok := b.findContaining(order, cursor)
			if !ok {
				continue
			}
			found = true

			size := page.PagesPerBlock(order)
			if block == cursor && remaining >= size {
				b.removeFreeBlock(order, block)
				b.markReserved(block, size)
				b.stats.PagesRemoved += size
				cursor += page.PFN(size)
				remaining -= size
				break
			}
			if order == 0 {
				fault("remove_pages", order, block, "order-0 block does not cover cursor %#x", uint64(cursor))
			}

			// Partial overlap: split and keep scanning down, the half holding
			// the cursor is found at the next order.
			b.splitBlock(order, block)
		}

		if !found {
			cursor++
			remaining--
		}
	}
}

// AllocatePages takes a free block of exactly 2^order pages.
//
// The smallest non-empty order at or above the request is split down, keeping
// the lower half each time. Returns ErrOutOfMemory when every list from order
// to LastOrder is empty; this is never retried internally.
func (b *Buddy) AllocatePages(order int, flags Flags) (page.PFN, error) {
	b.stats.AllocCalls++
	if order < 0 || order > b.lastOrder {
		return page.NilPFN, fmt.Errorf("%w: %d (last order %d)", ErrBadOrder, order, b.lastOrder)
	}

	current := order
	for current <= b.lastOrder && !b.head[current].Valid() {
		current++
	}
	if current > b.lastOrder {
		b.stats.AllocFailures++
		logger.Debug("allocate_pages: out of memory", "order", order, "flags", flags.String())
		return page.NilPFN, ErrOutOfMemory
	}

	block := b.head[current]
	for ; current > order; current-- {
		b.splitBlock(current, block)
	}
	b.removeFreeBlock(order, block)

	b.stats.PagesAllocated += page.PagesPerBlock(order)
	logger.Debug("allocate_pages", "order", order, "flags", flags.String(), "pfn", uint64(block))
	return block, nil
}

// FreePages returns a block of 2^order pages and coalesces it with free buddies.
// Freeing memory that is already free, or with the wrong order, panics.
func (b *Buddy) FreePages(pfn page.PFN, order int) {
	logger.Debug("free_pages", "pfn", uint64(pfn), "order", order)
	if order < 0 || order > b.lastOrder {
		fault("free_pages", order, pfn, "order out of range 0..%d", b.lastOrder)
	}
	b.stats.FreeCalls++

	b.checkNotFree("free_pages", order, pfn)
	b.insertFreeBlock(order, pfn)
	b.mergeBuddies(order, pfn)

	b.stats.PagesFreed += page.PagesPerBlock(order)
}

// insertFreeBlock links a block head into free list order, keeping it sorted.
func (b *Buddy) insertFreeBlock(order int, pfn page.PFN) {
	b.checkBlock("insert_free_block", order, pfn)

	prev := page.NilPFN
	cur := b.head[order]
	for cur.Valid() && cur < pfn {
		prev = cur
		cur = b.next(cur)
	}
	if cur == pfn {
		fault("insert_free_block", order, pfn, "block already on free list")
	}

	target := b.store.GetFromPFN(pfn)
	target.SetNext(cur)
	target.Set(page.FlagFree)
	if prev.Valid() {
		b.store.GetFromPFN(prev).SetNext(pfn)
	} else {
		b.head[order] = pfn
	}

	b.length[order]++
	b.freePages += page.PagesPerBlock(order)
}

// removeFreeBlock unlinks a block head from free list order and clears its link.
func (b *Buddy) removeFreeBlock(order int, pfn page.PFN) {
	b.checkBlock("remove_free_block", order, pfn)

	prev := page.NilPFN
	cur := b.head[order]
	for cur.Valid() && cur < pfn {
		prev = cur
		cur = b.next(cur)
	}
	if cur != pfn {
		fault("remove_free_block", order, pfn, "block not on free list")
	}

	target := b.store.GetFromPFN(pfn)
	if prev.Valid() {
		b.store.GetFromPFN(prev).SetNext(target.Next())
	} else {
		b.head[order] = target.Next()
	}
	target.SetNext(page.NilPFN)
	target.Clear(page.FlagFree)

	b.length[order]--
	b.freePages -= page.PagesPerBlock(order)
}

// splitBlock replaces a free block of order with its two halves at order-1.
func (b *Buddy) splitBlock(order int, pfn page.PFN) {
	if order <= 0 || order > b.lastOrder {
		fault("split_block", order, pfn, "cannot split order %d", order)
	}

	half := pfn + page.PFN(page.PagesPerBlock(order-1))
	b.removeFreeBlock(order, pfn)
	b.insertFreeBlock(order-1, pfn)
	b.insertFreeBlock(order-1, half)

	b.stats.Splits++
}

// mergeBuddies coalesces the free block at pfn with its buddy, climbing orders
// until the buddy is not free or LastOrder is reached. Returns the order and
// head of the resulting block.
func (b *Buddy) mergeBuddies(order int, pfn page.PFN) (int, page.PFN) {
	for order < b.lastOrder {
		buddy := pfn ^ page.PFN(page.PagesPerBlock(order))
		if !b.onList(order, buddy) {
			break
		}

		b.removeFreeBlock(order, pfn)
		b.removeFreeBlock(order, buddy)
		pfn = min(pfn, buddy)
		b.insertFreeBlock(order+1, pfn)
		order++

		b.stats.Merges++
	}
	return order, pfn
}

// onList reports whether pfn heads a block on free list order.
func (b *Buddy) onList(order int, pfn page.PFN) bool {
	for cur := b.head[order]; cur.Valid() && cur <= pfn; cur = b.next(cur) {
		if cur == pfn {
			return true
		}
	}
	return false
}

// findContaining returns the free block of the given order that contains pfn.
func (b *Buddy) findContaining(order int, pfn page.PFN) (page.PFN, bool) {
	size := page.PFN(page.PagesPerBlock(order))
	for cur := b.head[order]; cur.Valid() && cur <= pfn; cur = b.next(cur) {
		if pfn < cur+size {
			return cur, true
		}
	}
	return page.NilPFN, false
}

// checkBlock enforces the order range, alignment and store bounds of a block.
func (b *Buddy) checkBlock(op string, order int, pfn page.PFN) {
	if order < 0 || order > b.lastOrder {
		fault(op, order, pfn, "order out of range 0..%d", b.lastOrder)
	}
	if !page.BlockAligned(order, pfn) {
		fault(op, order, pfn, "block not aligned to %d pages", page.PagesPerBlock(order))
	}
	if !b.store.ContainsRange(pfn, page.PagesPerBlock(order)) {
		fault(op, order, pfn, "block exceeds store of %d pages", b.store.Len())
	}
}

// checkNotFree panics if any page of the block is already on a free list.
func (b *Buddy) checkNotFree(op string, order int, pfn page.PFN) {
	end := pfn + page.PFN(page.PagesPerBlock(order))
	for o := 0; o <= b.lastOrder; o++ {
		size := page.PFN(page.PagesPerBlock(o))
		for cur := b.head[o]; cur.Valid() && cur < end; cur = b.next(cur) {
			if cur+size > pfn {
				fault(op, order, pfn, "overlaps free block %#x of order %d", uint64(cur), o)
			}
		}
	}
}

func (b *Buddy) markReserved(pfn page.PFN, count uint64) {
	for i := range page.PFN(count) {
		b.store.GetFromPFN(pfn + i).Set(page.FlagReserved)
	}
}

func (b *Buddy) next(pfn page.PFN) page.PFN {
	return b.store.GetFromPFN(pfn).Next()
}
