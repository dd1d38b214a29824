package pagealloc

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/internal/memmap"
	"github.com/joshuapare/pagekit/mem/buddy"
	"github.com/joshuapare/pagekit/mem/page"
	"github.com/joshuapare/pagekit/mem/physmem"
)

// Config controls context construction.
type Config struct {
	// Pages is the number of page descriptors (the largest supported PFN + 1).
	Pages uint64

	// LastOrder bounds the largest block (2^LastOrder pages).
	LastOrder int

	// Backed allocates real memory for every page so blocks carry Data.
	Backed bool
}

// DefaultConfig returns a 256MB unbacked configuration.
func DefaultConfig() Config {
	return Config{
		Pages:     (256 * page.MiB).Pages(),
		LastOrder: buddy.DefaultLastOrder,
	}
}

// Block is an allocated run of 2^Order pages.
type Block struct {
	PFN   page.PFN
	Order int
	Data  []byte // nil for unbacked contexts
}

// Pages returns the number of pages in the block.
func (b Block) Pages() uint64 { return page.PagesPerBlock(b.Order) }

// Address returns the physical base address of the block.
func (b Block) Address() uint64 { return b.PFN.Address() }

// Context owns a store, its allocator and the optional backing arena.
type Context struct {
	mu    sync.Mutex
	store *page.Store
	alloc *buddy.Buddy
	arena *physmem.Arena
}

// New creates a context with empty free lists. Seed it with InsertPages or
// LoadMemoryMap before allocating.
func New(cfg Config) (*Context, error) {
	if cfg.Pages == 0 {
		return nil, errors.New("pagealloc: config needs at least one page")
	}

	store := page.NewStore(cfg.Pages)
	alloc, err := buddy.New(store, &buddy.Config{LastOrder: cfg.LastOrder})
	if err != nil {
		return nil, fmt.Errorf("pagealloc: %w", err)
	}

	ctx := &Context{store: store, alloc: alloc}
	if cfg.Backed {
		arena, err := physmem.New(cfg.Pages)
		if err != nil {
			return nil, fmt.Errorf("pagealloc: %w", err)
		}
		ctx.arena = arena
	}

	logger.Debug("pagealloc: context created", "pages", cfg.Pages, "last_order", cfg.LastOrder, "backed", cfg.Backed)
	return ctx, nil
}

// Pages returns the number of page descriptors.
func (c *Context) Pages() uint64 { return c.store.Len() }

// LastOrder returns the largest block order.
func (c *Context) LastOrder() int { return c.alloc.LastOrder() }

// Backed reports whether blocks carry Data.
func (c *Context) Backed() bool { return c.arena != nil }

// InsertPages makes count pages starting at start available.
func (c *Context) InsertPages(start page.PFN, count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alloc.InsertPages(start, count)
}

// RemovePages withdraws count pages starting at start.
func (c *Context) RemovePages(start page.PFN, count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alloc.RemovePages(start, count)
}

// AllocatePages allocates a block of 2^order pages. It returns
// buddy.ErrOutOfMemory when no block is available.
func (c *Context) AllocatePages(order int, flags buddy.Flags) (Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pfn, err := c.alloc.AllocatePages(order, flags)
	if err != nil {
		return Block{}, fmt.Errorf("pagealloc: allocate order %d: %w", order, err)
	}

	blk := Block{PFN: pfn, Order: order}
	if c.arena != nil {
		blk.Data = c.arena.Block(pfn, order)
		if flags&buddy.FlagZero != 0 {
			clear(blk.Data)
		}
	}
	return blk, nil
}

// FreePages returns a block obtained from AllocatePages.
func (c *Context) FreePages(blk Block) {
	c.FreePFN(blk.PFN, blk.Order)
}

// FreePFN returns the block of 2^order pages at pfn.
func (c *Context) FreePFN(pfn page.PFN, order int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alloc.FreePages(pfn, order)
}

// Dump writes the free lists.
func (c *Context) Dump(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alloc.Dump(w)
}

// FreeBlocks returns the free block heads of one order.
func (c *Context) FreeBlocks(order int) []page.PFN {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alloc.FreeBlocks(order)
}

// Stats returns allocator counters.
func (c *Context) Stats() buddy.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alloc.Stats()
}

// Verify checks the free-list invariants.
func (c *Context) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alloc.Verify()
}

// SelfTest runs the allocator self-test. The context must be freshly created.
func (c *Context) SelfTest(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alloc.FreePageCount() != 0 || c.alloc.Stats().InsertCalls != 0 {
		return errors.New("pagealloc: self-test needs an unseeded context")
	}
	return buddy.SelfTest(c.alloc, w)
}

// LoadMemoryMap parses a firmware memory map and seeds the allocator from it.
func (c *Context) LoadMemoryMap(r io.Reader) (memmap.Summary, error) {
	m, err := memmap.Parse(r)
	if err != nil {
		return memmap.Summary{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sum := m.Apply(c.alloc, c.store.Len())
	logger.Info("pagealloc: memory map loaded",
		"usable_regions", sum.UsableRegions,
		"reserved_regions", sum.ReservedRegions,
		"pages_inserted", sum.PagesInserted,
		"pages_removed", sum.PagesRemoved,
		"pages_clipped", sum.PagesClipped,
	)
	return sum, nil
}

// Close releases the backing arena. Blocks' Data must not be used afterwards.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.arena == nil {
		return nil
	}
	return c.arena.Close()
}
