// Package pagealloc is the memory-management context that owns a page
// descriptor store, a buddy allocator over it and, optionally, the bytes
// behind every frame.
//
// # Overview
//
// A Context is the serialized entry point to physical page allocation:
//
//	ctx, err := pagealloc.New(pagealloc.Config{Pages: 1 << 15, Backed: true})
//	if err != nil {
//	    return err
//	}
//	defer ctx.Close()
//
//	// Seed from the firmware memory map
//	if _, err := ctx.LoadMemoryMap(f); err != nil {
//	    return err
//	}
//
//	blk, err := ctx.AllocatePages(0, buddy.FlagZero)
//	if errors.Is(err, buddy.ErrOutOfMemory) {
//	    // fail the request
//	}
//	copy(blk.Data, payload)
//	ctx.FreePages(blk)
//
// # Thread Safety
//
// Every Context method takes the same mutex, so at most one allocator
// operation is in flight. The underlying buddy.Buddy has no locking of its own.
//
// # Allocation Flags
//
// The buddy allocator forwards flags without interpreting them. The Context
// honours FlagZero by clearing the block when the context is backed by an
// arena; unbacked contexts have no bytes to clear.
package pagealloc
