// Package page provides the page descriptor store for physical memory.
//
// # Overview
//
// Physical memory is divided into fixed-size 4KB pages. Each page is identified
// by its page frame number (PFN), its position in a flat descriptor array:
//
//	Base address = PFN << PageBits
//
// The Store holds exactly one Page descriptor per frame and is allocated once,
// sized to the largest physical address the system supports. Lookups by PFN are
// plain index operations.
//
// # Free Links
//
// Each descriptor carries a single intrusive link used only while the page is
// the head of a free block owned by a page allocator's free list. The link is
// NilPFN whenever the page is not on a list. A page is never linked into two
// lists at once; the allocator that owns the list is the only writer.
//
// # Flags
//
// Flags record diagnostic state (free head, reserved) for dumps and verifiers.
// Allocation algorithms must not branch on them.
//
// # Thread Safety
//
// Store is not thread-safe. Descriptors are mutated by the page allocator,
// which in turn requires external serialization.
package page
