package buddy

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/pagekit/mem/page"
)

// verifier is implemented by allocators that can check their own invariants.
type verifier interface {
	Verify() error
}

// SelfTest drives an empty allocator through a fixed sequence of inserts,
// removals, allocations and frees, dumping the free lists after each step.
// If a also implements Verify, invariants are checked after every step.
//
// The allocator needs at least 48 pages and LastOrder >= 3. SelfTest returns
// the first failure instead of aborting; allocator faults still panic.
func SelfTest(a Allocator, w io.Writer) error {
	if a.LastOrder() < 3 {
		return fmt.Errorf("selftest: last order %d too small (need 3)", a.LastOrder())
	}

	step := 0
	check := func(desc string, args ...any) error {
		if err := a.Dump(w); err != nil {
			return err
		}
		if v, ok := a.(verifier); ok {
			if err := v.Verify(); err != nil {
				return fmt.Errorf("selftest step %d (%s): %w", step, fmt.Sprintf(desc, args...), err)
			}
		}
		return nil
	}
	begin := func(desc string, args ...any) {
		step++
		fmt.Fprintf(w, "(%d) %s\n", step, fmt.Sprintf(desc, args...))
	}
	alloc := func(order int) (page.PFN, error) {
		pfn, err := a.AllocatePages(order, FlagNone)
		if err != nil {
			return page.NilPFN, fmt.Errorf("selftest step %d: allocate order %d: %w", step, order, err)
		}
		fmt.Fprintf(w, "  allocated pfn=%x, base=%x\n", uint64(pfn), pfn.Address())
		return pfn, nil
	}

	fmt.Fprintln(w, "******************************************")
	fmt.Fprintln(w, "*** PAGE ALLOCATOR SELF TEST ACTIVATED ***")
	fmt.Fprintln(w, "******************************************")

	begin("Initial state")
	if err := check("initial"); err != nil {
		return err
	}

	begin("Insert power-of-two block (PFN=0, COUNT=8)")
	a.InsertPages(0, 8)
	if err := check("insert 8@0"); err != nil {
		return err
	}

	begin("Insert odd block (PFN=13, COUNT=3)")
	a.InsertPages(13, 3)
	if err := check("insert 3@13"); err != nil {
		return err
	}

	begin("Remove page (PFN=2, COUNT=1)")
	a.RemovePages(2, 1)
	if err := check("remove 1@2"); err != nil {
		return err
	}

	begin("Allocate page (ORDER=0)")
	p0, err := alloc(0)
	if err != nil {
		return err
	}
	if err := check("allocate order 0"); err != nil {
		return err
	}

	begin("Free page (PFN=%x, ORDER=0)", uint64(p0))
	a.FreePages(p0, 0)
	if err := check("free order 0"); err != nil {
		return err
	}

	begin("Insert pages (PFN=20, COUNT=20)")
	a.InsertPages(20, 20)
	if err := check("insert 20@20"); err != nil {
		return err
	}

	begin("Allocate page (ORDER=1)")
	p1, err := alloc(1)
	if err != nil {
		return err
	}
	if err := check("allocate order 1"); err != nil {
		return err
	}

	begin("Free page (PFN=%x, ORDER=1)", uint64(p1))
	a.FreePages(p1, 1)
	if err := check("free order 1"); err != nil {
		return err
	}

	begin("Insert one page (PFN=2, ORDER=0)")
	a.InsertPages(2, 1)
	if err := check("insert 1@2"); err != nil {
		return err
	}

	begin("Allocate page (ORDER=3)")
	p3, err := alloc(3)
	if err != nil {
		return err
	}
	if err := check("allocate order 3"); err != nil {
		return err
	}

	begin("Free one page in middle of allocation (PFN=%x, ORDER=0)", uint64(p3+1))
	a.FreePages(p3+1, 0)
	if err := check("free middle page"); err != nil {
		return err
	}

	begin("Free one page at start of allocation (PFN=%x, ORDER=0)", uint64(p3))
	a.FreePages(p3, 0)
	if err := check("free first page"); err != nil {
		return err
	}

	begin("Free rest of allocation (PFN=%x, ORDER=1; PFN=%x, ORDER=2)", uint64(p3+2), uint64(p3+4))
	a.FreePages(p3+2, 1)
	a.FreePages(p3+4, 2)
	if err := check("free rest"); err != nil {
		return err
	}

	begin("Insert pages to trigger higher merge (PFN=40, COUNT=8)")
	a.InsertPages(40, 8)
	if err := check("insert 8@40"); err != nil {
		return err
	}

	begin("Allocate block of maximum order (ORDER=%d)", a.LastOrder())
	top, err := a.AllocatePages(a.LastOrder(), FlagNone)
	switch {
	case errors.Is(err, ErrOutOfMemory):
		fmt.Fprintf(w, "  no free block of order %d\n", a.LastOrder())
	case err != nil:
		return fmt.Errorf("selftest step %d: %w", step, err)
	default:
		fmt.Fprintf(w, "  allocated pfn=%x, base=%x\n", uint64(top), top.Address())
		a.FreePages(top, a.LastOrder())
	}
	if err := check("maximum order"); err != nil {
		return err
	}

	begin("Allocate all pages, then free them all, then allocate one")
	var held []page.PFN
	for {
		p, err := a.AllocatePages(0, FlagNone)
		if errors.Is(err, ErrOutOfMemory) {
			break
		}
		if err != nil {
			return fmt.Errorf("selftest step %d: %w", step, err)
		}
		held = append(held, p)
	}
	fmt.Fprintf(w, "  allocated %d pages, none left\n", len(held))
	if err := check("exhausted"); err != nil {
		return err
	}
	for _, p := range held {
		a.FreePages(p, 0)
	}
	last, err := alloc(0)
	if err != nil {
		return err
	}
	if err := check("allocate after exhaustion"); err != nil {
		return err
	}
	a.FreePages(last, 0)

	begin("Consecutive allocations and deallocations of the same order (ORDER=2)")
	for range 10 {
		p, err := a.AllocatePages(2, FlagNone)
		if err != nil {
			return fmt.Errorf("selftest step %d: %w", step, err)
		}
		a.FreePages(p, 2)
	}
	if err := check("repeat order 2"); err != nil {
		return err
	}

	fmt.Fprintln(w, "*** SELF TEST COMPLETE ***")
	return nil
}
