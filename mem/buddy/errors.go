package buddy

import (
	"errors"
	"fmt"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/mem/page"
)

var (
	// ErrOutOfMemory indicates that no free block exists at or above the requested order.
	ErrOutOfMemory = errors.New("buddy: out of memory")

	// ErrBadOrder indicates a requested order outside 0..LastOrder.
	ErrBadOrder = errors.New("buddy: order out of range")
)

// Fault is the panic value raised when an allocator precondition is broken.
// It signals corrupted bookkeeping, not a condition callers can handle.
type Fault struct {
	Op    string   // operation that detected the fault
	Order int      // block order involved
	PFN   page.PFN // block head involved
	Msg   string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("buddy: %s(order=%d, pfn=%#x): %s", f.Op, f.Order, uint64(f.PFN), f.Msg)
}

// fault logs and panics with a *Fault.
func fault(op string, order int, pfn page.PFN, format string, args ...any) {
	f := &Fault{Op: op, Order: order, PFN: pfn, Msg: fmt.Sprintf(format, args...)}
	logger.Error("allocator fault", "op", op, "order", order, "pfn", uint64(pfn), "msg", f.Msg)
	panic(f)
}

// InvariantError describes a free-list structure that fails verification.
type InvariantError struct {
	Check   string // alignment, ordering, disjointness, closure, accounting, link
	Order   int
	PFN     page.PFN
	Message string
}

func (e *InvariantError) Error() string {
	if e.PFN.Valid() {
		return fmt.Sprintf("buddy: %s invariant at order %d pfn %#x: %s", e.Check, e.Order, uint64(e.PFN), e.Message)
	}
	return fmt.Sprintf("buddy: %s invariant at order %d: %s", e.Check, e.Order, e.Message)
}
