package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/mem/page"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestBuddy creates an allocator over a fresh store of numPages pages.
func newTestBuddy(t testing.TB, numPages uint64, lastOrder int) *Buddy {
	t.Helper()
	b, err := New(page.NewStore(numPages), &Config{LastOrder: lastOrder})
	require.NoError(t, err)
	return b
}

// requireBlocks asserts the exact contents of one free list.
func requireBlocks(t testing.TB, b *Buddy, order int, want ...page.PFN) {
	t.Helper()
	if want == nil {
		want = []page.PFN{}
	}
	require.Equal(t, want, b.FreeBlocks(order), "free list of order %d", order)
}

// requireOnlyBlocks asserts that every order not in want has an empty list.
func requireOnlyBlocks(t testing.TB, b *Buddy, want map[int][]page.PFN) {
	t.Helper()
	for order := 0; order <= b.LastOrder(); order++ {
		requireBlocks(t, b, order, want[order]...)
	}
}

// requireInvariants asserts Verify passes and the counters balance.
func requireInvariants(t testing.TB, b *Buddy) {
	t.Helper()
	require.NoError(t, b.Verify())
	require.Equal(t, b.Stats().ExpectedFreePages(), b.FreePageCount(), "conservation")
}

// requireFault runs fn and asserts it panics with a *Fault raised by op.
func requireFault(t testing.TB, op string, fn func()) *Fault {
	t.Helper()
	var got *Fault
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected %s to fault", op)
			f, ok := r.(*Fault)
			require.True(t, ok, "panic value %T is not *Fault: %v", r, r)
			got = f
		}()
		fn()
	}()
	require.Equal(t, op, got.Op, "fault raised by wrong operation: %v", got)
	return got
}

// freePageSet expands every free block into its pages.
func freePageSet(b *Buddy) map[page.PFN]bool {
	set := make(map[page.PFN]bool)
	for order := 0; order <= b.LastOrder(); order++ {
		for _, head := range b.FreeBlocks(order) {
			for i := range page.PFN(page.PagesPerBlock(order)) {
				set[head+i] = true
			}
		}
	}
	return set
}

// snapshot captures every free list.
func snapshot(b *Buddy) [][]page.PFN {
	lists := make([][]page.PFN, b.LastOrder()+1)
	for order := range lists {
		lists[order] = b.FreeBlocks(order)
	}
	return lists
}
