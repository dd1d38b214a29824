package buddy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/pagekit/mem/page"
)

func TestSelfTest_Passes(t *testing.T) {
	b := newTestBuddy(t, 64, DefaultLastOrder)

	var out strings.Builder
	require.NoError(t, SelfTest(b, &out))

	log := out.String()
	require.Contains(t, log, "PAGE ALLOCATOR SELF TEST ACTIVATED")
	require.Contains(t, log, "(4) Remove page (PFN=2, COUNT=1)")
	require.Contains(t, log, "no free block of order 16")
	require.Contains(t, log, "(17) Allocate all pages, then free them all, then allocate one")
	require.Contains(t, log, "  allocated 39 pages, none left\n")
	require.Contains(t, log, "(18) Consecutive allocations")
	require.Contains(t, log, "SELF TEST COMPLETE")

	// 8 + 3 - 1 + 20 + 1 + 8 pages, all coalesced back.
	require.Equal(t, uint64(39), b.FreePageCount())
	requireInvariants(t, b)
	requireOnlyBlocks(t, b, map[int][]page.PFN{
		0: {13},
		1: {14},
		2: {20},
		3: {0, 24},
		4: {32},
	})
}

func TestSelfTest_SmallLastOrderAllocatesMaximum(t *testing.T) {
	b := newTestBuddy(t, 48, 3)

	var out strings.Builder
	require.NoError(t, SelfTest(b, &out))
	require.NotContains(t, out.String(), "no free block")
	requireInvariants(t, b)
}

func TestSelfTest_RejectsTinyLastOrder(t *testing.T) {
	b := newTestBuddy(t, 64, 2)
	require.Error(t, SelfTest(b, &strings.Builder{}))
}
