package page

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStore_InitialState(t *testing.T) {
	s := NewStore(64)
	require.Equal(t, uint64(64), s.Len())

	for pfn := PFN(0); pfn < 64; pfn++ {
		p := s.GetFromPFN(pfn)
		require.Equal(t, pfn, p.PFN())
		require.Equal(t, NilPFN, p.Next(), "links must start nil")
		require.Zero(t, p.Flags())
	}
}

func TestGetFromPFN_BaseAddress(t *testing.T) {
	s := NewStore(32)

	require.Equal(t, uint64(0), s.GetFromPFN(0).BaseAddress())
	require.Equal(t, uint64(0x1000), s.GetFromPFN(1).BaseAddress())
	require.Equal(t, uint64(0x1F000), s.GetFromPFN(31).BaseAddress())

	// Descriptors are stable: same pointer for the same PFN.
	require.Same(t, s.GetFromPFN(7), s.GetFromPFN(7))
	require.Same(t, s.GetFromPFN(7), s.GetFromAddress(0x7ABC))
}

func TestGetFromPFN_OutOfRangePanics(t *testing.T) {
	s := NewStore(16)
	require.Panics(t, func() { s.GetFromPFN(16) })
	require.Panics(t, func() { s.GetFromPFN(NilPFN) })
}

func TestContainsRange(t *testing.T) {
	s := NewStore(16)

	require.True(t, s.ContainsRange(0, 16))
	require.True(t, s.ContainsRange(15, 1))
	require.True(t, s.ContainsRange(16, 0))
	require.False(t, s.ContainsRange(15, 2))
	require.False(t, s.ContainsRange(NilPFN, 2), "wrap-around must not pass")
}

func TestFlags(t *testing.T) {
	s := NewStore(4)
	p := s.GetFromPFN(2)

	p.Set(FlagFree)
	require.True(t, p.Has(FlagFree))
	require.False(t, p.Has(FlagFree|FlagReserved))

	p.Set(FlagReserved)
	require.True(t, p.Has(FlagFree|FlagReserved))

	p.Clear(FlagFree)
	require.False(t, p.Has(FlagFree))
	require.True(t, p.Has(FlagReserved))
}

func TestBlockHelpers(t *testing.T) {
	require.Equal(t, uint64(1), PagesPerBlock(0))
	require.Equal(t, uint64(8), PagesPerBlock(3))
	require.Equal(t, uint64(1<<16), PagesPerBlock(16))

	require.True(t, BlockAligned(0, 13))
	require.True(t, BlockAligned(3, 16))
	require.False(t, BlockAligned(3, 12))
	require.True(t, BlockAligned(2, 12))
	require.True(t, BlockAligned(16, 0))
}

func TestAddressConversions(t *testing.T) {
	require.Equal(t, PFN(0x100), FromAddress(0x100000))
	require.Equal(t, PFN(0x100), FromAddress(0x100FFF))
	require.Equal(t, uint64(0x100000), PFN(0x100).Address())
	require.True(t, PFN(0).Valid())
	require.False(t, NilPFN.Valid())

	require.Equal(t, uint64(256), (1 * MiB).Pages())
	require.Equal(t, uint64(0), (4095 * Byte).Pages())
}
