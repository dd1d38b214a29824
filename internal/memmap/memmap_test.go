package memmap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/pagekit/mem/page"
)

const qemuMap = `
# QEMU q35, 128MB
BIOS-e820: [mem 0x0000000000000000-0x000000000009fbff] usable
BIOS-e820: [mem 0x000000000009fc00-0x000000000009ffff] reserved
BIOS-e820: [mem 0x00000000000f0000-0x00000000000fffff] reserved
BIOS-e820: [mem 0x0000000000100000-0x0000000007fdffff] usable
BIOS-e820: [mem 0x0000000007fe0000-0x0000000007ffffff] reserved
BIOS-e820: [mem 0x00000000feffc000-0x00000000feffffff] reserved
BIOS-e820: [mem 0x00000000fffc0000-0x00000000ffffffff] reserved
`

type call struct {
	insert bool
	start  page.PFN
	count  uint64
}

// recordingSeeder records the calls Apply makes.
type recordingSeeder struct {
	calls []call
}

func (r *recordingSeeder) InsertPages(start page.PFN, count uint64) {
	r.calls = append(r.calls, call{insert: true, start: start, count: count})
}

func (r *recordingSeeder) RemovePages(start page.PFN, count uint64) {
	r.calls = append(r.calls, call{insert: false, start: start, count: count})
}

func TestParse_E820(t *testing.T) {
	m, err := Parse(strings.NewReader(qemuMap))
	require.NoError(t, err)
	require.Len(t, m.Regions, 7)

	require.Equal(t, Region{Start: 0, End: 0x9fbff, Type: TypeUsable}, m.Regions[0])
	require.Equal(t, Region{Start: 0x9fc00, End: 0x9ffff, Type: TypeReserved}, m.Regions[1])
	require.True(t, m.Regions[3].Usable())
	require.False(t, m.Regions[4].Usable())

	require.Equal(t, page.PFN(0x100000), m.MaxPFN())
	require.Equal(t, uint64(0x9fc00+0x7ee0000), m.UsableBytes())
}

func TestParse_ByteOrderMarks(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(qemuMap)
	require.NoError(t, err)

	m, err := Parse(strings.NewReader(utf16))
	require.NoError(t, err)
	require.Len(t, m.Regions, 7)
	require.Equal(t, Region{Start: 0x100000, End: 0x7fdffff, Type: TypeUsable}, m.Regions[3])

	m, err = Parse(strings.NewReader("\ufeff0x0-0xfff usable\n"))
	require.NoError(t, err)
	require.Equal(t, []Region{{Start: 0, End: 0xfff, Type: TypeUsable}}, m.Regions)
}

func TestParse_ShortFormAndMultiWordTypes(t *testing.T) {
	input := "0x100000-0x1fffff usable\n" +
		"  0x200000 - 0x200fff   ACPI data  \n" +
		"[mem 0x201000-0x201fff] ACPI NVS\n"

	m, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []Region{
		{Start: 0x100000, End: 0x1fffff, Type: TypeUsable},
		{Start: 0x200000, End: 0x200fff, Type: TypeACPIData},
		{Start: 0x201000, End: 0x201fff, Type: TypeACPINVS},
	}, m.Regions)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
		msg   string
	}{
		{"garbage", "usable memory here", 1, "unrecognised region"},
		{"missing type", "0x0-0xfff", 1, "unrecognised region"},
		{"reversed", "# header\n0x2000-0x1000 usable", 2, "end before start"},
		{"overflow", "0x0-0x1ffffffffffffffff usable", 1, "bad end address"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %v", err)
			require.Equal(t, tc.line, pe.Line)
			require.Equal(t, tc.msg, pe.Msg)
		})
	}
}

func TestApply_RoundsAndOrders(t *testing.T) {
	m, err := Parse(strings.NewReader(qemuMap))
	require.NoError(t, err)

	var s recordingSeeder
	sum := m.Apply(&s, 0x8000) // 128MB of frames

	require.Equal(t, []call{
		// 0-0x9fbff shrinks to frames 0-0x9e; 0x9f is partially usable
		{insert: true, start: 0, count: 0x9f},
		{insert: true, start: 0x100, count: 0x7ee0},
		{insert: false, start: 0x9f, count: 1},
		{insert: false, start: 0xf0, count: 0x10},
		{insert: false, start: 0x7fe0, count: 0x20},
		// firmware regions below 4GB are beyond the store and dropped
	}, s.calls)

	require.Equal(t, 2, sum.UsableRegions)
	require.Equal(t, 5, sum.ReservedRegions)
	require.Equal(t, uint64(0x9f+0x7ee0), sum.PagesInserted)
	require.Equal(t, uint64(1+0x10+0x20), sum.PagesRemoved)
	require.Zero(t, sum.PagesClipped)
}

func TestApply_ClipsToStore(t *testing.T) {
	m := Map{Regions: []Region{
		{Start: 0, End: 0xffff, Type: TypeUsable},        // frames 0-15
		{Start: 0x20000, End: 0x2ffff, Type: TypeUsable}, // frames 32-47
	}}

	var s recordingSeeder
	sum := m.Apply(&s, 8)
	require.Equal(t, []call{{insert: true, start: 0, count: 8}}, s.calls)
	require.Equal(t, uint64(8+16), sum.PagesClipped)
}

func TestApply_MergesOverlappingUsable(t *testing.T) {
	m := Map{Regions: []Region{
		{Start: 0x4000, End: 0x7fff, Type: TypeUsable},
		{Start: 0x0, End: 0x4fff, Type: TypeUsable},
		{Start: 0x8000, End: 0x8fff, Type: "USABLE"},
	}}

	var s recordingSeeder
	m.Apply(&s, 64)
	require.Equal(t, []call{{insert: true, start: 0, count: 9}}, s.calls)
}

func TestApply_SubPageUsableIgnored(t *testing.T) {
	m := Map{Regions: []Region{{Start: 0x1800, End: 0x27ff, Type: TypeUsable}}}

	var s recordingSeeder
	sum := m.Apply(&s, 64)
	require.Empty(t, s.calls)
	require.Zero(t, sum.PagesInserted)
}

func TestRegion_String(t *testing.T) {
	r := Region{Start: 0x100000, End: 0x1fffff, Type: TypeUsable}
	require.Equal(t, "[mem 0x0000000000100000-0x00000000001fffff] usable", r.String())
	require.Equal(t, uint64(0x100000), r.Size())
}
