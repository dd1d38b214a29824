// Package memmap reads boot-time physical memory maps and seeds a page
// allocator from them.
//
// The accepted format is the e820 table as printed by firmware and kernels,
// one region per line, with inclusive end addresses:
//
//	BIOS-e820: [mem 0x0000000000000000-0x000000000009fbff] usable
//	BIOS-e820: [mem 0x000000000009fc00-0x000000000009ffff] reserved
//	0x100000-0x7fffffff usable
//
// Blank lines and lines starting with '#' are ignored. Input is UTF-8 unless it
// starts with a UTF-16 byte order mark, as maps saved by Windows tools do.
package memmap

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/mem/page"
)

// Region types as printed in e820 tables.
const (
	TypeUsable   = "usable"
	TypeReserved = "reserved"
	TypeACPIData = "ACPI data"
	TypeACPINVS  = "ACPI NVS"
	TypeUnusable = "unusable"
)

var lineRE = regexp.MustCompile(
	`^(?:BIOS-e820:\s*)?\[?\s*(?:mem\s+)?(0[xX][0-9a-fA-F]+)\s*-\s*(0[xX][0-9a-fA-F]+)\s*\]?\s+(\S.*?)\s*$`,
)

// Region is one line of the memory map.
type Region struct {
	Start uint64 // first byte
	End   uint64 // last byte (inclusive)
	Type  string
}

// Usable reports whether the region may be handed to the page allocator.
// Every type other than "usable" is treated as reserved.
func (r Region) Usable() bool {
	return strings.EqualFold(r.Type, TypeUsable)
}

// Size returns the region length in bytes.
func (r Region) Size() uint64 {
	return r.End - r.Start + 1
}

func (r Region) String() string {
	return fmt.Sprintf("[mem %#018x-%#018x] %s", r.Start, r.End, r.Type)
}

// innerPages returns the frames wholly inside the region: [start, end).
func (r Region) innerPages() (page.PFN, page.PFN) {
	start := (r.Start + page.PageSize - 1) >> page.PageBits
	if r.Start > ^uint64(0)-(page.PageSize-1) {
		start = ^uint64(0) >> page.PageBits
	}
	end := r.End >> page.PageBits
	if r.End&(page.PageSize-1) == page.PageSize-1 {
		end++
	}
	return page.PFN(start), page.PFN(end)
}

// outerPages returns the frames touched by the region: [start, end).
func (r Region) outerPages() (page.PFN, page.PFN) {
	return page.PFN(r.Start >> page.PageBits), page.PFN(r.End>>page.PageBits) + 1
}

// ParseError reports a malformed memory map line.
type ParseError struct {
	Line int
	Text string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("memmap: line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// Map is a parsed memory map in input order.
type Map struct {
	Regions []Region
}

// Parse reads a memory map.
func Parse(r io.Reader) (Map, error) {
	var m Map
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	sc := bufio.NewScanner(transform.NewReader(r, decoder))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		match := lineRE.FindStringSubmatch(text)
		if match == nil {
			return Map{}, &ParseError{Line: lineNo, Text: text, Msg: "unrecognised region"}
		}
		start, err := strconv.ParseUint(match[1][2:], 16, 64)
		if err != nil {
			return Map{}, &ParseError{Line: lineNo, Text: text, Msg: "bad start address"}
		}
		end, err := strconv.ParseUint(match[2][2:], 16, 64)
		if err != nil {
			return Map{}, &ParseError{Line: lineNo, Text: text, Msg: "bad end address"}
		}
		if end < start {
			return Map{}, &ParseError{Line: lineNo, Text: text, Msg: "end before start"}
		}

		m.Regions = append(m.Regions, Region{Start: start, End: end, Type: match[3]})
	}
	if err := sc.Err(); err != nil {
		return Map{}, fmt.Errorf("memmap: read: %w", err)
	}
	return m, nil
}

// MaxPFN returns one past the highest frame touched by any region.
func (m Map) MaxPFN() page.PFN {
	var maxPFN page.PFN
	for _, r := range m.Regions {
		_, end := r.outerPages()
		maxPFN = max(maxPFN, end)
	}
	return maxPFN
}

// UsableBytes returns the total size of usable regions.
func (m Map) UsableBytes() uint64 {
	var n uint64
	for _, r := range m.Regions {
		if r.Usable() {
			n += r.Size()
		}
	}
	return n
}

// Seeder is the part of a page allocator the importer drives.
type Seeder interface {
	InsertPages(start page.PFN, count uint64)
	RemovePages(start page.PFN, count uint64)
}

// Summary reports what Apply did.
type Summary struct {
	UsableRegions   int
	ReservedRegions int
	PagesInserted   uint64
	PagesRemoved    uint64 // pages covered by reserved regions, whether or not they were free
	PagesClipped    uint64 // usable pages beyond maxPages
}

type pfnRange struct {
	start, end page.PFN // [start, end)
}

// Apply seeds s from the map. Usable regions are shrunk to whole pages,
// merged where they overlap and inserted; then every other region is grown to
// whole pages and removed, so reserved memory wins over usable memory that
// shares a page. Frames at or beyond maxPages are ignored.
func (m Map) Apply(s Seeder, maxPages uint64) Summary {
	var sum Summary
	limit := page.PFN(maxPages)

	var usable []pfnRange
	for _, r := range m.Regions {
		if !r.Usable() {
			continue
		}
		sum.UsableRegions++
		start, end := r.innerPages()
		if end > limit {
			if start < limit {
				sum.PagesClipped += uint64(end - limit)
			} else if end > start {
				sum.PagesClipped += uint64(end - start)
			}
			end = limit
		}
		if start < end {
			usable = append(usable, pfnRange{start: start, end: end})
		}
	}

	for _, rng := range mergeRanges(usable) {
		count := uint64(rng.end - rng.start)
		logger.Debug("memmap: insert", "pfn", uint64(rng.start), "count", count)
		s.InsertPages(rng.start, count)
		sum.PagesInserted += count
	}

	for _, r := range m.Regions {
		if r.Usable() {
			continue
		}
		sum.ReservedRegions++
		start, end := r.outerPages()
		end = min(end, limit)
		if start >= end {
			continue
		}
		count := uint64(end - start)
		logger.Debug("memmap: remove", "pfn", uint64(start), "count", count, "type", r.Type)
		s.RemovePages(start, count)
		sum.PagesRemoved += count
	}

	return sum
}

// mergeRanges sorts ranges and unions overlapping or touching ones.
func mergeRanges(ranges []pfnRange) []pfnRange {
	slices.SortFunc(ranges, func(a, b pfnRange) int {
		switch {
		case a.start < b.start:
			return -1
		case a.start > b.start:
			return 1
		}
		return 0
	})

	var out []pfnRange
	for _, r := range ranges {
		if n := len(out); n > 0 && r.start <= out[n-1].end {
			out[n-1].end = max(out[n-1].end, r.end)
			continue
		}
		out = append(out, r)
	}
	return out
}
