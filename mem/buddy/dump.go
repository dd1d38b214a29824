package buddy

import (
	"fmt"
	"io"
	"strings"

	"github.com/joshuapare/pagekit/mem/page"
)

// DumpHeader is the first line written by Dump.
const DumpHeader = "*** buddy page allocator - free list ***"

// Dump writes the free lists, one line per order. Each block is printed as
// its first and last byte address:
//
//	[03] 0--7fff 10000--17fff
func (b *Buddy) Dump(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString(DumpHeader)
	sb.WriteByte('\n')

	for order := 0; order <= b.lastOrder; order++ {
		fmt.Fprintf(&sb, "[%02d] ", order)
		span := page.PagesPerBlock(order) << page.PageBits
		for cur := b.head[order]; cur.Valid(); cur = b.next(cur) {
			base := cur.Address()
			fmt.Fprintf(&sb, "%x--%x ", base, base+span-1)
		}
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
