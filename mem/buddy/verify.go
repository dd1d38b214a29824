package buddy

import (
	"fmt"
	"slices"

	"github.com/joshuapare/pagekit/mem/page"
)

type span struct {
	start page.PFN
	end   page.PFN // exclusive
	order int
}

// Verify checks the free-list invariants and returns the first violation:
//   - alignment: every block head is divisible by 2^order
//   - ordering: heads strictly increase along each list
//   - link: list heads carry FlagFree and lists terminate
//   - disjointness: no two free blocks share a page
//   - closure: no two buddies of the same order below LastOrder are both free
//   - accounting: list lengths and the free page count match the lists
func (b *Buddy) Verify() error {
	var spans []span
	var total uint64

	for order := 0; order <= b.lastOrder; order++ {
		size := page.PFN(page.PagesPerBlock(order))
		count := 0
		prev := page.NilPFN

		for cur := b.head[order]; cur.Valid(); cur = b.next(cur) {
			count++
			if uint64(count) > b.store.Len() {
				return &InvariantError{Check: "link", Order: order, PFN: cur, Message: "free list does not terminate"}
			}
			if !b.store.ContainsRange(cur, uint64(size)) {
				return &InvariantError{Check: "link", Order: order, PFN: cur, Message: "block exceeds store"}
			}
			if !page.BlockAligned(order, cur) {
				return &InvariantError{
					Check:   "alignment",
					Order:   order,
					PFN:     cur,
					Message: fmt.Sprintf("head not divisible by %d", size),
				}
			}
			if prev.Valid() && cur <= prev {
				return &InvariantError{
					Check:   "ordering",
					Order:   order,
					PFN:     cur,
					Message: fmt.Sprintf("follows %#x", uint64(prev)),
				}
			}
			if !b.store.GetFromPFN(cur).Has(page.FlagFree) {
				return &InvariantError{Check: "link", Order: order, PFN: cur, Message: "free head missing free flag"}
			}
			if order < b.lastOrder && prev.Valid() && prev&size == 0 && prev+size == cur {
				return &InvariantError{
					Check:   "closure",
					Order:   order,
					PFN:     prev,
					Message: fmt.Sprintf("buddy %#x also free", uint64(cur)),
				}
			}

			spans = append(spans, span{start: cur, end: cur + size, order: order})
			total += uint64(size)
			prev = cur
		}

		if count != b.length[order] {
			return &InvariantError{
				Check:   "accounting",
				Order:   order,
				PFN:     page.NilPFN,
				Message: fmt.Sprintf("list holds %d blocks, length says %d", count, b.length[order]),
			}
		}
	}

	slices.SortFunc(spans, func(x, y span) int {
		switch {
		case x.start < y.start:
			return -1
		case x.start > y.start:
			return 1
		}
		return 0
	})
	for i := 1; i < len(spans); i++ {
		if spans[i].start < spans[i-1].end {
			return &InvariantError{
				Check: "disjointness",
				Order: spans[i].order,
				PFN:   spans[i].start,
				Message: fmt.Sprintf("overlaps block %#x of order %d",
					uint64(spans[i-1].start), spans[i-1].order),
			}
		}
	}

	if total != b.freePages {
		return &InvariantError{
			Check:   "accounting",
			Order:   -1,
			PFN:     page.NilPFN,
			Message: fmt.Sprintf("lists hold %d pages, free count says %d", total, b.freePages),
		}
	}
	return nil
}
