package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/pagekit/mem/buddy"
	"github.com/joshuapare/pagekit/mem/page"
)

func init() {
	cmd := newStatsCmd()
	rootCmd.AddCommand(cmd)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show allocator statistics",
		Long: `The stats command seeds the allocator and shows free memory, the
free block distribution per order and the allocator counters.

Without --map every page of the store is inserted.

Example:
  pagectl stats --map /proc/e820
  pagectl stats --pages 1048576
  pagectl stats --map e820.txt --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(args)
		},
	}
	return cmd
}

// AllocStats is the stats command output.
type AllocStats struct {
	Pages      uint64      `json:"pages"`
	LastOrder  int         `json:"last_order"`
	FreePages  uint64      `json:"free_pages"`
	FreeBytes  uint64      `json:"free_bytes"`
	LargestFit int         `json:"largest_free_order"`
	Counters   buddy.Stats `json:"counters"`
}

func runStats(args []string) error {
	ctx, err := newContext(true)
	if err != nil {
		return err
	}
	defer ctx.Close()

	st := ctx.Stats()
	stats := AllocStats{
		Pages:      ctx.Pages(),
		LastOrder:  ctx.LastOrder(),
		FreePages:  st.FreePages,
		FreeBytes:  st.FreePages << page.PageBits,
		LargestFit: st.LargestFreeOrder(),
		Counters:   st,
	}

	if jsonOut {
		return printJSON(stats)
	}

	p := message.NewPrinter(language.English)

	printInfo("\nAllocator Statistics\n")
	printInfo("%s\n\n", strings.Repeat("═", 40))

	printInfo("Memory:\n")
	printInfo("  Page frames: %s\n", p.Sprintf("%d", stats.Pages))
	printInfo("  Free pages: %s (%s)\n", p.Sprintf("%d", stats.FreePages), formatBytes(stats.FreeBytes))
	if stats.Pages > 0 {
		printInfo("  Free: %.1f%%\n", float64(stats.FreePages)*100.0/float64(stats.Pages))
	}
	if stats.LargestFit >= 0 {
		printInfo("  Largest free block: order %d (%s)\n\n",
			stats.LargestFit, formatBytes(page.PagesPerBlock(stats.LargestFit)<<page.PageBits))
	} else {
		printInfo("  Largest free block: none\n\n")
	}

	printInfo("Free Blocks by Order:\n")
	for order, n := range st.FreeBlocks {
		if n == 0 {
			continue
		}
		printInfo("  [%02d] %s blocks x %s\n", order, p.Sprintf("%d", n),
			formatBytes(page.PagesPerBlock(order)<<page.PageBits))
	}
	printInfo("\n")

	printInfo("Counters:\n")
	printInfo("  Pages inserted: %s\n", p.Sprintf("%d", st.PagesInserted))
	printInfo("  Pages removed: %s\n", p.Sprintf("%d", st.PagesRemoved))
	printInfo("  Pages allocated: %s\n", p.Sprintf("%d", st.PagesAllocated))
	printInfo("  Pages freed: %s\n", p.Sprintf("%d", st.PagesFreed))
	printInfo("  Splits: %s, merges: %s\n", p.Sprintf("%d", st.Splits), p.Sprintf("%d", st.Merges))

	if st.ExpectedFreePages() != st.FreePages {
		return fmt.Errorf("free page count %d does not match counters (%d)", st.FreePages, st.ExpectedFreePages())
	}
	return nil
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
