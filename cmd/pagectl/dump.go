package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mem/page"
)

var dumpOrder int

func init() {
	cmd := newDumpCmd()
	cmd.Flags().IntVar(&dumpOrder, "order", -1, "Only dump this order")
	rootCmd.AddCommand(cmd)
}

func newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the free lists",
		Long: `The dump command seeds the allocator and prints every free list, one
line per order with the first and last page of each free block.

Without --map every page of the store is inserted.

Example:
  pagectl dump --map /proc/e820
  pagectl dump --pages 4096 --last-order 10
  pagectl dump --map e820.txt --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(args)
		},
	}
}

// freeRange is one free block in JSON output.
type freeRange struct {
	First uint64 `json:"first_pfn"`
	Last  uint64 `json:"last_pfn"`
}

// freeList is one order in JSON output.
type freeList struct {
	Order  int         `json:"order"`
	Blocks []freeRange `json:"blocks"`
}

func runDump(args []string) error {
	if dumpOrder < -1 || dumpOrder > lastOrder {
		return fmt.Errorf("--order %d outside 0..%d", dumpOrder, lastOrder)
	}

	ctx, err := newContext(true)
	if err != nil {
		return err
	}
	defer ctx.Close()

	if jsonOut {
		var lists []freeList
		for order := range ctx.LastOrder() + 1 {
			if dumpOrder >= 0 && order != dumpOrder {
				continue
			}
			lists = append(lists, collectFreeList(ctx.FreeBlocks(order), order))
		}
		return printJSON(lists)
	}

	if quiet {
		return nil
	}
	if dumpOrder >= 0 {
		list := collectFreeList(ctx.FreeBlocks(dumpOrder), dumpOrder)
		printInfo("[%02d] ", list.Order)
		for _, r := range list.Blocks {
			printInfo("%x--%x ", page.PFN(r.First).Address(), page.PFN(r.Last+1).Address()-1)
		}
		printInfo("\n")
		return nil
	}
	return ctx.Dump(os.Stdout)
}

func collectFreeList(heads []page.PFN, order int) freeList {
	list := freeList{Order: order, Blocks: make([]freeRange, 0, len(heads))}
	size := page.PagesPerBlock(order)
	for _, pfn := range heads {
		list.Blocks = append(list.Blocks, freeRange{
			First: uint64(pfn),
			Last:  uint64(pfn) + size - 1,
		})
	}
	return list
}
