package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mem/buddy"
	"github.com/joshuapare/pagekit/mem/page"
	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

var runVerify bool

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVar(&runVerify, "verify", false, "Check allocator invariants after every line")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Replay an allocation script",
		Long: `The run command replays a script against the allocator, one operation
per line. Numbers may be decimal or 0x-prefixed hex; '#' starts a comment.

  insert <pfn> <count>    donate pages
  remove <pfn> <count>    withdraw pages
  alloc <order> [zero]    allocate a block
  free <pfn> <order>      free a block
  free last               free the most recent allocation
  dump                    print the free lists
  verify                  check the allocator invariants

The allocator starts empty unless --map is given. Use "-" to read the
script from stdin.

Example:
  pagectl run workload.txt
  pagectl run --map e820.txt --verify workload.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptFile(args)
		},
	}
}

func runScriptFile(args []string) error {
	path := args[0]

	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open script: %w", err)
		}
		defer f.Close()
		r = f
	}

	ctx, err := newContext(false)
	if err != nil {
		return err
	}
	defer ctx.Close()

	var out io.Writer = os.Stdout
	if quiet {
		out = io.Discard
	}
	return runScript(ctx, r, out, runVerify)
}

// scriptRunner holds the state of one script replay.
type scriptRunner struct {
	ctx    *pagealloc.Context
	out    io.Writer
	allocs []pagealloc.Block // outstanding allocations, most recent last
}

// runScript executes every line of r against ctx. A fault or malformed line
// stops the replay and is returned with its line number.
func runScript(ctx *pagealloc.Context, r io.Reader, out io.Writer, verifyEach bool) error {
	sr := &scriptRunner{ctx: ctx, out: out}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		printVerbose("%d: %s\n", lineNo, strings.Join(fields, " "))
		if err := guard(func() error { return sr.exec(fields) }); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if verifyEach {
			if err := ctx.Verify(); err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	fmt.Fprintf(out, "%d outstanding allocations, %d free pages\n", len(sr.allocs), ctx.Stats().FreePages)
	return nil
}

func (sr *scriptRunner) exec(fields []string) error {
	op, args := fields[0], fields[1:]

	switch op {
	case "insert", "remove":
		if len(args) != 2 {
			return fmt.Errorf("%s: want <pfn> <count>", op)
		}
		pfn, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		count, err := parseNumber(args[1])
		if err != nil {
			return err
		}
		if op == "insert" {
			sr.ctx.InsertPages(page.PFN(pfn), count)
		} else {
			sr.ctx.RemovePages(page.PFN(pfn), count)
		}
		return nil

	case "alloc":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("alloc: want <order> [zero]")
		}
		order, err := parseOrder(args[0])
		if err != nil {
			return err
		}
		flags := buddy.FlagNone
		if len(args) == 2 {
			if args[1] != "zero" {
				return fmt.Errorf("alloc: unknown flag %q", args[1])
			}
			flags |= buddy.FlagZero
		}
		blk, err := sr.ctx.AllocatePages(order, flags)
		if errors.Is(err, buddy.ErrOutOfMemory) {
			fmt.Fprintf(sr.out, "alloc order %d: out of memory\n", order)
			return nil
		}
		if err != nil {
			return err
		}
		sr.allocs = append(sr.allocs, blk)
		fmt.Fprintf(sr.out, "alloc order %d: pfn=%x base=%x\n", order, uint64(blk.PFN), blk.Address())
		return nil

	case "free":
		if len(args) == 1 && args[0] == "last" {
			if len(sr.allocs) == 0 {
				return errors.New("free last: no outstanding allocation")
			}
			blk := sr.allocs[len(sr.allocs)-1]
			sr.allocs = sr.allocs[:len(sr.allocs)-1]
			sr.ctx.FreePages(blk)
			return nil
		}
		if len(args) != 2 {
			return errors.New("free: want <pfn> <order> or last")
		}
		pfn, err := parseNumber(args[0])
		if err != nil {
			return err
		}
		order, err := parseOrder(args[1])
		if err != nil {
			return err
		}
		sr.ctx.FreePFN(page.PFN(pfn), order)
		sr.forget(page.PFN(pfn), order)
		return nil

	case "dump":
		return sr.ctx.Dump(sr.out)

	case "verify":
		if err := sr.ctx.Verify(); err != nil {
			return err
		}
		fmt.Fprintln(sr.out, "verify: ok")
		return nil
	}

	return fmt.Errorf("unknown operation %q", op)
}

// forget drops a freed block from the outstanding list.
func (sr *scriptRunner) forget(pfn page.PFN, order int) {
	for i, blk := range sr.allocs {
		if blk.PFN == pfn && blk.Order == order {
			sr.allocs = append(sr.allocs[:i], sr.allocs[i+1:]...)
			return
		}
	}
}

func parseNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return n, nil
}

func parseOrder(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad order %q", s)
	}
	return n, nil
}
