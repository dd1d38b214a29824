package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/mem/buddy"
	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

// selfTestPages is the smallest store the self-test sequence fits in.
const selfTestPages = 64

func init() {
	cmd := newSelfTestCmd()
	rootCmd.AddCommand(cmd)
}

func newSelfTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the allocator self-test",
		Long: `The selftest command drives an empty allocator through a fixed sequence
of inserts, removals, allocations and frees, printing the free lists after
every step and checking the allocator invariants along the way.

Example:
  pagectl selftest
  pagectl selftest --last-order 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfTest(args)
		},
	}
}

func runSelfTest(args []string) error {
	if mapPath != "" {
		return fmt.Errorf("selftest needs an empty allocator; drop --map")
	}

	pages := max(numPages, selfTestPages)
	printVerbose("Self-test over %d pages, last order %d\n", pages, lastOrder)

	ctx, err := pagealloc.New(pagealloc.Config{
		Pages:     pages,
		LastOrder: lastOrder,
		Backed:    backed,
	})
	if err != nil {
		return err
	}
	defer ctx.Close()

	var out io.Writer = os.Stdout
	if quiet || jsonOut {
		out = io.Discard
	}

	err = guard(func() error { return ctx.SelfTest(out) })

	if jsonOut {
		result := struct {
			Passed bool        `json:"passed"`
			Error  string      `json:"error,omitempty"`
			Stats  buddy.Stats `json:"stats"`
		}{Passed: err == nil, Stats: ctx.Stats()}
		if err != nil {
			result.Error = err.Error()
		}
		if jerr := printJSON(result); jerr != nil {
			return jerr
		}
	}
	return err
}

// guard runs fn and converts an allocator fault into an error so the CLI
// can report it instead of crashing.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*buddy.Fault)
			if !ok {
				panic(r)
			}
			err = f
		}
	}()
	return fn()
}
