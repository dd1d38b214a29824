package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/mem/buddy"
	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

// Set by the release build via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool

	// Allocator flags
	numPages  uint64
	lastOrder int
	mapPath   string
	backed    bool
)

var rootCmd = &cobra.Command{
	Use:   "pagectl",
	Short: "Exercise and inspect the buddy page allocator",
	Long: `pagectl drives a buddy-system physical page allocator. It can run the
allocator self-test, seed the allocator from a firmware (e820) memory map,
dump the free lists and replay scripted allocation workloads.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			return nil
		}
		return logger.Init(logger.Options{
			Enabled: true,
			Writer:  os.Stderr,
			Level:   slog.LevelDebug,
		})
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("pagectl {{.Version}}\n  commit: %s\n  built: %s\n", commit, date))

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and allocator tracing")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")

	defaults := pagealloc.DefaultConfig()
	rootCmd.PersistentFlags().Uint64Var(&numPages, "pages", defaults.Pages, "Number of page frames managed")
	rootCmd.PersistentFlags().IntVar(&lastOrder, "last-order", buddy.DefaultLastOrder, "Largest block order (2^N pages)")
	rootCmd.PersistentFlags().StringVar(&mapPath, "map", "", "e820 memory map used to seed the allocator")
	rootCmd.PersistentFlags().BoolVar(&backed, "backed", false, "Back every page with real memory")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// newContext builds an allocator context from the global flags. With --map
// the allocator is seeded from the memory map; otherwise every page is
// inserted when seedAll is set and none when it is not.
func newContext(seedAll bool) (*pagealloc.Context, error) {
	ctx, err := pagealloc.New(pagealloc.Config{
		Pages:     numPages,
		LastOrder: lastOrder,
		Backed:    backed,
	})
	if err != nil {
		return nil, err
	}

	if mapPath == "" {
		if seedAll {
			ctx.InsertPages(0, ctx.Pages())
		}
		return ctx, nil
	}

	printVerbose("Loading memory map: %s\n", mapPath)
	f, err := os.Open(mapPath)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to open memory map: %w", err)
	}
	defer f.Close()

	sum, err := ctx.LoadMemoryMap(f)
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("failed to load memory map: %w", err)
	}
	printVerbose("Inserted %d pages, reserved %d pages, clipped %d pages\n",
		sum.PagesInserted, sum.PagesRemoved, sum.PagesClipped)
	return ctx, nil
}
