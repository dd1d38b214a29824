// Command pageexplorer is an interactive terminal view of the buddy page
// allocator's free lists.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/pagekit/internal/logger"
	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultPages     = 4096
	defaultLastOrder = 10
)

// options holds the parsed command line.
type options struct {
	debug     bool
	help      bool
	version   bool
	backed    bool
	pages     uint64
	lastOrder int
	mapPath   string
}

func parseArgs(args []string) (options, error) {
	opts := options{pages: defaultPages, lastOrder: defaultLastOrder}

	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		switch name {
		case "--debug", "-d":
			opts.debug = true
		case "--help", "-h":
			opts.help = true
		case "--version", "-v":
			opts.version = true
		case "--backed":
			opts.backed = true
		case "--pages":
			n, err := strconv.ParseUint(value, 0, 64)
			if !hasValue || err != nil || n == 0 {
				return opts, fmt.Errorf("bad --pages value %q", value)
			}
			opts.pages = n
		case "--last-order":
			n, err := strconv.Atoi(value)
			if !hasValue || err != nil || n < 0 {
				return opts, fmt.Errorf("bad --last-order value %q", value)
			}
			opts.lastOrder = n
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown option %q", arg)
			}
			if opts.mapPath != "" {
				return opts, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.mapPath = arg
		}
	}
	return opts, nil
}

// newContext creates the allocator and seeds it from the memory map, or
// with every page when there is none. It returns a description of the seed.
func newContext(opts options) (*pagealloc.Context, string, error) {
	ctx, err := pagealloc.New(pagealloc.Config{
		Pages:     opts.pages,
		LastOrder: opts.lastOrder,
		Backed:    opts.backed,
	})
	if err != nil {
		return nil, "", err
	}

	if opts.mapPath == "" {
		ctx.InsertPages(0, ctx.Pages())
		return ctx, "all pages", nil
	}

	f, err := os.Open(opts.mapPath)
	if err != nil {
		ctx.Close()
		return nil, "", err
	}
	defer f.Close()

	if _, err := ctx.LoadMemoryMap(f); err != nil {
		ctx.Close()
		return nil, "", err
	}
	return ctx, filepath.Base(opts.mapPath), nil
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(1)
	}

	if opts.help {
		printHelp()
		os.Exit(0)
	}

	if opts.version {
		fmt.Printf("pageexplorer %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		os.Exit(0)
	}

	// Initialize logger (must be before any logging calls)
	logOpts := logger.Options{
		Enabled: opts.debug,
		Prefix:  "pageexplorer-",
		Level:   slog.LevelDebug,
	}
	if opts.debug {
		if home, err := os.UserHomeDir(); err == nil {
			logOpts.LogDir = filepath.Join(home, ".pageexplorer", "logs")
		}
	}
	if err := logger.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}

	ctx, source, err := newContext(opts)
	if err != nil {
		logger.Error("failed to create allocator", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting pageexplorer", "source", source, "pages", opts.pages, "last_order", opts.lastOrder, "backed", opts.backed)

	m := NewModel(ctx, source)

	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			logger.Warn("error closing allocator", "error", err)
		}
	}

	logger.Info("pageexplorer exited normally")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: pageexplorer [options] [e820-map]\n")
	fmt.Fprintf(os.Stderr, "Try 'pageexplorer --help' for more information.\n")
}

func printHelp() {
	fmt.Println("pageexplorer - Interactive TUI for the buddy page allocator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  pageexplorer [options] [e820-map]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Shows the free list of every order and lets you allocate and free")
	fmt.Println("  blocks interactively. Without a memory map every page is free.")
	fmt.Println()
	fmt.Println("  Keys:")
	fmt.Println("    ↑/k, ↓/j    Select order")
	fmt.Println("    a, Enter    Allocate a block of the selected order")
	fmt.Println("    f           Free the most recent allocation")
	fmt.Println("    F           Free every allocation")
	fmt.Println("    z           Toggle zeroed allocations (needs --backed)")
	fmt.Println("    v           Verify allocator invariants")
	fmt.Println("    y           Copy the free lists to the clipboard")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --pages=N        Number of page frames (default 4096)")
	fmt.Println("  --last-order=N   Largest block order (default 10)")
	fmt.Println("  --backed         Back every page with memory so blocks can be zeroed")
	fmt.Println("  -d, --debug      Enable debug logging to ~/.pageexplorer/logs/")
	fmt.Println("  -h, --help       Show this help message")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println()
	fmt.Println("For non-interactive operations, use the 'pagectl' command instead.")
}
