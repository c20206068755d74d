package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheAmanM/next-client/internal/types"
	"github.com/TheAmanM/next-client/internal/watcher"
	"github.com/TheAmanM/next-client/internal/workspace"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Keep the graph up to date and print status changes",
	Long: `Scan the workspace, then watch it for file changes and apply them
incrementally. Every module whose boundary status flips is printed.

Examples:
  next-client watch                   # Watch the current directory
  next-client watch --root ./web      # Watch another workspace
  next-client watch --verbose         # Also print every file event`,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.ws.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Performing initial scan...")
	result, err := s.ws.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	fmt.Fprintf(out, "Found %d modules in %s\n", result.Modules, result.Duration.Round(time.Millisecond))

	// Create file watcher
	debounce := time.Duration(s.cfg.Analysis.DebounceMS) * time.Millisecond
	fileWatcher, err := watcher.NewFileWatcher(debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	// any file may satisfy an import, so only editor scratch files are dropped
	fileWatcher.SetDirFilter(watcher.ExcludeDirFilter(s.cfg.Workspace.ExcludeDirs))
	fileWatcher.AddFilter(watcher.NoTempFileFilter)

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		if watchVerbose {
			for _, event := range events {
				fmt.Fprintf(out, "  %s: %s\n", event.Type, relPath(s.ws.Root(), event.Path))
			}
		}
		return s.ws.FilesChanged(ctx, events)
	})

	if err := fileWatcher.AddRecursive(s.ws.Root()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.ws.Root(), err)
	}

	flips := newFlipPrinter(s.ws, out)
	events := s.ws.Subscribe()
	go flips.run(events)

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Fprintln(out, "Watching for changes... (Press Ctrl+C to stop)")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}
	fmt.Fprintln(out, "\nStopping file watcher...")

	s.ws.Unsubscribe(events)
	<-flips.done
	return nil
}

// flipPrinter prints modules whose status changed between graph events.
type flipPrinter struct {
	ws   *workspace.Workspace
	out  io.Writer
	last map[string]types.Status
	done chan struct{}
}

func newFlipPrinter(ws *workspace.Workspace, out io.Writer) *flipPrinter {
	return &flipPrinter{
		ws:   ws,
		out:  out,
		last: currentStatuses(ws),
		done: make(chan struct{}),
	}
}

func (p *flipPrinter) run(events <-chan types.GraphEvent) {
	defer close(p.done)
	for range events {
		p.print()
	}
}

func (p *flipPrinter) print() {
	next := currentStatuses(p.ws)
	root := p.ws.Root()

	changed := make([]string, 0)
	for path, status := range next {
		if p.last[path] != status {
			changed = append(changed, path)
		}
	}
	for path := range p.last {
		if _, ok := next[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)

	for _, path := range changed {
		before, after := p.last[path], next[path]
		fmt.Fprintf(p.out, "%s: %s -> %s\n", relPath(root, path), label(before), label(after))
	}
	p.last = next
}

func currentStatuses(ws *workspace.Workspace) map[string]types.Status {
	out := make(map[string]types.Status)
	for _, st := range ws.Statuses() {
		out[st.Path] = st.Status
	}
	return out
}

// label names a status, treating the zero value of a missing entry as absent.
func label(s types.Status) string {
	if s == types.StatusUnknown {
		return types.StatusNotFound.String()
	}
	return s.String()
}
