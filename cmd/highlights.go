package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheAmanM/next-client/internal/types"
)

var highlightsCmd = &cobra.Command{
	Use:   "highlights <file>",
	Short: "Print the ranges an editor would decorate",
	Long: `Print the definition and usage ranges for a file.

Definitions are the component declarations of a module that declares
"use client". Usages are the JSX tag names whose import resolves to a
client module. Positions are 1-based line:column.

Examples:
  next-client highlights app/page.tsx
  next-client highlights -o json app/page.tsx`,
	Args: fileArgs(1),
	RunE: runHighlights,
}

var highlightsFlags *StandardFlags

func init() {
	rootCmd.AddCommand(highlightsCmd)

	highlightsFlags = AddStandardFlags(highlightsCmd, "output")
}

func runHighlights(cmd *cobra.Command, args []string) error {
	if err := highlightsFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	s, err := openSession(nil)
	if err != nil {
		return err
	}
	defer s.ws.Close()

	if err := s.scanOrFail(cmd.Context()); err != nil {
		return err
	}

	root := s.ws.Root()
	w := cmd.OutOrStdout()
	for _, path := range absArgs(args) {
		h, err := s.ws.Highlights(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("cannot highlight %s: %w", relPath(root, path), err)
		}
		h.Path = relPath(root, h.Path)

		if highlightsFlags.Quiet {
			continue
		}
		switch strings.ToLower(highlightsFlags.OutputFormat) {
		case "json":
			err = writeJSON(w, h)
		case "yaml":
			err = writeYAML(w, h)
		default:
			writeHighlightsText(w, h)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeHighlightsText(w io.Writer, h *types.Highlights) {
	fmt.Fprintf(w, "%s\n", h.Path)
	for _, r := range h.Definitions {
		fmt.Fprintf(w, "  definition %s\n", formatRange(r))
	}
	for _, r := range h.Usages {
		fmt.Fprintf(w, "  usage      %s\n", formatRange(r))
	}
	if len(h.Definitions) == 0 && len(h.Usages) == 0 {
		fmt.Fprintln(w, "  (nothing to highlight)")
	}
}

func formatRange(r types.Range) string {
	return fmt.Sprintf("%d:%d-%d:%d",
		r.Start.Line+1, r.Start.Column+1, r.End.Line+1, r.End.Column+1)
}
