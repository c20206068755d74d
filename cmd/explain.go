package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var explainCmd = &cobra.Command{
	Use:   "explain <file>",
	Short: "Show why a file runs on the client",
	Long: `Print the shortest importer chain that puts a file on the client side,
from the file itself to the module declaring "use client".

Examples:
  next-client explain components/icon.tsx
  next-client explain -o json components/icon.tsx`,
	Args: fileArgs(1),
	RunE: runExplain,
}

var explainFlags *StandardFlags

func init() {
	rootCmd.AddCommand(explainCmd)

	explainFlags = AddStandardFlags(explainCmd, "output")
}

type explainOutput struct {
	Path   string   `json:"path" yaml:"path"`
	Status string   `json:"status" yaml:"status"`
	Chain  []string `json:"chain" yaml:"chain"`
}

func runExplain(cmd *cobra.Command, args []string) error {
	if err := explainFlags.ValidateFlags(); err != nil {
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
		chain, err := s.ws.Explain(path)
		if err != nil {
			return fmt.Errorf("cannot explain %s: %w", relPath(root, path), err)
		}

		out := explainOutput{
			Path:   relPath(root, path),
			Status: s.ws.Status(path).String(),
			Chain:  make([]string, len(chain)),
		}
		for i, p := range chain {
			out.Chain[i] = relPath(root, p)
		}

		if explainFlags.Quiet {
			continue
		}
		if strings.EqualFold(explainFlags.OutputFormat, "json") {
			if err := writeJSON(w, out); err != nil {
				return err
			}
			continue
		}
		if strings.EqualFold(explainFlags.OutputFormat, "yaml") {
			if err := writeYAML(w, out); err != nil {
				return err
			}
			continue
		}

		switch {
		case len(out.Chain) == 0:
			fmt.Fprintf(w, "%s: %s\n", out.Path, out.Status)
		case len(out.Chain) == 1:
			fmt.Fprintf(w, "%s: client (declares the directive)\n", out.Path)
		default:
			fmt.Fprintf(w, "%s: client via %s\n", out.Path, strings.Join(out.Chain, " <- "))
		}
	}
	return nil
}
