package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <file>...",
	Short: "Print the boundary status of files",
	Long: `Scan the workspace and print whether each file runs on the client.

Statuses:
  client     declares "use client" or is imported by a client module
  server     any other module
  not_found  not a module of the workspace (excluded or not a source file)

Examples:
  next-client status app/page.tsx components/button.tsx
  next-client status -o yaml components/button.tsx`,
	Args: fileArgs(1),
	RunE: runStatus,
}

var statusFlags *StandardFlags

func init() {
	rootCmd.AddCommand(statusCmd)

	statusFlags = AddStandardFlags(statusCmd, "output")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := statusFlags.ValidateFlags(); err != nil {
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
	rows := make([]statusRow, 0, len(args))
	for _, path := range absArgs(args) {
		row := statusRow{Path: relPath(root, path), Status: s.ws.Status(path).String()}
		if m, ok := s.ws.Module(path); ok {
			row.Directive = m.HasDirective
			row.Imports = len(m.Imports)
			row.Importers = len(s.ws.Importers(path))
		}
		rows = append(rows, row)
	}

	if statusFlags.Quiet {
		return nil
	}

	w := cmd.OutOrStdout()
	switch strings.ToLower(statusFlags.OutputFormat) {
	case "json":
		return writeJSON(w, rows)
	case "yaml":
		return writeYAML(w, rows)
	default:
		for _, row := range rows {
			fmt.Fprintf(w, "%s: %s\n", row.Path, row.Status)
		}
		return nil
	}
}
