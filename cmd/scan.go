package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/metrics"
	"github.com/TheAmanM/next-client/internal/types"
)

var scanCmd = &cobra.Command{
	Use:     "scan",
	Aliases: []string{"s"},
	Short:   "Classify every module of the workspace",
	Long: `Scan the workspace, build the import graph and print the boundary status
of every module.

Examples:
  next-client scan                     # Table of every module
  next-client scan --client-only       # Only client modules
  next-client scan -o json             # Output as JSON
  next-client scan --cycles            # Also list import cycles
  next-client scan --stats             # Print engine counters to stderr`,
	RunE: runScan,
}

var (
	scanFlags  *StandardFlags
	scanCycles bool
	scanStats  bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanFlags = AddStandardFlags(scanCmd, "output", "filter")

	scanCmd.Flags().BoolVar(&scanCycles, "cycles", false, "List import cycles")
	scanCmd.Flags().BoolVar(&scanStats, "stats", false, "Print engine counters after the scan")

	AddFlagValidation(scanCmd, "output", func(format string) error {
		return ValidateFormat(format, validFormats)
	})
}

// statusRow is the printable form of one module status.
type statusRow struct {
	Path      string `json:"path" yaml:"path"`
	Status    string `json:"status" yaml:"status"`
	Directive bool   `json:"directive" yaml:"directive"`
	Blocking  bool   `json:"blocking" yaml:"blocking"`
	Imports   int    `json:"imports" yaml:"imports"`
	Importers int    `json:"importers" yaml:"importers"`
}

type scanOutput struct {
	Root    string      `json:"root" yaml:"root"`
	Modules []statusRow `json:"modules" yaml:"modules"`
	Cycles  [][]string  `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := scanFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	reg := prometheus.NewRegistry()
	collector, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	s, err := openSession(collector)
	if err != nil {
		return err
	}
	defer s.ws.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.ws.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanFlags.Verbose {
		for _, fe := range result.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", fe.Err)
		}
	}

	root := s.ws.Root()
	out := scanOutput{Root: root}
	for _, st := range s.ws.Statuses() {
		if scanFlags.ClientOnly && st.Status != types.StatusClient {
			continue
		}
		out.Modules = append(out.Modules, toRow(root, st))
	}
	if scanCycles {
		for _, cycle := range s.ws.Cycles() {
			rel := make([]string, len(cycle))
			for i, p := range cycle {
				rel[i] = relPath(root, p)
			}
			out.Cycles = append(out.Cycles, rel)
		}
	}

	if !scanFlags.Quiet {
		if err := writeScan(cmd.OutOrStdout(), scanFlags.OutputFormat, out); err != nil {
			return err
		}
	}

	if scanStats {
		if err := writeStats(cmd.ErrOrStderr(), reg); err != nil {
			return err
		}
		writeErrorCounts(cmd.ErrOrStderr(), result.ErrorsByType)
	}

	return nil
}

func toRow(root string, st types.ModuleStatus) statusRow {
	return statusRow{
		Path:      relPath(root, st.Path),
		Status:    st.Status.String(),
		Directive: st.HasDirective,
		Blocking:  st.Blocking,
		Imports:   st.Imports,
		Importers: st.Importers,
	}
}

func writeScan(w io.Writer, format string, out scanOutput) error {
	switch strings.ToLower(format) {
	case "json":
		return writeJSON(w, out)
	case "yaml":
		return writeYAML(w, out)
	case "table", "":
		return writeScanTable(w, out)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeScanTable(w io.Writer, out scanOutput) error {
	if len(out.Modules) == 0 {
		fmt.Fprintln(w, "No modules found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tSTATUS\tDIRECTIVE\tBLOCKING\tIMPORTS\tIMPORTERS")
	fmt.Fprintln(tw, "------\t------\t---------\t--------\t-------\t---------")

	clients := 0
	for _, row := range out.Modules {
		if row.Status == types.StatusClient.String() {
			clients++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			row.Path, row.Status, yesNo(row.Directive), yesNo(row.Blocking), row.Imports, row.Importers)
	}

	fmt.Fprintf(tw, "\nTotal: %d modules, %d client\n", len(out.Modules), clients)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(out.Cycles) > 0 {
		fmt.Fprintf(w, "\nCycles (%d):\n", len(out.Cycles))
		for _, cycle := range out.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(cycle, " -> "))
		}
	}
	return nil
}

// writeStats prints every counter and gauge of reg, one per line.
func writeStats(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				fmt.Fprintf(w, "%s %g\n", name, m.GetGauge().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(w, "%s_sum %g\n", name, m.GetHistogram().GetSampleSum())
			}
		}
	}
	return nil
}

// writeErrorCounts prints the scan failures per error type in the same
// line format as writeStats.
func writeErrorCounts(w io.Writer, counts map[clienterrors.ErrorType]int) {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		fmt.Fprintf(w, "scan_errors{type=%s} %d\n", kind, counts[clienterrors.ErrorType(kind)])
	}
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

// absArgs canonicalizes positional file arguments.
func absArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if abs, err := filepath.Abs(arg); err == nil {
			out[i] = abs
		} else {
			out[i] = arg
		}
	}
	return out
}

// scanOrFail runs the initial scan for single-file commands.
func (s *session) scanOrFail(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.ws.Scan(ctx); err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(v)
}
