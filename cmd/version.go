package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TheAmanM/next-client/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for next-client including the version,
git commit, build time, Go version and target platform.

Examples:
  next-client version              # Show version
  next-client version --short      # Show the version string only
  next-client version --format json`,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.GetBuildInfo()
	w := cmd.OutOrStdout()

	switch versionFormat {
	case "json":
		return writeJSON(w, info)
	case "yaml":
		return writeYAML(w, info)
	case "text":
		if versionShort {
			fmt.Fprintln(w, info.Short())
			return nil
		}
		fmt.Fprintf(w, "next-client %s\n", info.Short())
		fmt.Fprintln(w, info.Detailed())
		if info.IsRelease() {
			fmt.Fprintln(w, "Build type: release")
		} else {
			fmt.Fprintln(w, "Build type: development")
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}
}
