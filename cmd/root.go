// Package cmd provides the command-line interface for next-client with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --root, --log-level) - highest priority
//	2. NEXT_CLIENT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (NEXT_CLIENT_BOUNDARY_MAX_STEPS, etc.)
//	4. Configuration files (.next-client.yml) - lowest priority
//
// Environment Variables:
//
//	NEXT_CLIENT_CONFIG_FILE: Path to custom configuration file
//	NEXT_CLIENT_WORKSPACE_ROOT: Override the workspace root
//	NEXT_CLIENT_ANALYSIS_DEBOUNCE_MS: Override the edit debounce
//	And every other key following the NEXT_CLIENT_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TheAmanM/next-client/internal/config"
	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/logging"
	"github.com/TheAmanM/next-client/internal/metrics"
	"github.com/TheAmanM/next-client/internal/workspace"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "next-client",
	Short: "Find the modules of a Next.js project that run on the client",
	Long: `next-client builds the import graph of a React / Next.js project and
works out which modules execute in the client context, either because they
declare "use client" or because a client module imports them.

Route files (page, layout, template, route, default, loading, not-found)
never inherit the client context from their importers.

Quick Start:
  next-client scan                 Classify every module
  next-client status app/x.tsx     Classify specific files
  next-client explain app/x.tsx    Show why a file is a client module
  next-client highlights app/x.tsx Show the ranges an editor would decorate
  next-client watch                Keep the graph up to date and print flips`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .next-client.yml, can also use NEXT_CLIENT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("root", ".", "workspace root directory")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("workspace.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. NEXT_CLIENT_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .next-client.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("NEXT_CLIENT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".next-client")
	}

	// NEXT_CLIENT_BOUNDARY_MAX_STEPS -> boundary.max_steps
	viper.SetEnvPrefix("NEXT_CLIENT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing config file is fine; defaults apply
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// session bundles what every analysis command needs.
type session struct {
	cfg     *config.Config
	logger  logging.Logger
	ws      *workspace.Workspace
	metrics *metrics.Collector
}

// openSession loads the configuration and creates a workspace over the OS
// filesystem. The caller closes the workspace.
func openSession(collector *metrics.Collector) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	ws, err := workspace.New(workspace.Options{
		Config:  cfg,
		Fs:      afero.NewOsFs(),
		Logger:  logger,
		Metrics: collector,
	})
	if err != nil {
		if clienterrors.IsConfigError(err) {
			return nil, fmt.Errorf("check --root and the workspace settings: %w", err)
		}
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &session{cfg: cfg, logger: logger, ws: ws, metrics: collector}, nil
}
