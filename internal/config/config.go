// Package config provides configuration management for next-client using
// Viper for loading from a YAML file, environment variables, and
// command-line flags.
//
// Environment overrides use the NEXT_CLIENT_ prefix, e.g.
// NEXT_CLIENT_BOUNDARY_MAX_STEPS=5000. Every value is validated on load.
package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
)

type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Boundary  BoundaryConfig  `yaml:"boundary" mapstructure:"boundary"`
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type WorkspaceConfig struct {
	Root        string   `yaml:"root" mapstructure:"root"`
	ExcludeDirs []string `yaml:"exclude_dirs" mapstructure:"exclude_dirs"`
}

type ResolverConfig struct {
	Extensions  []string `yaml:"extensions" mapstructure:"extensions"`
	AliasPrefix string   `yaml:"alias_prefix" mapstructure:"alias_prefix"`
	CacheSize   int      `yaml:"cache_size" mapstructure:"cache_size"`
}

type BoundaryConfig struct {
	Directive     string   `yaml:"directive" mapstructure:"directive"`
	BlockingNames []string `yaml:"blocking_names" mapstructure:"blocking_names"`
	MaxSteps      int      `yaml:"max_steps" mapstructure:"max_steps"`
}

type AnalysisConfig struct {
	DebounceMS    int   `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	BulkThreshold int   `yaml:"bulk_threshold" mapstructure:"bulk_threshold"`
	ParseWorkers  int   `yaml:"parse_workers" mapstructure:"parse_workers"`
	MaxFileSize   int64 `yaml:"max_file_size" mapstructure:"max_file_size"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultExcludeDirs are directory names never descended into.
var DefaultExcludeDirs = []string{
	"node_modules", ".next", ".git", "dist", "build", "out", "coverage", ".turbo", ".vercel",
}

// DefaultExtensions are the recognized source extensions in resolution order.
var DefaultExtensions = []string{".tsx", ".ts", ".jsx", ".js"}

// DefaultBlockingNames are the reserved route-file base names that stop
// upward propagation.
var DefaultBlockingNames = []string{
	"page", "layout", "template", "route", "default", "loading", "not-found",
}

const (
	DefaultAliasPrefix   = "@/"
	DefaultCacheSize     = 4096
	DefaultDirective     = "use client"
	DefaultMaxSteps      = 1_000_000
	DefaultDebounceMS    = 300
	DefaultBulkThreshold = 25
	DefaultMaxFileSize   = 2 << 20
)

// DefaultParseWorkers bounds the initial scan's parse concurrency.
func DefaultParseWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Default returns a configuration populated with every default value.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Root:        ".",
			ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
		},
		Resolver: ResolverConfig{
			Extensions:  append([]string(nil), DefaultExtensions...),
			AliasPrefix: DefaultAliasPrefix,
			CacheSize:   DefaultCacheSize,
		},
		Boundary: BoundaryConfig{
			Directive:     DefaultDirective,
			BlockingNames: append([]string(nil), DefaultBlockingNames...),
			MaxSteps:      DefaultMaxSteps,
		},
		Analysis: AnalysisConfig{
			DebounceMS:    DefaultDebounceMS,
			BulkThreshold: DefaultBulkThreshold,
			ParseWorkers:  DefaultParseWorkers(),
			MaxFileSize:   DefaultMaxFileSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default on v so unset keys and env overrides
// both resolve.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("workspace.root", d.Workspace.Root)
	v.SetDefault("workspace.exclude_dirs", d.Workspace.ExcludeDirs)
	v.SetDefault("resolver.extensions", d.Resolver.Extensions)
	v.SetDefault("resolver.alias_prefix", d.Resolver.AliasPrefix)
	v.SetDefault("resolver.cache_size", d.Resolver.CacheSize)
	v.SetDefault("boundary.directive", d.Boundary.Directive)
	v.SetDefault("boundary.blocking_names", d.Boundary.BlockingNames)
	v.SetDefault("boundary.max_steps", d.Boundary.MaxSteps)
	v.SetDefault("analysis.debounce_ms", d.Analysis.DebounceMS)
	v.SetDefault("analysis.bulk_threshold", d.Analysis.BulkThreshold)
	v.SetDefault("analysis.parse_workers", d.Analysis.ParseWorkers)
	v.SetDefault("analysis.max_file_size", d.Analysis.MaxFileSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applying defaults and validating
// the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Handle slices set via env or flags (workaround for viper slice handling)
	if v.IsSet("workspace.exclude_dirs") {
		config.Workspace.ExcludeDirs = v.GetStringSlice("workspace.exclude_dirs")
	}
	if v.IsSet("resolver.extensions") {
		config.Resolver.Extensions = v.GetStringSlice("resolver.extensions")
	}
	if v.IsSet("boundary.blocking_names") {
		config.Boundary.BlockingNames = v.GetStringSlice("boundary.blocking_names")
	}

	config.Workspace.ExcludeDirs = normalizeList(config.Workspace.ExcludeDirs)
	config.Resolver.Extensions = normalizeList(config.Resolver.Extensions)
	config.Boundary.BlockingNames = normalizeList(config.Boundary.BlockingNames)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks every section and reports the first problem as a config
// error.
func (c *Config) Validate() error {
	if err := validateConfig(c); err != nil {
		return clienterrors.NewConfigError(clienterrors.ErrCodeConfigInvalid,
			"invalid configuration: "+err.Error())
	}
	return nil
}

// RootPath returns the canonical absolute workspace root.
func (c *Config) RootPath() (string, error) {
	return filepath.Abs(c.Workspace.Root)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		// env vars arrive as one space or comma separated string
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	if err := validateWorkspaceConfig(&config.Workspace); err != nil {
		return fmt.Errorf("workspace config: %w", err)
	}
	if err := validateResolverConfig(&config.Resolver); err != nil {
		return fmt.Errorf("resolver config: %w", err)
	}
	if err := validateBoundaryConfig(&config.Boundary); err != nil {
		return fmt.Errorf("boundary config: %w", err)
	}
	if err := validateAnalysisConfig(&config.Analysis); err != nil {
		return fmt.Errorf("analysis config: %w", err)
	}
	if err := validateLogConfig(&config.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	return nil
}

func validateWorkspaceConfig(config *WorkspaceConfig) error {
	if strings.TrimSpace(config.Root) == "" {
		return fmt.Errorf("root must not be empty")
	}
	for _, dir := range config.ExcludeDirs {
		if strings.ContainsRune(dir, filepath.Separator) || strings.ContainsRune(dir, '/') {
			return fmt.Errorf("exclude_dirs entry %q must be a directory name, not a path", dir)
		}
	}
	return nil
}

func validateResolverConfig(config *ResolverConfig) error {
	if len(config.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if config.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive, got %d", config.CacheSize)
	}
	return nil
}

func validateBoundaryConfig(config *BoundaryConfig) error {
	if strings.TrimSpace(config.Directive) == "" {
		return fmt.Errorf("directive must not be empty")
	}
	if config.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", config.MaxSteps)
	}
	return nil
}

func validateAnalysisConfig(config *AnalysisConfig) error {
	if config.DebounceMS <= 0 {
		return fmt.Errorf("debounce_ms must be positive, got %d", config.DebounceMS)
	}
	if config.BulkThreshold <= 0 {
		return fmt.Errorf("bulk_threshold must be positive, got %d", config.BulkThreshold)
	}
	if config.ParseWorkers <= 0 {
		return fmt.Errorf("parse_workers must be positive, got %d", config.ParseWorkers)
	}
	if config.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", config.MaxFileSize)
	}
	return nil
}

func validateLogConfig(config *LogConfig) error {
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown level %q", config.Level)
	}
	switch config.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown format %q", config.Format)
	}
	return nil
}
