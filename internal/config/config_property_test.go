//go:build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigurationProperties tests validation properties
func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("positive numeric settings always validate", prop.ForAll(
		func(steps, debounce, threshold, workers int) bool {
			cfg := Default()
			cfg.Boundary.MaxSteps = steps
			cfg.Analysis.DebounceMS = debounce
			cfg.Analysis.BulkThreshold = threshold
			cfg.Analysis.ParseWorkers = workers
			return cfg.Validate() == nil
		},
		gen.IntRange(1, 10_000_000),
		gen.IntRange(1, 60_000),
		gen.IntRange(1, 10_000),
		gen.IntRange(1, 64),
	))

	properties.Property("extensions are accepted iff dotted", prop.ForAll(
		func(name string) bool {
			cfg := Default()
			cfg.Resolver.Extensions = []string{name}
			err := cfg.Validate()
			valid := strings.HasPrefix(name, ".") && len(name) > 1
			return (err == nil) == valid
		},
		gen.OneGenOf(gen.AlphaString(), gen.AlphaString().Map(func(s string) string { return "." + s })),
	))

	properties.Property("normalizeList never yields duplicates or empties", prop.ForAll(
		func(items []string) bool {
			out := normalizeList(items)
			seen := map[string]bool{}
			for _, s := range out {
				if s == "" || seen[s] {
					return false
				}
				seen[s] = true
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("a", "b", "a,b", " c ", "", ",")),
	))

	properties.TestingRun(t)
}
