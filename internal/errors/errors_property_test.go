//go:build property

package errors

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestErrorCollectorProperties validates error collection properties
func TestErrorCollectorProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("concurrent addition loses nothing", prop.ForAll(
		func(goroutineCount int, errorsPerGoroutine int) bool {
			collector := NewErrorCollector()

			var wg sync.WaitGroup
			for g := 0; g < goroutineCount; g++ {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for e := 0; e < errorsPerGoroutine; e++ {
						collector.Add(
							fmt.Sprintf("/w/%d/%d.tsx", id, e),
							NewParseError(ErrCodeParseFailed, "bad", nil),
						)
					}
				}(g)
			}
			wg.Wait()

			return collector.Count() == goroutineCount*errorsPerGoroutine
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 50),
	))

	properties.Property("GetErrors is ordered by file", prop.ForAll(
		func(names []string) bool {
			collector := NewErrorCollector()
			for _, n := range names {
				collector.Add(n, fmt.Errorf("fail %s", n))
			}
			got := collector.GetErrors()
			return sort.SliceIsSorted(got, func(i, j int) bool {
				return got[i].File < got[j].File
			})
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
