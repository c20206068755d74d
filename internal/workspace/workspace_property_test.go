//go:build property

package workspace

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/afero"

	"github.com/TheAmanM/next-client/internal/config"
	"github.com/TheAmanM/next-client/internal/types"
)

const propFiles = 5

// fileOp writes or deletes one of a handful of modules.
type fileOp struct {
	file      int
	remove    bool
	directive bool
	imports   []int
}

func genFileOp() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, propFiles-1),
		gen.IntRange(0, 3),
		gen.Bool(),
		gen.SliceOfN(2, gen.IntRange(0, propFiles)),
	).Map(func(values []interface{}) fileOp {
		return fileOp{
			file:      values[0].(int),
			remove:    values[1].(int) == 0,
			directive: values[2].(bool),
			imports:   values[3].([]int),
		}
	})
}

// propName maps the last index to a blocking route file.
func propName(i int) string {
	if i == propFiles-1 {
		return "page.tsx"
	}
	return fmt.Sprintf("m%d.tsx", i)
}

func propSource(o fileOp) string {
	var b strings.Builder
	if o.directive {
		b.WriteString("'use client'\n")
	}
	for n, i := range o.imports {
		// index propFiles is never written: an import that may resolve later
		target := fmt.Sprintf("./late%d", i)
		if i < propFiles {
			target = "./" + strings.TrimSuffix(propName(i), ".tsx")
		}
		fmt.Fprintf(&b, "import X%d from '%s'\n", n, target)
	}
	return b.String()
}

func newPropWorkspace(fs afero.Fs) *Workspace {
	cfg := config.Default()
	cfg.Workspace.Root = root
	cfg.Analysis.ParseWorkers = 2
	ws, err := New(Options{Config: cfg, Fs: fs})
	if err != nil {
		panic(err)
	}
	return ws
}

func snapshot(ws *Workspace) map[string]string {
	out := make(map[string]string)
	for _, s := range ws.Statuses() {
		m, _ := ws.Module(s.Path)
		out[s.Path] = fmt.Sprintf("%s %v", s.Status, m.Imports.Sorted())
	}
	return out
}

// TestIncrementalMatchesRescan validates that applying file events one by
// one yields the same graph and statuses as scanning from scratch
func TestIncrementalMatchesRescan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9001)
	parameters.MinSuccessfulTests = 60

	properties := gopter.NewProperties(parameters)

	properties.Property("incremental updates equal a full rescan", prop.ForAll(
		func(ops []fileOp) bool {
			ctx := context.Background()
			fs := afero.NewMemMapFs()
			_ = fs.MkdirAll(root, 0o755)

			ws := newPropWorkspace(fs)
			defer ws.Close()
			if _, err := ws.Scan(ctx); err != nil {
				return false
			}

			for _, o := range ops {
				path := abs(propName(o.file))
				exists, _ := afero.Exists(fs, path)
				switch {
				case o.remove && exists:
					_ = fs.Remove(path)
					_ = ws.FileDeleted(ctx, path)
				case o.remove:
				default:
					_ = afero.WriteFile(fs, path, []byte(propSource(o)), 0o644)
					if exists {
						_ = ws.FileChanged(ctx, path)
					} else {
						_ = ws.FileCreated(ctx, path)
					}
				}
				if !ws.Consistent() {
					return false
				}
			}

			fresh := newPropWorkspace(fs)
			defer fresh.Close()
			if _, err := fresh.Scan(ctx); err != nil {
				return false
			}

			got, want := snapshot(ws), snapshot(fresh)
			if len(got) != len(want) {
				return false
			}
			for path, s := range want {
				if got[path] != s {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, genFileOp()),
	))

	properties.TestingRun(t)
}

// TestStatusOfEveryModuleIsKnownAfterScan validates the readiness contract
func TestStatusOfEveryModuleIsKnownAfterScan(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(77)
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("scanned modules are client or server", prop.ForAll(
		func(ops []fileOp) bool {
			fs := afero.NewMemMapFs()
			for _, o := range ops {
				_ = afero.WriteFile(fs, abs(propName(o.file)), []byte(propSource(o)), 0o644)
			}
			ws := newPropWorkspace(fs)
			defer ws.Close()
			if _, err := ws.Scan(context.Background()); err != nil {
				return false
			}
			for _, s := range ws.Statuses() {
				if s.Status != types.StatusClient && s.Status != types.StatusServer {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, genFileOp()),
	))

	properties.TestingRun(t)
}
