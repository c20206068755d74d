// Package boundary decides which modules run on the client side of the
// "use client" boundary.
//
// A module is on the client side when it carries the directive, or when it
// is not a blocking module and some module importing it is on the client
// side. Answers are computed lazily by a breadth-first walk along importer
// edges and memoized until the graph changes.
package boundary

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/logging"
)

// Graph is the read view the engine walks.
type Graph interface {
	Has(path string) bool
	HasDirective(path string) bool
	ForEachImporter(path string, fn func(importer string) bool)
}

// Observer receives engine instrumentation.
type Observer interface {
	PropagationQuery(memoHit bool)
	StepLimitHit()
}

type nopObserver struct{}

func (nopObserver) PropagationQuery(bool) {}
func (nopObserver) StepLimitHit()         {}

// Options configure an Engine.
type Options struct {
	// BlockingNames are file base names, without extension, that never
	// inherit the client context from their importers
	BlockingNames []string
	// MaxSteps bounds the importer edges one query may examine
	MaxSteps int
	Logger   logging.Logger
	Observer Observer
}

// Engine answers boundary queries over a Graph.
type Engine struct {
	graph    Graph
	blocking map[string]struct{}
	maxSteps int
	logger   logging.Logger
	observer Observer

	mu         sync.Mutex
	memo       map[string]bool
	generation uint64
}

// NewEngine creates an engine over graph.
func NewEngine(graph Graph, opts Options) *Engine {
	e := &Engine{
		graph:    graph,
		blocking: make(map[string]struct{}, len(opts.BlockingNames)),
		maxSteps: opts.MaxSteps,
		logger:   opts.Logger,
		observer: opts.Observer,
		memo:     make(map[string]bool),
	}
	for _, name := range opts.BlockingNames {
		e.blocking[name] = struct{}{}
	}
	if e.maxSteps <= 0 {
		e.maxSteps = 1_000_000
	}
	if e.logger == nil {
		e.logger = logging.NewNopLogger()
	}
	e.logger = e.logger.WithComponent("boundary")
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	return e
}

// IsBlocking reports whether path names a reserved route file.
func (e *Engine) IsBlocking(path string) bool {
	base := filepath.Base(path)
	_, ok := e.blocking[strings.TrimSuffix(base, filepath.Ext(base))]
	return ok
}

// IsClient reports whether path is on the client side of the boundary.
// Paths that are not modules of the graph are never on the client side.
func (e *Engine) IsClient(path string) bool {
	if !e.graph.Has(path) {
		return false
	}
	if e.graph.HasDirective(path) {
		return true
	}
	if e.IsBlocking(path) {
		return false
	}

	e.mu.Lock()
	cached, hit := e.memo[path]
	generation := e.generation
	e.mu.Unlock()

	e.observer.PropagationQuery(hit)
	if hit {
		return cached
	}

	res, err := e.walk(path, true)
	if err != nil {
		e.logger.Warn(context.Background(), err, "Boundary walk aborted",
			"path", path, "max_steps", e.maxSteps)
		e.observer.StepLimitHit()
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != generation {
		// graph changed since the lookup; do not memoize
		return res.client
	}
	if res.client {
		for _, p := range res.chain[:len(res.chain)-1] {
			e.memo[p] = true
		}
	} else {
		for _, p := range res.visited {
			e.memo[p] = false
		}
	}
	return res.client
}

// Explain returns the importer chain by which path inherits the client
// context: path first, the directive-bearing module last. It is empty when
// path is not on the client side. Explain ignores the memo so the chain is
// always complete.
func (e *Engine) Explain(path string) ([]string, error) {
	if !e.graph.Has(path) {
		return nil, nil
	}
	if e.graph.HasDirective(path) {
		return []string{path}, nil
	}
	if e.IsBlocking(path) {
		return nil, nil
	}

	res, err := e.walk(path, false)
	if err != nil {
		return nil, err
	}
	if !res.client {
		return nil, nil
	}
	return res.chain, nil
}

// Invalidate drops every memoized answer. It returns how many were dropped.
func (e *Engine) Invalidate() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	dropped := len(e.memo)
	e.memo = make(map[string]bool)
	e.generation++
	return dropped
}

// MemoLen returns the number of memoized answers.
func (e *Engine) MemoLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.memo)
}

type walkResult struct {
	client bool
	// chain runs from the root to the module that decided the answer
	chain []string
	// visited holds every module reached when the answer is false
	visited []string
}

// walk explores importer edges breadth first from root, which is known to
// be a non-blocking module without the directive. A module reached twice is
// not explored again. Blocking modules are reached but never expanded.
func (e *Engine) walk(root string, useMemo bool) (walkResult, error) {
	parent := map[string]string{root: ""}
	queue := []string{root}
	steps := 0
	found := ""
	exceeded := false

	for len(queue) > 0 && found == "" && !exceeded {
		current := queue[0]
		queue = queue[1:]

		e.graph.ForEachImporter(current, func(importer string) bool {
			steps++
			if steps > e.maxSteps {
				exceeded = true
				return false
			}
			if _, seen := parent[importer]; seen {
				return true
			}
			parent[importer] = current

			if e.graph.HasDirective(importer) {
				found = importer
				return false
			}
			if e.IsBlocking(importer) {
				return true
			}
			if useMemo {
				e.mu.Lock()
				cached, hit := e.memo[importer]
				e.mu.Unlock()
				if hit {
					if cached {
						found = importer
						return false
					}
					return true
				}
			}
			queue = append(queue, importer)
			return true
		})
	}

	if exceeded {
		return walkResult{}, clienterrors.NewInternalError(clienterrors.ErrCodeStepLimit,
			fmt.Sprintf("walk exceeded %d steps", e.maxSteps), nil).WithPath(root)
	}

	if found != "" {
		var chain []string
		for p := found; p != ""; p = parent[p] {
			chain = append(chain, p)
		}
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		return walkResult{client: true, chain: chain}, nil
	}

	visited := make([]string, 0, len(parent))
	for p := range parent {
		visited = append(visited, p)
	}
	return walkResult{visited: visited}, nil
}
