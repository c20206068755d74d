package workspace

import (
	"context"

	"github.com/TheAmanM/next-client/internal/source"
	"github.com/TheAmanM/next-client/internal/types"
)

// Status classifies path. Before the initial scan completes every path is
// unknown.
func (w *Workspace) Status(path string) types.Status {
	if !w.ready.Load() {
		return types.StatusUnknown
	}
	path = source.Canonical(path)

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.statusLocked(path)
}

func (w *Workspace) statusLocked(path string) types.Status {
	if !w.store.Has(path) {
		return types.StatusNotFound
	}
	if w.engine.IsClient(path) {
		return types.StatusClient
	}
	return types.StatusServer
}

// Statuses returns the status of every module, ordered by path.
func (w *Workspace) Statuses() []types.ModuleStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	ready := w.ready.Load()
	paths := w.store.Paths()
	out := make([]types.ModuleStatus, 0, len(paths))
	for _, path := range paths {
		m, _ := w.store.Get(path)
		status := types.StatusUnknown
		if ready {
			status = w.statusLocked(path)
		}
		out = append(out, types.ModuleStatus{
			Path:         path,
			Status:       status,
			HasDirective: m.HasDirective,
			Blocking:     w.engine.IsBlocking(path),
			Imports:      len(m.Imports),
			Importers:    w.store.ImporterCount(path),
		})
	}
	return out
}

// Highlights computes the ranges to decorate in path's current content:
// component definitions when the module carries the directive, and tag
// usages whose import resolves to a module on the client side.
func (w *Workspace) Highlights(ctx context.Context, path string) (*types.Highlights, error) {
	path = source.Canonical(path)
	result := &types.Highlights{
		Path:        path,
		Definitions: []types.Range{},
		Usages:      []types.Range{},
	}
	if !w.ready.Load() {
		return result, nil
	}

	content, err := w.reader.Read(path)
	if err != nil {
		return nil, err
	}
	outline, err := w.extractor.Outline(ctx, path, content)
	if err != nil {
		return nil, err
	}

	result.Ready = true
	if outline.HasDirective {
		for _, def := range outline.Definitions {
			result.Definitions = append(result.Definitions, def.NameRange)
		}
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, usage := range outline.Usages {
		if usage.Resolved == "" || !w.engine.IsClient(usage.Resolved) {
			continue
		}
		result.Usages = append(result.Usages, usage.Ranges...)
	}
	return result, nil
}

// Outline returns the definitions and usages of path's current content.
func (w *Workspace) Outline(ctx context.Context, path string) (*types.Outline, error) {
	path = source.Canonical(path)
	content, err := w.reader.Read(path)
	if err != nil {
		return nil, err
	}
	return w.extractor.Outline(ctx, path, content)
}

// Explain returns the importer chain that puts path on the client side,
// path first and the directive-bearing module last. It is empty when path
// is not on the client side.
func (w *Workspace) Explain(path string) ([]string, error) {
	path = source.Canonical(path)

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.engine.Explain(path)
}

// Module returns a copy of the graph record for path.
func (w *Workspace) Module(path string) (*types.Module, bool) {
	path = source.Canonical(path)

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.store.Get(path)
}

// Importers returns the modules importing path, sorted.
func (w *Workspace) Importers(path string) []string {
	path = source.Canonical(path)

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.store.Importers(path)
}

// Cycles returns the import cycles of the graph.
func (w *Workspace) Cycles() [][]string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.store.Cycles()
}

// Len returns the number of modules in the graph.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.store.Len()
}

// Consistent reports whether the importer index matches the forward edges.
func (w *Workspace) Consistent() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.store.Consistent()
}
