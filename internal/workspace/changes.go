package workspace

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TheAmanM/next-client/internal/source"
	"github.com/TheAmanM/next-client/internal/watcher"
)

// ContentChanged records live editor content for path and schedules a
// debounced re-analysis. A newer edit to the same path cancels the pending
// or running re-analysis of the older one.
func (w *Workspace) ContentChanged(path string, content []byte) {
	if w.closed.Load() {
		return
	}
	path = source.Canonical(path)
	w.reader.UpdateBuffer(path, content)
	if !w.reader.Tracked(path) {
		return
	}
	w.debouncer.Trigger(path, func(ctx context.Context) {
		if _, err := w.ApplyContent(ctx, path); err != nil && ctx.Err() == nil {
			w.logger.Debug(ctx, "Re-analysis left module unchanged", "file", path, "error", err)
		}
	})
}

// Flush runs the pending re-analysis of path now. It reports whether one was
// pending.
func (w *Workspace) Flush(path string) bool {
	return w.debouncer.Flush(source.Canonical(path))
}

// BufferClosed drops the live content of path and re-analyzes it from disk.
func (w *Workspace) BufferClosed(ctx context.Context, path string) error {
	path = source.Canonical(path)
	w.debouncer.Cancel(path)
	w.reader.CloseBuffer(path)
	if !w.reader.Tracked(path) {
		return nil
	}
	_, err := w.ApplyContent(ctx, path)
	return err
}

// ApplyContent re-extracts path from its current content and applies the
// difference to the graph. It returns the paths whose records changed. A
// parse failure is returned and leaves the previous record in place.
func (w *Workspace) ApplyContent(ctx context.Context, path string) ([]string, error) {
	if w.closed.Load() {
		return nil, errClosed()
	}
	path = source.Canonical(path)

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x := w.extract(ctx, path, false)
	changed, err := w.commit(ctx, []extraction{x})
	if err != nil {
		return nil, err
	}
	return changed, x.err
}

// FileCreated handles a new file on disk. The resolver memo is dropped, the
// file is parsed if it is a tracked module, and every module that may now
// resolve an import to it is re-extracted.
func (w *Workspace) FileCreated(ctx context.Context, path string) error {
	if w.closed.Load() {
		return errClosed()
	}
	path = source.Canonical(path)

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.fileCreated(ctx, path)
}

func (w *Workspace) fileCreated(ctx context.Context, path string) error {
	w.resolver.Purge()

	var batch []extraction
	if w.reader.Tracked(path) {
		batch = append(batch, w.extract(ctx, path, false))
	}
	for _, importer := range w.affectedByCreate(path) {
		if importer == path {
			continue
		}
		batch = append(batch, w.extract(ctx, importer, true))
	}

	_, err := w.commit(ctx, batch)
	return err
}

// affectedByCreate returns the modules whose imports may resolve differently
// once path exists: modules waiting on one of its bases, and importers of a
// lower-priority candidate the new file now shadows, including that
// candidate itself.
func (w *Workspace) affectedByCreate(path string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	add := func(p string) bool {
		if _, dup := seen[p]; !dup {
			seen[p] = struct{}{}
			out = append(out, p)
		}
		return true
	}

	for _, base := range w.probeBases(path) {
		for importer := range w.pending[base] {
			add(importer)
		}
		for _, candidate := range w.resolver.Candidates(base) {
			if candidate == path {
				continue
			}
			w.store.ForEachImporter(candidate, add)
			// a module importing its own base resolved to itself, which
			// leaves no edge or pending entry behind
			if w.store.Has(candidate) {
				add(candidate)
			}
		}
	}
	return out
}

// FileChanged handles a file modified on disk. A file with an open buffer
// is left alone; its disk content is read again once the buffer closes.
func (w *Workspace) FileChanged(ctx context.Context, path string) error {
	if w.closed.Load() {
		return errClosed()
	}
	path = source.Canonical(path)

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.fileChanged(ctx, path)
}

func (w *Workspace) fileChanged(ctx context.Context, path string) error {
	if !w.reader.Tracked(path) || w.reader.HasBuffer(path) {
		return nil
	}
	x := w.extract(ctx, path, false)
	if _, err := w.commit(ctx, []extraction{x}); err != nil {
		return err
	}
	return x.err
}

// FileDeleted handles a file removed from disk. The module and every edge
// to it are removed, the resolver memo is dropped, and the former importers
// are re-extracted since another candidate may now win their imports.
func (w *Workspace) FileDeleted(ctx context.Context, path string) error {
	if w.closed.Load() {
		return errClosed()
	}
	path = source.Canonical(path)

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.fileDeleted(ctx, path)
}

func (w *Workspace) fileDeleted(ctx context.Context, path string) error {
	w.resolver.Purge()

	// a removed directory takes every module below it along
	w.mu.RLock()
	gone := []string{path}
	prefix := path + string(filepath.Separator)
	for _, p := range w.store.Paths() {
		if strings.HasPrefix(p, prefix) {
			gone = append(gone, p)
		}
	}
	goneSet := make(map[string]struct{}, len(gone))
	for _, p := range gone {
		goneSet[p] = struct{}{}
	}
	var importers []string
	seen := make(map[string]struct{})
	for _, p := range gone {
		w.store.ForEachImporter(p, func(importer string) bool {
			if _, dead := goneSet[importer]; dead {
				return true
			}
			if _, dup := seen[importer]; !dup {
				seen[importer] = struct{}{}
				importers = append(importers, importer)
			}
			return true
		})
	}
	w.mu.RUnlock()

	batch := make([]extraction, 0, len(gone)+len(importers))
	for _, p := range gone {
		w.debouncer.Cancel(p)
		w.reader.CloseBuffer(p)
		batch = append(batch, extraction{path: p, gone: true})
	}
	sort.Strings(importers)
	for _, importer := range importers {
		batch = append(batch, w.extract(ctx, importer, true))
	}

	_, err := w.commit(ctx, batch)
	return err
}

// FilesChanged applies a batch of file system events. Batches larger than
// the bulk threshold trigger a full rescan instead.
func (w *Workspace) FilesChanged(ctx context.Context, events []watcher.ChangeEvent) error {
	if w.closed.Load() {
		return errClosed()
	}
	if len(events) == 0 {
		return nil
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if len(events) > w.cfg.Analysis.BulkThreshold {
		w.logger.Info(ctx, "Bulk change, rescanning workspace", "events", len(events))
		_, err := w.scan(ctx)
		return err
	}

	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := source.Canonical(event.Path)
		var err error
		switch event.Type {
		case watcher.EventTypeCreated:
			err = w.fileCreated(ctx, path)
		case watcher.EventTypeModified:
			err = w.fileChanged(ctx, path)
		case watcher.EventTypeDeleted:
			err = w.fileDeleted(ctx, path)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			// one bad file never stops the batch
			w.logger.Debug(ctx, "Change not applied", "file", path,
				"event", event.Type.String(), "error", err)
		}
	}
	return nil
}
