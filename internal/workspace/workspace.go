// Package workspace coordinates the analysis of one project tree.
//
// A Workspace owns the module graph and everything derived from it. Writers
// (scans, file events, debounced edits) are serialized; queries take a read
// lock and always observe a consistent graph. Parsing happens outside the
// graph lock so a rescan never blocks queries on modules the previous scan
// already knows about.
package workspace

import (
	"context"
	"hash/crc32"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spf13/afero"

	"github.com/TheAmanM/next-client/internal/boundary"
	"github.com/TheAmanM/next-client/internal/config"
	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/graph"
	"github.com/TheAmanM/next-client/internal/logging"
	"github.com/TheAmanM/next-client/internal/metrics"
	"github.com/TheAmanM/next-client/internal/parser"
	"github.com/TheAmanM/next-client/internal/resolver"
	"github.com/TheAmanM/next-client/internal/source"
	"github.com/TheAmanM/next-client/internal/types"
	"github.com/TheAmanM/next-client/internal/watcher"
)

// Options configure a Workspace.
type Options struct {
	Config *config.Config
	// Fs defaults to the OS filesystem
	Fs     afero.Fs
	Logger logging.Logger
	// Metrics is optional
	Metrics *metrics.Collector
}

// ScanResult summarizes a full scan.
type ScanResult struct {
	Files    int
	Modules  int
	Errors   []clienterrors.FileError
	// ErrorsByType counts Errors per error type
	ErrorsByType map[clienterrors.ErrorType]int
	Duration     time.Duration
}

// Workspace is the incremental update coordinator.
type Workspace struct {
	cfg       *config.Config
	reader    *source.Reader
	resolver  *resolver.Resolver
	extractor *parser.Extractor
	engine    *boundary.Engine
	notifier  *graph.Notifier
	debouncer *watcher.KeyedDebouncer
	metrics   *metrics.Collector
	logger    logging.Logger

	// writeMu serializes mutations end to end
	writeMu sync.Mutex

	// mu guards the fields below; queries hold it for reading
	mu         sync.RWMutex
	store      *graph.Store
	hashes     map[string]uint32
	pending    map[string]map[string]struct{}
	generation uint64

	ready  atomic.Bool
	closed atomic.Bool
	cancel context.CancelFunc
}

// New creates a workspace. Nothing is read until Scan.
func New(opts Options) (*Workspace, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := cfg.RootPath()
	if err != nil {
		return nil, clienterrors.NewConfigError(clienterrors.ErrCodeConfigInvalid,
			"cannot resolve workspace root: "+err.Error())
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.WithComponent("workspace")

	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	w := &Workspace{
		cfg:     cfg,
		metrics: opts.Metrics,
		logger:  logger,
		store:   graph.NewStore(),
		hashes:  make(map[string]uint32),
		pending: make(map[string]map[string]struct{}),
	}

	w.reader = source.NewReader(fsys, root, source.Options{
		Extensions:  cfg.Resolver.Extensions,
		ExcludeDirs: cfg.Workspace.ExcludeDirs,
		MaxFileSize: cfg.Analysis.MaxFileSize,
	})

	resolverOpts := resolver.Options{
		Extensions:  cfg.Resolver.Extensions,
		AliasPrefix: cfg.Resolver.AliasPrefix,
		CacheSize:   cfg.Resolver.CacheSize,
	}
	if w.metrics != nil {
		resolverOpts.OnLookup = w.metrics.ResolverLookup
	}
	w.resolver, err = resolver.New(fsys, root, resolverOpts)
	if err != nil {
		return nil, clienterrors.NewInternalError(clienterrors.ErrCodeInternalError,
			"creating resolver", err)
	}

	w.extractor = parser.NewExtractor(w.resolver, cfg.Boundary.Directive)

	engineOpts := boundary.Options{
		BlockingNames: cfg.Boundary.BlockingNames,
		MaxSteps:      cfg.Boundary.MaxSteps,
		Logger:        logger,
	}
	if w.metrics != nil {
		engineOpts.Observer = w.metrics
	}
	w.engine = boundary.NewEngine(w.store, engineOpts)

	w.notifier = graph.NewNotifier(0)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.debouncer = watcher.NewKeyedDebouncer(ctx,
		time.Duration(cfg.Analysis.DebounceMS)*time.Millisecond)

	return w, nil
}

// Root returns the canonical workspace root.
func (w *Workspace) Root() string {
	return w.reader.Root()
}

// Ready reports whether the initial scan has completed.
func (w *Workspace) Ready() bool {
	return w.ready.Load()
}

// Tracked reports whether path is a module this workspace analyzes.
func (w *Workspace) Tracked(path string) bool {
	return w.reader.Tracked(path)
}

// Scan enumerates the workspace, parses every module in parallel and
// replaces the graph in one step. Modules that fail to parse keep the record
// from the previous scan, if any. Queries keep answering from the previous
// graph until the replacement is applied.
func (w *Workspace) Scan(ctx context.Context) (*ScanResult, error) {
	if w.closed.Load() {
		return nil, errClosed()
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	return w.scan(ctx)
}

func (w *Workspace) scan(ctx context.Context) (*ScanResult, error) {
	perf := logging.StartOperation(w.logger, "scan")

	files, err := w.reader.Enumerate(ctx)
	if err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	w.resolver.Purge()

	collector := clienterrors.NewErrorCollector()
	modules := make([]*types.Module, len(files))
	sums := make([]uint32, len(files))
	failed := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Analysis.ParseWorkers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := w.reader.Read(path)
			if err != nil {
				// files deleted mid-scan are skipped silently
				if !clienterrors.IsNotFound(err) {
					collector.Add(path, err)
				}
				return nil
			}
			module, err := w.extractor.Extract(gctx, path, content)
			w.parseCompleted(err == nil)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				collector.Add(path, err)
				failed[i] = true
				return nil
			}
			modules[i] = module
			sums[i] = crc32.ChecksumIEEE(content)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		perf.EndWithError(ctx, err)
		return nil, err
	}

	w.mu.Lock()
	next := make([]*types.Module, 0, len(files))
	hashes := make(map[string]uint32, len(files))
	for i, path := range files {
		switch {
		case modules[i] != nil:
			next = append(next, modules[i])
			hashes[path] = sums[i]
		case failed[i]:
			if prev, ok := w.store.Get(path); ok {
				next = append(next, prev)
				hashes[path] = w.hashes[path]
			}
		}
	}
	w.store.Rebuild(next)
	w.hashes = hashes
	w.pending = make(map[string]map[string]struct{})
	for _, m := range next {
		w.addPending(m.Path, m.Missing)
	}
	w.generation++
	generation := w.generation
	dropped := w.engine.Invalidate()
	w.ready.Store(true)
	count := w.store.Len()
	w.mu.Unlock()

	duration := perf.Elapsed()
	if w.metrics != nil {
		w.metrics.Rebuilt(count, duration)
		if dropped > 0 {
			w.metrics.MemoDropped()
		}
	}

	var byType map[clienterrors.ErrorType]int
	if collector.HasErrors() {
		byType = collector.CountByType()
		for _, fe := range collector.GetErrors() {
			if clienterrors.IsParseError(fe.Err) {
				w.logger.Debug(ctx, "Parse failed during scan", "file", fe.File, "error", fe.Err)
				continue
			}
			w.logger.Warn(ctx, fe.Err, "Skipping unreadable file", "file", fe.File)
		}
	}

	w.publish(types.GraphEvent{Kind: types.GraphEventRebuilt, Generation: generation})
	perf.End(ctx, "files", len(files), "modules", count, "errors", collector.Count())

	return &ScanResult{
		Files:        len(files),
		Modules:      count,
		Errors:       collector.GetErrors(),
		ErrorsByType: byType,
		Duration:     duration,
	}, nil
}

// extraction is the outcome of reading and parsing one module.
type extraction struct {
	path   string
	module *types.Module
	sum    uint32
	// gone means the module must be removed
	gone bool
	// skip means the content is unchanged since the last extraction
	skip bool
	err  error
}

// extract reads and parses path. Unless force is set, content whose hash
// matches the last applied extraction is skipped.
func (w *Workspace) extract(ctx context.Context, path string, force bool) extraction {
	content, err := w.reader.Read(path)
	if err != nil {
		if clienterrors.IsNotFound(err) {
			return extraction{path: path, gone: true}
		}
		w.logger.Warn(ctx, err, "Cannot read module", "file", path)
		return extraction{path: path, gone: true, err: err}
	}

	sum := crc32.ChecksumIEEE(content)
	if !force {
		w.mu.RLock()
		prev, seen := w.hashes[path]
		present := w.store.Has(path)
		w.mu.RUnlock()
		if seen && present && prev == sum {
			return extraction{path: path, skip: true}
		}
	}

	module, err := w.extractor.Extract(ctx, path, content)
	w.parseCompleted(err == nil)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Debug(ctx, "Parse failed, keeping previous state", "file", path, "error", err)
		}
		return extraction{path: path, err: err}
	}
	return extraction{path: path, module: module, sum: sum}
}

// commit applies extractions to the graph. A context cancelled before the
// graph lock is taken discards the whole batch. Parse failures and skipped
// extractions leave their modules untouched.
func (w *Workspace) commit(ctx context.Context, batch []extraction) ([]string, error) {
	w.mu.Lock()
	if err := ctx.Err(); err != nil {
		w.mu.Unlock()
		return nil, err
	}

	var changed []string
	removals := 0
	for _, x := range batch {
		switch {
		case x.gone:
			if w.dropModule(x.path) {
				changed = append(changed, x.path)
				removals++
			}
		case x.module != nil:
			if w.applyModule(x.module, x.sum) {
				changed = append(changed, x.path)
			}
		}
	}

	if len(changed) == 0 {
		w.mu.Unlock()
		return nil, nil
	}

	w.generation++
	generation := w.generation
	dropped := w.engine.Invalidate()
	count := w.store.Len()
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.SetModules(count)
		if dropped > 0 {
			w.metrics.MemoDropped()
		}
	}

	kind := types.GraphEventUpdated
	if removals == len(changed) {
		kind = types.GraphEventRemoved
	}
	sort.Strings(changed)
	w.publish(types.GraphEvent{Kind: kind, Paths: changed, Generation: generation})
	return changed, nil
}

// applyModule upserts m and refreshes its pending registrations. Callers
// hold mu.
func (w *Workspace) applyModule(m *types.Module, sum uint32) bool {
	if prev, ok := w.store.Get(m.Path); ok {
		w.removePending(m.Path, prev.Missing)
	}
	w.addPending(m.Path, m.Missing)
	w.hashes[m.Path] = sum

	return w.store.Upsert(m)
}

// dropModule removes path from the graph. Callers hold mu.
func (w *Workspace) dropModule(path string) bool {
	if prev, ok := w.store.Get(path); ok {
		w.removePending(path, prev.Missing)
	}
	delete(w.hashes, path)
	return w.store.Remove(path)
}

func (w *Workspace) addPending(importer string, bases []string) {
	for _, base := range bases {
		set, ok := w.pending[base]
		if !ok {
			set = make(map[string]struct{})
			w.pending[base] = set
		}
		set[importer] = struct{}{}
	}
}

func (w *Workspace) removePending(importer string, bases []string) {
	for _, base := range bases {
		if set, ok := w.pending[base]; ok {
			delete(set, importer)
			if len(set) == 0 {
				delete(w.pending, base)
			}
		}
	}
}

// probeBases lists the resolver bases a file at path can satisfy: the path
// itself, the path without its extension, and the directory of an index file.
func (w *Workspace) probeBases(path string) []string {
	bases := []string{path}
	ext := filepath.Ext(path)
	if ext == "" {
		return bases
	}
	stem := strings.TrimSuffix(path, ext)
	bases = append(bases, stem)
	if filepath.Base(stem) == "index" {
		bases = append(bases, filepath.Dir(stem))
	}
	return bases
}

func (w *Workspace) parseCompleted(ok bool) {
	if w.metrics != nil {
		w.metrics.ParseCompleted(ok)
	}
}

func (w *Workspace) publish(event types.GraphEvent) {
	if dropped := w.notifier.Publish(event); dropped > 0 {
		w.logger.Debug(context.Background(), "Subscribers missed graph event",
			"dropped", dropped, "kind", string(event.Kind))
	}
}

// Subscribe returns a channel receiving an event after every graph change.
// Slow subscribers miss events rather than stalling writers.
func (w *Workspace) Subscribe() <-chan types.GraphEvent {
	return w.notifier.Watch()
}

// Unsubscribe closes a channel returned by Subscribe.
func (w *Workspace) Unsubscribe(ch <-chan types.GraphEvent) {
	w.notifier.UnWatch(ch)
}

// Generation returns the number of graph changes applied so far.
func (w *Workspace) Generation() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.generation
}

// Close stops pending debounced work and closes every subscription.
func (w *Workspace) Close() error {
	if w.closed.Swap(true) {
		return nil
	}
	w.cancel()
	w.debouncer.Stop()
	w.notifier.Close()
	return nil
}

func errClosed() error {
	return clienterrors.NewInternalError(clienterrors.ErrCodeWorkspaceClosed,
		"workspace is closed", nil)
}
