// Package watcher turns file system notifications into batched change
// events for the workspace, and debounces per-document work.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/TheAmanM/next-client/internal/logging"
)

// FileWatcher watches a directory tree and delivers debounced batches of
// change events to its handlers.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	dirFilter DirFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	mutex     sync.RWMutex
	done      chan struct{}
	wg        sync.WaitGroup
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file event is delivered
type FileFilter func(path string) bool

// DirFilter determines if a directory is watched
type DirFilter func(path string) bool

// ChangeHandler handles a debounced batch of change events
type ChangeHandler func(events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan ChangeEvent
	output  chan []ChangeEvent
	timer   *time.Timer
	pending []ChangeEvent
	mutex   sync.Mutex
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: newDebouncer(debounceDelay),
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		logger:    logger.WithComponent("watcher"),
		done:      make(chan struct{}),
	}

	return fw, nil
}

func newDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		events:  make(chan ChangeEvent, 1024),
		output:  make(chan []ChangeEvent, 16),
		pending: make([]ChangeEvent, 0),
	}
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// SetDirFilter decides which directories AddRecursive and newly created
// directories are watched under.
func (fw *FileWatcher) SetDirFilter(filter DirFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.dirFilter = filter
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddRecursive adds a directory and all accepted subdirectories to watch
func (fw *FileWatcher) AddRecursive(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && !fw.acceptDir(path) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn(context.Background(), err, "Cannot watch directory", "path", path)
		}
		return nil
	})
}

func (fw *FileWatcher) acceptDir(path string) bool {
	fw.mutex.RLock()
	filter := fw.dirFilter
	fw.mutex.RUnlock()
	return filter == nil || filter(path)
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	fw.wg.Add(3)
	go func() {
		defer fw.wg.Done()
		fw.debouncer.start(ctx, fw.done)
	}()
	go func() {
		defer fw.wg.Done()
		fw.processEvents(ctx)
	}()
	go func() {
		defer fw.wg.Done()
		fw.watchLoop(ctx)
	}()

	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	fw.debouncer.stop()

	select {
	case <-fw.done:
	default:
		close(fw.done)
	}

	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log error but continue watching
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	info, statErr := os.Stat(event.Name)

	// new directories are watched too, so files created inside them are seen
	if statErr == nil && info.IsDir() {
		if event.Op&fsnotify.Create == fsnotify.Create && fw.acceptDir(event.Name) {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(context.Background(), err, "Cannot watch new directory", "path", event.Name)
				return
			}
			fw.emitExisting(event.Name)
		}
		return
	}

	if !fw.acceptFile(event.Name) {
		return
	}

	changeEvent, ok := translate(event, info, statErr)
	if !ok {
		return
	}
	fw.send(changeEvent)
}

// emitExisting reports every file already inside a directory that appeared
// in one piece (moved, copied or checked out), since those files raise no
// events of their own.
func (fw *FileWatcher) emitExisting(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !fw.acceptDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !fw.acceptFile(path) {
			return nil
		}

		event := ChangeEvent{Type: EventTypeCreated, Path: path}
		if info, err := d.Info(); err == nil {
			event.ModTime = info.ModTime()
			event.Size = info.Size()
		}
		fw.send(event)
		return nil
	})
	if err != nil {
		fw.logger.Warn(context.Background(), err, "Cannot list new directory", "path", dir)
	}
}

func (fw *FileWatcher) acceptFile(path string) bool {
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(path) {
			return false
		}
	}
	return true
}

func (fw *FileWatcher) send(event ChangeEvent) {
	select {
	case fw.debouncer.events <- event:
	default:
		fw.logger.Warn(context.Background(), nil, "Change event dropped, debouncer full", "path", event.Path)
	}
}

// translate maps an fsnotify event onto a ChangeEvent. Renames are reported
// as deletions of the old name; the new name arrives as a create.
func translate(event fsnotify.Event, info os.FileInfo, statErr error) (ChangeEvent, bool) {
	var eventType EventType
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eventType = EventTypeDeleted
	case event.Has(fsnotify.Create):
		eventType = EventTypeCreated
	case event.Has(fsnotify.Write):
		eventType = EventTypeModified
	default:
		// chmod only
		return ChangeEvent{}, false
	}

	// a create or write for a file that is already gone is a deletion
	if eventType != EventTypeDeleted && statErr != nil {
		eventType = EventTypeDeleted
	}

	ce := ChangeEvent{Type: eventType, Path: event.Name}
	if statErr == nil && info != nil {
		ce.ModTime = info.ModTime()
		ce.Size = info.Size()
	}
	return ce, true
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case events := <-fw.debouncer.output:
			fw.dispatch(ctx, events)
		}
	}
}

func (fw *FileWatcher) dispatch(ctx context.Context, events []ChangeEvent) {
	fw.mutex.RLock()
	handlers := fw.handlers
	fw.mutex.RUnlock()

	for _, handler := range handlers {
		if err := handler(events); err != nil {
			// Log error but continue processing
			fw.logger.Error(ctx, err, "File watcher handler error", "events", len(events))
		}
	}
}

// Debouncer implementation
func (d *Debouncer) start(ctx context.Context, done <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.pending = append(d.pending, event)

	// Reset timer
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.flush()
	})
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	events := coalesce(d.pending)

	// Send debounced events
	select {
	case d.output <- events:
	default:
		// Channel full, skip
	}

	d.pending = d.pending[:0]
}

// coalesce keeps one event per path, sorted by path. The last event wins,
// except that a file created and then modified within one batch is still
// reported as created.
func coalesce(pending []ChangeEvent) []ChangeEvent {
	byPath := make(map[string]ChangeEvent, len(pending))
	for _, event := range pending {
		if prev, ok := byPath[event.Path]; ok && prev.Type == EventTypeCreated && event.Type == EventTypeModified {
			event.Type = EventTypeCreated
		}
		byPath[event.Path] = event
	}

	events := make([]ChangeEvent, 0, len(byPath))
	for _, event := range byPath {
		events = append(events, event)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Path < events[j].Path
	})
	return events
}

// NoTempFileFilter rejects editor swap, backup and lock files.
func NoTempFileFilter(path string) bool {
	name := filepath.Base(path)
	switch {
	case strings.HasSuffix(name, "~"),
		strings.HasPrefix(name, ".#"),
		name == "4913":
		return false
	}
	switch filepath.Ext(name) {
	case ".swp", ".swx", ".swo", ".tmp":
		return false
	}
	return true
}

// ExcludeDirFilter rejects directories whose base name is listed.
func ExcludeDirFilter(names []string) DirFilter {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return func(path string) bool {
		_, skip := set[filepath.Base(path)]
		return !skip
	}
}
