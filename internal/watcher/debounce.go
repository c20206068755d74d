package watcher

import (
	"context"
	"sync"
	"time"
)

// KeyedDebouncer runs one task per key after a quiet period. Triggering a
// key again before its task fires replaces the task; triggering it while the
// task runs cancels the running task's context. A task that observes
// ctx.Err() under its owner's lock can therefore never apply stale work
// after a newer task for the same key has started.
type KeyedDebouncer struct {
	delay time.Duration
	base  context.Context

	mu      sync.Mutex
	entries map[string]*debounceEntry
	stopped bool
	running sync.WaitGroup
}

type debounceEntry struct {
	timer  *time.Timer
	ctx    context.Context
	cancel context.CancelFunc
	fn     func(ctx context.Context)
}

// NewKeyedDebouncer creates a debouncer whose task contexts derive from ctx.
func NewKeyedDebouncer(ctx context.Context, delay time.Duration) *KeyedDebouncer {
	if ctx == nil {
		ctx = context.Background()
	}
	return &KeyedDebouncer{
		delay:   delay,
		base:    ctx,
		entries: make(map[string]*debounceEntry),
	}
}

// Trigger schedules fn for key, superseding any pending or running task.
func (d *KeyedDebouncer) Trigger(key string, fn func(ctx context.Context)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if prev, ok := d.entries[key]; ok {
		prev.timer.Stop()
		prev.cancel()
	}

	ctx, cancel := context.WithCancel(d.base)
	entry := &debounceEntry{ctx: ctx, cancel: cancel, fn: fn}
	entry.timer = time.AfterFunc(d.delay, func() {
		d.run(key, entry)
	})
	d.entries[key] = entry
}

func (d *KeyedDebouncer) run(key string, entry *debounceEntry) {
	d.mu.Lock()
	if d.stopped || d.entries[key] != entry {
		d.mu.Unlock()
		return
	}
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	entry.fn(entry.ctx)

	d.mu.Lock()
	if d.entries[key] == entry {
		delete(d.entries, key)
	}
	d.mu.Unlock()
	entry.cancel()
}

// Cancel drops the pending task for key and cancels it if running.
func (d *KeyedDebouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.entries[key]; ok {
		entry.timer.Stop()
		entry.cancel()
		delete(d.entries, key)
	}
}

// Flush runs the pending task for key now, on the calling goroutine. It
// reports whether a task ran.
func (d *KeyedDebouncer) Flush(key string) bool {
	d.mu.Lock()
	entry, ok := d.entries[key]
	if !ok || d.stopped || !entry.timer.Stop() {
		// absent, or its timer already fired
		d.mu.Unlock()
		return false
	}
	d.mu.Unlock()

	d.run(key, entry)
	return true
}

// Pending returns the number of keys with a scheduled or running task.
func (d *KeyedDebouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Stop cancels every task and waits for running ones to return.
func (d *KeyedDebouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, entry := range d.entries {
		entry.timer.Stop()
		entry.cancel()
		delete(d.entries, key)
	}
	d.mu.Unlock()

	d.running.Wait()
}
