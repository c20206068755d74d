// Package resolver maps raw import specifiers to canonical module paths.
//
// Only two specifier forms resolve: relative paths (./, ../) against the
// importing module's directory, and the workspace alias prefix against the
// workspace root. Bare package names and everything else stay unresolved.
package resolver

import (
	"path/filepath"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/TheAmanM/next-client/internal/source"
)

// Options configure a Resolver.
type Options struct {
	// Extensions are tried in order after the bare path
	Extensions []string
	// AliasPrefix maps to the workspace root; empty disables aliasing
	AliasPrefix string
	// CacheSize bounds the memo
	CacheSize int
	// OnLookup is called for every memo lookup
	OnLookup func(hit bool)
}

type entry struct {
	path string
	ok   bool
}

// Resolver resolves specifiers with a memo keyed by candidate base path.
// Both successes and failures are remembered until Purge.
type Resolver struct {
	fs          afero.Fs
	root        string
	extensions  []string
	aliasPrefix string
	onLookup    func(hit bool)

	memo   *lru.Cache[string, entry]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a resolver for the workspace rooted at root.
func New(fsys afero.Fs, root string, opts Options) (*Resolver, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 4096
	}
	memo, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Resolver{
		fs:          fsys,
		root:        source.Canonical(root),
		extensions:  append([]string(nil), opts.Extensions...),
		aliasPrefix: opts.AliasPrefix,
		onLookup:    opts.OnLookup,
		memo:        memo,
	}, nil
}

// Resolve returns the canonical path specifier refers to when imported from
// fromPath, or false when it does not resolve to a regular file.
func (r *Resolver) Resolve(specifier, fromPath string) (string, bool) {
	base, ok := r.BasePath(specifier, fromPath)
	if !ok {
		return "", false
	}

	if e, found := r.memo.Get(base); found {
		r.record(true)
		return e.path, e.ok
	}
	r.record(false)

	e := r.probe(base)
	r.memo.Add(base, e)
	return e.path, e.ok
}

// BasePath returns the absolute candidate base for specifier, before any
// extension or index probing.
func (r *Resolver) BasePath(specifier, fromPath string) (string, bool) {
	switch {
	case isRelative(specifier):
		return source.Canonical(filepath.Join(filepath.Dir(fromPath), filepath.FromSlash(specifier))), true
	case r.aliasPrefix != "" && strings.HasPrefix(specifier, r.aliasPrefix):
		rest := strings.TrimPrefix(specifier, r.aliasPrefix)
		return source.Canonical(filepath.Join(r.root, filepath.FromSlash(rest))), true
	default:
		return "", false
	}
}

// Candidates lists the paths probed for base, in order.
func (r *Resolver) Candidates(base string) []string {
	out := make([]string, 0, 1+2*len(r.extensions))
	out = append(out, base)
	for _, ext := range r.extensions {
		out = append(out, base+ext)
	}
	index := filepath.Join(base, "index")
	for _, ext := range r.extensions {
		out = append(out, index+ext)
	}
	return out
}

func (r *Resolver) probe(base string) entry {
	for _, candidate := range r.Candidates(base) {
		info, err := r.fs.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return entry{path: candidate, ok: true}
		}
	}
	return entry{}
}

func (r *Resolver) record(hit bool) {
	if hit {
		r.hits.Add(1)
	} else {
		r.misses.Add(1)
	}
	if r.onLookup != nil {
		r.onLookup(hit)
	}
}

// Purge drops every memoized result. Called whenever a file is created or
// deleted, since either can change which candidate wins.
func (r *Resolver) Purge() {
	r.memo.Purge()
}

// Len returns the number of memoized bases.
func (r *Resolver) Len() int {
	return r.memo.Len()
}

// Stats returns memo hit and miss counts.
func (r *Resolver) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}

// Root returns the canonical workspace root.
func (r *Resolver) Root() string {
	return r.root
}

func isRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}
