// Package source is the boundary between the analysis core and the file
// system. It enumerates workspace modules, reads their content, and keeps
// the live editor buffers that take precedence over disk.
package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
)

// Options configure a Reader.
type Options struct {
	// Extensions are the recognized source extensions
	Extensions []string
	// ExcludeDirs are directory base names never descended into
	ExcludeDirs []string
	// MaxFileSize rejects larger files; zero disables the check
	MaxFileSize int64
}

// Reader enumerates and reads workspace modules through an afero filesystem.
type Reader struct {
	fs          afero.Fs
	root        string
	extensions  map[string]struct{}
	excludeDirs map[string]struct{}
	maxFileSize int64

	mu      sync.RWMutex
	buffers map[string][]byte
}

// NewReader creates a reader rooted at root. The root is canonicalized.
func NewReader(fsys afero.Fs, root string, opts Options) *Reader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	r := &Reader{
		fs:          fsys,
		root:        Canonical(root),
		extensions:  make(map[string]struct{}, len(opts.Extensions)),
		excludeDirs: make(map[string]struct{}, len(opts.ExcludeDirs)),
		maxFileSize: opts.MaxFileSize,
		buffers:     make(map[string][]byte),
	}
	for _, ext := range opts.Extensions {
		r.extensions[ext] = struct{}{}
	}
	for _, dir := range opts.ExcludeDirs {
		r.excludeDirs[dir] = struct{}{}
	}
	return r
}

// Canonical returns the absolute, cleaned form of path used as module identity.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Fs returns the underlying filesystem.
func (r *Reader) Fs() afero.Fs {
	return r.fs
}

// Root returns the canonical workspace root.
func (r *Reader) Root() string {
	return r.root
}

// IsSource reports whether path has a recognized source extension.
func (r *Reader) IsSource(path string) bool {
	_, ok := r.extensions[filepath.Ext(path)]
	return ok
}

// IsExcluded reports whether any directory between the root and path is
// excluded. Paths outside the root are always excluded.
func (r *Reader) IsExcluded(path string) bool {
	rel, err := filepath.Rel(r.root, Canonical(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	// the last element is the file itself
	for _, part := range parts[:len(parts)-1] {
		if _, skip := r.excludeDirs[part]; skip {
			return true
		}
	}
	return false
}

// Tracked reports whether path is a module the workspace analyzes.
func (r *Reader) Tracked(path string) bool {
	return r.IsSource(path) && !r.IsExcluded(path)
}

// Enumerate walks the workspace and returns every recognized source file in
// lexical order. Unreadable directories are skipped.
func (r *Reader) Enumerate(ctx context.Context) ([]string, error) {
	var files []string
	err := afero.Walk(r.fs, r.root, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == r.root {
				return err
			}
			// vanished or unreadable entries are not fatal
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != r.root {
				if _, skip := r.excludeDirs[info.Name()]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !info.Mode().IsRegular() || !r.IsSource(path) {
			return nil
		}

		files = append(files, Canonical(path))
		return nil
	})
	if err != nil {
		return nil, clienterrors.NewIOError(clienterrors.ErrCodeEnumerationError,
			"enumerating workspace", err).WithPath(r.root)
	}

	sort.Strings(files)
	return files, nil
}

// Read returns the current content of path: the open buffer if one exists,
// otherwise the file on disk. Missing files yield a not-found error.
func (r *Reader) Read(path string) ([]byte, error) {
	path = Canonical(path)

	r.mu.RLock()
	buf, ok := r.buffers[path]
	r.mu.RUnlock()
	if ok {
		out := make([]byte, len(buf))
		copy(out, buf)
		return out, nil
	}

	return r.ReadDisk(path)
}

// ReadDisk reads path from the filesystem, ignoring open buffers.
func (r *Reader) ReadDisk(path string) ([]byte, error) {
	path = Canonical(path)

	info, err := r.fs.Stat(path)
	if err != nil {
		return nil, clienterrors.NewIOError(clienterrors.ErrCodeFileUnreadable,
			"stat failed", err).WithPath(path)
	}
	if !info.Mode().IsRegular() {
		return nil, clienterrors.NewNotFoundError("not a regular file", fs.ErrNotExist).WithPath(path)
	}
	if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
		return nil, clienterrors.NewIOError(clienterrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file is %d bytes, limit is %d", info.Size(), r.maxFileSize), nil).WithPath(path)
	}

	content, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, clienterrors.NewIOError(clienterrors.ErrCodeFileUnreadable,
			"read failed", err).WithPath(path)
	}
	return content, nil
}

// UpdateBuffer opens or replaces the live content for path.
func (r *Reader) UpdateBuffer(path string, content []byte) {
	buf := make([]byte, len(content))
	copy(buf, content)

	r.mu.Lock()
	r.buffers[Canonical(path)] = buf
	r.mu.Unlock()
}

// CloseBuffer drops the live content; reads fall back to disk.
func (r *Reader) CloseBuffer(path string) {
	r.mu.Lock()
	delete(r.buffers, Canonical(path))
	r.mu.Unlock()
}

// HasBuffer reports whether path has open live content.
func (r *Reader) HasBuffer(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.buffers[Canonical(path)]
	return ok
}
