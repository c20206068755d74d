// Package graph holds the module graph: one record per module keyed by
// canonical path, plus the importer index, the exact transpose of every
// module's import set.
//
// Store is not synchronized. Its single owner serializes writers and lets
// readers share, so a caller holding a read lock sees a consistent snapshot.
package graph

import (
	"sort"

	"github.com/TheAmanM/next-client/internal/types"
)

// Store owns module records and the importer index.
type Store struct {
	modules   map[string]*types.Module
	importers map[string]map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		modules:   make(map[string]*types.Module),
		importers: make(map[string]map[string]struct{}),
	}
}

// Upsert inserts or replaces the record for module.Path and patches the
// importer index by the exact difference between the old and new import
// sets. It reports whether the graph changed; a record differing only in
// its unresolved bases is updated without counting as a change.
func (s *Store) Upsert(module *types.Module) bool {
	next := module.Clone()
	// a module never imports itself
	delete(next.Imports, next.Path)

	prev, exists := s.modules[next.Path]
	if exists && prev.Equal(next) {
		prev.Missing = next.Missing
		return false
	}

	var old types.ImportSet
	if exists {
		old = prev.Imports
	}

	for target := range old {
		if !next.Imports.Has(target) {
			s.unlink(next.Path, target)
		}
	}
	for target := range next.Imports {
		if !old.Has(target) {
			s.link(next.Path, target)
		}
	}

	s.modules[next.Path] = next
	return true
}

// Remove deletes the module at path, strips path from every import set that
// references it, and drops its importer index entries. References are
// stripped even when path has no record of its own. It reports whether a
// record existed.
func (s *Store) Remove(path string) bool {
	prev, exists := s.modules[path]
	if exists {
		for target := range prev.Imports {
			s.unlink(path, target)
		}
		delete(s.modules, path)
	}

	// modules that imported path lose the edge: the file is gone
	for importer := range s.importers[path] {
		if m, ok := s.modules[importer]; ok {
			delete(m.Imports, path)
		}
	}
	delete(s.importers, path)

	return exists
}

// Get returns a copy of the record for path.
func (s *Store) Get(path string) (*types.Module, bool) {
	m, ok := s.modules[path]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// Has reports whether path is a module of the graph.
func (s *Store) Has(path string) bool {
	_, ok := s.modules[path]
	return ok
}

// HasDirective reports whether path exists and carries the directive.
func (s *Store) HasDirective(path string) bool {
	m, ok := s.modules[path]
	return ok && m.HasDirective
}

// Rebuild replaces the whole graph with modules. Records are cloned, self
// imports dropped, and the importer index rebuilt from scratch.
func (s *Store) Rebuild(modules []*types.Module) {
	s.modules = make(map[string]*types.Module, len(modules))
	s.importers = make(map[string]map[string]struct{}, len(modules))

	for _, m := range modules {
		next := m.Clone()
		delete(next.Imports, next.Path)
		if prev, dup := s.modules[next.Path]; dup {
			for target := range prev.Imports {
				s.unlink(prev.Path, target)
			}
		}
		s.modules[next.Path] = next
		for target := range next.Imports {
			s.link(next.Path, target)
		}
	}
}

// ForEachImporter calls fn for each module importing path, in no particular
// order, until fn returns false.
func (s *Store) ForEachImporter(path string, fn func(importer string) bool) {
	for importer := range s.importers[path] {
		if !fn(importer) {
			return
		}
	}
}

// Importers returns the sorted modules importing path.
func (s *Store) Importers(path string) []string {
	set := s.importers[path]
	out := make([]string, 0, len(set))
	for importer := range set {
		out = append(out, importer)
	}
	sort.Strings(out)
	return out
}

// ImporterCount returns how many modules import path.
func (s *Store) ImporterCount(path string) int {
	return len(s.importers[path])
}

// Paths returns every module path in lexical order.
func (s *Store) Paths() []string {
	out := make([]string, 0, len(s.modules))
	for p := range s.modules {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of modules.
func (s *Store) Len() int {
	return len(s.modules)
}

func (s *Store) link(importer, target string) {
	set, ok := s.importers[target]
	if !ok {
		set = make(map[string]struct{})
		s.importers[target] = set
	}
	set[importer] = struct{}{}
}

func (s *Store) unlink(importer, target string) {
	set, ok := s.importers[target]
	if !ok {
		return
	}
	delete(set, importer)
	if len(set) == 0 {
		delete(s.importers, target)
	}
}

// Consistent reports whether the importer index is exactly the transpose of
// the forward edges.
func (s *Store) Consistent() bool {
	edges := 0
	for path, m := range s.modules {
		for target := range m.Imports {
			if target == path {
				return false
			}
			if _, ok := s.importers[target][path]; !ok {
				return false
			}
			edges++
		}
	}

	indexed := 0
	for target, set := range s.importers {
		if len(set) == 0 {
			return false
		}
		for importer := range set {
			m, ok := s.modules[importer]
			if !ok || !m.Imports.Has(target) {
				return false
			}
			indexed++
		}
	}
	return edges == indexed
}
