// Package types provides common type definitions used throughout next-client.
// This package contains shared types to avoid circular dependencies between packages.
package types

import (
	"sort"
	"time"
)

// ImportSet is the set of canonical module paths a module imports.
type ImportSet map[string]struct{}

// NewImportSet builds a set from the given paths, collapsing duplicates.
func NewImportSet(paths ...string) ImportSet {
	set := make(ImportSet, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}

// Add inserts a path into the set.
func (s ImportSet) Add(path string) {
	s[path] = struct{}{}
}

// Has reports whether the set contains path.
func (s ImportSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the members in lexical order.
func (s ImportSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same members.
func (s ImportSet) Equal(other ImportSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if !other.Has(p) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (s ImportSet) Clone() ImportSet {
	out := make(ImportSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Module is the graph record of one source file, identified by its canonical
// absolute path. A module never imports itself, and imports that could not be
// resolved are simply absent.
type Module struct {
	// Path is the canonical absolute path of the file
	Path string
	// HasDirective is true iff the leading directive prologue holds the boundary marker
	HasDirective bool
	// Imports holds the resolved import targets
	Imports ImportSet
	// Missing holds the candidate base paths of relative or alias imports
	// that resolved to no file. It is not part of the graph and Equal
	// ignores it.
	Missing []string
}

// Clone returns a deep copy of the module record.
func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	return &Module{
		Path:         m.Path,
		HasDirective: m.HasDirective,
		Imports:      m.Imports.Clone(),
		Missing:      append([]string(nil), m.Missing...),
	}
}

// Equal reports whether two records describe the same graph node.
func (m *Module) Equal(other *Module) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Path == other.Path &&
		m.HasDirective == other.HasDirective &&
		m.Imports.Equal(other.Imports)
}

// Position is a zero-based line and byte column in a source file.
type Position struct {
	Line   int `json:"line" yaml:"line"`
	Column int `json:"column" yaml:"column"`
}

// Range is a half-open span of source text.
type Range struct {
	StartByte int      `json:"startByte" yaml:"start_byte"`
	EndByte   int      `json:"endByte" yaml:"end_byte"`
	Start     Position `json:"start" yaml:"start"`
	End       Position `json:"end" yaml:"end"`
}

// DefinitionKind classifies how a component is declared.
type DefinitionKind string

const (
	DefinitionFunction DefinitionKind = "function"
	DefinitionClass    DefinitionKind = "class"
	DefinitionVariable DefinitionKind = "variable"
)

// ComponentDef is a top-level component-like declaration: an uppercase name
// bound to a function, a class, or a variable initialized with a function.
type ComponentDef struct {
	Name      string         `json:"name" yaml:"name"`
	Kind      DefinitionKind `json:"kind" yaml:"kind"`
	NameRange Range          `json:"nameRange" yaml:"name_range"`
	Range     Range          `json:"range" yaml:"range"`
}

// TagUsage is a JSX element whose tag name starts with an uppercase letter.
type TagUsage struct {
	// Name is the full tag name as written, e.g. "Button" or "UI.Card"
	Name string `json:"name" yaml:"name"`
	// Binding is the local identifier the tag name starts with
	Binding string `json:"binding" yaml:"binding"`
	// Specifier is the import specifier Binding was imported from, if any
	Specifier string `json:"specifier,omitempty" yaml:"specifier,omitempty"`
	// Resolved is the module Specifier resolves to, empty if unresolved
	Resolved string `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	// Ranges are the tag-name spans of the opening and closing tags
	Ranges []Range `json:"ranges" yaml:"ranges"`
}

// Outline is the on-demand structural view of a module used for highlighting.
type Outline struct {
	Path         string
	HasDirective bool
	Definitions  []ComponentDef
	Usages       []TagUsage
}

// Highlights is the per-view output consumed by the editor collaborator.
type Highlights struct {
	Path string `json:"path" yaml:"path"`
	// Ready is false until the initial workspace scan has completed
	Ready       bool    `json:"ready" yaml:"ready"`
	Definitions []Range `json:"definitions" yaml:"definitions"`
	Usages      []Range `json:"usages" yaml:"usages"`
}

// Status is the boundary classification reported to consumers.
type Status int

const (
	// StatusUnknown means no data yet: the initial scan has not completed
	StatusUnknown Status = iota
	// StatusNotFound means the path is not a module of the graph
	StatusNotFound
	// StatusServer means the module is not on the client side of the boundary
	StatusServer
	// StatusClient means the module declares or inherits the boundary directive
	StatusClient
)

// String returns the string representation of the Status
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusNotFound:
		return "not_found"
	case StatusServer:
		return "server"
	case StatusClient:
		return "client"
	default:
		return "invalid"
	}
}

// ModuleStatus pairs a module path with its classification.
type ModuleStatus struct {
	Path         string `json:"path" yaml:"path"`
	Status       Status `json:"-" yaml:"-"`
	HasDirective bool   `json:"directive" yaml:"directive"`
	Blocking     bool   `json:"blocking" yaml:"blocking"`
	Imports      int    `json:"imports" yaml:"imports"`
	Importers    int    `json:"importers" yaml:"importers"`
}

// GraphEventKind represents the type of graph change.
type GraphEventKind string

const (
	GraphEventUpdated GraphEventKind = "updated"
	GraphEventRemoved GraphEventKind = "removed"
	GraphEventRebuilt GraphEventKind = "rebuilt"
)

// GraphEvent tells subscribers that boundary data may have changed and open
// views should re-query.
type GraphEvent struct {
	Kind GraphEventKind
	// Paths lists the modules whose records changed; empty for rebuilds
	Paths []string
	// Generation increases with every applied store mutation
	Generation uint64
	Timestamp  time.Time
}
