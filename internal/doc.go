// Package internal contains the core implementation packages for next-client.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - source: workspace enumeration, disk reads and live editor buffers
//   - resolver: import specifier resolution with an LRU memo
//   - parser: tree-sitter extraction of directives, imports and JSX usages
//   - graph: module records, the importer index and graph events
//   - boundary: lazy, memoized client boundary propagation
//   - workspace: incremental update coordination and queries
//   - watcher: fsnotify monitoring and per-document debouncing
//   - config, logging, errors, metrics, version: ambient support
//
// # Data Flow
//
// File events and editor edits reach the workspace, which re-extracts the
// affected modules through the parser, applies the difference to the graph
// store and drops the boundary memo. The next status query walks importer
// edges again.
//
// # Testing Strategy
//
//   - Unit tests with testify for every package
//   - Property tests with gopter behind the "property" build tag
//   - In-memory afero filesystems for workspace scenarios
package internal
