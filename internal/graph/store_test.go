package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheAmanM/next-client/internal/types"
)

func mod(path string, directive bool, imports ...string) *types.Module {
	return &types.Module{Path: path, HasDirective: directive, Imports: types.NewImportSet(imports...)}
}

func TestUpsertMaintainsImporterIndex(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Upsert(mod("/a", false, "/b", "/c")))
	assert.Equal(t, []string{"/a"}, s.Importers("/b"))
	assert.Equal(t, []string{"/a"}, s.Importers("/c"))

	// replace: drop /c, add /d
	assert.True(t, s.Upsert(mod("/a", false, "/b", "/d")))
	assert.Equal(t, []string{"/a"}, s.Importers("/b"))
	assert.Empty(t, s.Importers("/c"))
	assert.Equal(t, []string{"/a"}, s.Importers("/d"))
	assert.True(t, s.Consistent())

	// identical record is a no-op
	assert.False(t, s.Upsert(mod("/a", false, "/d", "/b")))

	// directive flip alone is a change
	assert.True(t, s.Upsert(mod("/a", true, "/b", "/d")))
	assert.True(t, s.HasDirective("/a"))
}

func TestUpsertDropsSelfImport(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/a", "/b"))

	got, ok := s.Get("/a")
	require.True(t, ok)
	assert.Equal(t, []string{"/b"}, got.Imports.Sorted())
	assert.Empty(t, s.Importers("/a"))
	assert.True(t, s.Consistent())
}

func TestUpsertDoesNotAliasCallerRecord(t *testing.T) {
	s := NewStore()
	m := mod("/a", false, "/b")
	s.Upsert(m)

	m.Imports.Add("/c")
	got, _ := s.Get("/a")
	assert.False(t, got.Imports.Has("/c"))

	got.Imports.Add("/d")
	again, _ := s.Get("/a")
	assert.False(t, again.Imports.Has("/d"))
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/b"))
	s.Upsert(mod("/b", false, "/c"))
	s.Upsert(mod("/c", false))
	s.Upsert(mod("/d", false, "/b", "/c"))

	assert.True(t, s.Remove("/b"))
	assert.False(t, s.Remove("/b"))

	assert.False(t, s.Has("/b"))
	assert.Empty(t, s.Importers("/b"))
	assert.Equal(t, []string{"/d"}, s.Importers("/c"))

	a, _ := s.Get("/a")
	assert.False(t, a.Imports.Has("/b"))
	d, _ := s.Get("/d")
	assert.Equal(t, []string{"/c"}, d.Imports.Sorted())

	assert.True(t, s.Consistent())
}

func TestInsertThenRemoveLeavesNoDanglingReferences(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/x"))
	s.Upsert(mod("/x", false, "/a", "/y"))
	s.Upsert(mod("/y", false, "/x"))

	s.Remove("/x")

	for _, p := range s.Paths() {
		m, _ := s.Get(p)
		assert.False(t, m.Imports.Has("/x"), p)
	}
	assert.Empty(t, s.Importers("/x"))
	assert.Empty(t, s.Importers("/a"))
	assert.Empty(t, s.Importers("/y"))
	assert.True(t, s.Consistent())
}

func TestRebuild(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/old", false, "/gone"))

	s.Rebuild([]*types.Module{
		mod("/a", true, "/b"),
		mod("/b", false, "/a", "/b"),
		mod("/c", false, "/b"),
	})

	assert.Equal(t, 3, s.Len())
	assert.False(t, s.Has("/old"))
	assert.Empty(t, s.Importers("/gone"))
	assert.Equal(t, []string{"/a", "/c"}, s.Importers("/b"))
	assert.Equal(t, []string{"/b"}, s.Importers("/a"))
	assert.Equal(t, 2, s.ImporterCount("/b"))
	assert.Equal(t, []string{"/a", "/b", "/c"}, s.Paths())
	assert.True(t, s.Consistent())
}

func TestRebuildDuplicatePathsLastWins(t *testing.T) {
	s := NewStore()
	s.Rebuild([]*types.Module{
		mod("/a", false, "/b"),
		mod("/a", true, "/c"),
	})

	a, _ := s.Get("/a")
	assert.True(t, a.HasDirective)
	assert.Empty(t, s.Importers("/b"))
	assert.Equal(t, []string{"/a"}, s.Importers("/c"))
	assert.True(t, s.Consistent())
}

func TestEdgesToUnknownModules(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/styles.css"))

	assert.Equal(t, []string{"/a"}, s.Importers("/styles.css"))
	assert.False(t, s.Has("/styles.css"))
	assert.True(t, s.Consistent())
}

func TestForEachImporterStopsEarly(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/t"))
	s.Upsert(mod("/b", false, "/t"))
	s.Upsert(mod("/c", false, "/t"))

	calls := 0
	s.ForEachImporter("/t", func(string) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestCycles(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/b"))
	s.Upsert(mod("/b", false, "/c"))
	s.Upsert(mod("/c", false, "/a"))
	s.Upsert(mod("/d", false, "/a"))

	cycles := s.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"/a", "/b", "/c", "/a"}, cycles[0])

	// a loop through a module whose walk already ended in another loop
	nested := NewStore()
	nested.Upsert(mod("/a", false, "/b", "/y"))
	nested.Upsert(mod("/b", false, "/c"))
	nested.Upsert(mod("/c", false, "/b"))
	nested.Upsert(mod("/y", false, "/a"))
	assert.Equal(t, [][]string{
		{"/a", "/y", "/a"},
		{"/b", "/c", "/b"},
	}, nested.Cycles())

	// the shortest loop through the smallest path is reported
	chords := NewStore()
	chords.Upsert(mod("/a", false, "/b", "/c"))
	chords.Upsert(mod("/b", false, "/c"))
	chords.Upsert(mod("/c", false, "/a"))
	assert.Equal(t, [][]string{{"/a", "/c", "/a"}}, chords.Cycles())

	acyclic := NewStore()
	acyclic.Upsert(mod("/a", false, "/b"))
	acyclic.Upsert(mod("/b", false))
	assert.Empty(t, acyclic.Cycles())
}

func TestRemoveUnknownTargetStripsEdges(t *testing.T) {
	s := NewStore()
	s.Upsert(mod("/a", false, "/broken.tsx"))

	assert.False(t, s.Remove("/broken.tsx"))

	a, _ := s.Get("/a")
	assert.Empty(t, a.Imports)
	assert.Empty(t, s.Importers("/broken.tsx"))
	assert.True(t, s.Consistent())
}
