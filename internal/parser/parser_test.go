package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/types"
)

// mapResolver resolves specifiers from a fixed table, ignoring the importer.
type mapResolver map[string]string

func (m mapResolver) Resolve(specifier, fromPath string) (string, bool) {
	p, ok := m[specifier]
	return p, ok
}

func newTestExtractor() *Extractor {
	return NewExtractor(mapResolver{
		"./b":           "/w/b.tsx",
		"./c":           "/w/c.tsx",
		"./self":        "/w/a.tsx",
		"@/ui":          "/w/ui/index.tsx",
		"./types":       "/w/types.ts",
		"./side-effect": "/w/side-effect.ts",
	}, "use client")
}

func TestDirectiveDetection(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected bool
	}{
		{"double quotes", `"use client"` + "\nexport default function A() {}", true},
		{"single quotes with semicolon", `'use client';` + "\nimport B from './b'", true},
		{"after comments", "// header\n/* block */\n\"use client\"\n", true},
		{"after another directive", "'use strict';\n'use client';\n", true},
		{"after import", "import B from './b'\n'use client'\n", false},
		{"inside comment", "// \"use client\"\nexport const x = 1", false},
		{"in a string elsewhere", "const s = \"use client\"\n", false},
		{"inside a function", "function F() {\n  'use client'\n}\n", false},
		{"wrong text", "\"use server\"\n", false},
		{"padded text", "\" use client\"\n", false},
		{"parenthesized", "(\"use client\")\n", false},
		{"concatenated", "\"use \" + \"client\"\n", false},
		{"template literal", "`use client`\n", false},
		{"empty file", "", false},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := e.Extract(context.Background(), "/w/a.tsx", []byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mod.HasDirective)
		})
	}
}

func TestExtractImports(t *testing.T) {
	src := `"use client"
import B from "./b"
import { C as Renamed, other } from './c'
import * as UI from "@/ui"
import type { Props } from "./types"
import "./side-effect"
import React from "react"
import Missing from "./missing"
import Self from "./self"

export default function A() {
  return <B />
}
`
	mod, err := newTestExtractor().Extract(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "/w/a.tsx", mod.Path)
	assert.True(t, mod.HasDirective)
	assert.Equal(t, []string{
		"/w/b.tsx",
		"/w/c.tsx",
		"/w/side-effect.ts",
		"/w/types.ts",
		"/w/ui/index.tsx",
	}, mod.Imports.Sorted())
	assert.False(t, mod.Imports.Has("/w/a.tsx"))
}

func TestExtractDuplicateImportsCollapse(t *testing.T) {
	src := "import B from './b'\nimport { x } from './b'\n"
	mod, err := newTestExtractor().Extract(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	assert.Len(t, mod.Imports, 1)
}

func TestExtractToleratesSyntaxErrors(t *testing.T) {
	src := `'use client'
import B from './b'

export function Broken( {
  return <div
`
	mod, err := newTestExtractor().Extract(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	assert.True(t, mod.HasDirective)
	assert.True(t, mod.Imports.Has("/w/b.tsx"))
}

func TestExtractTypeScriptGrammar(t *testing.T) {
	src := `import B from './b'
const n = <number>someValue
export const x = n
`
	mod, err := newTestExtractor().Extract(context.Background(), "/w/util.ts", []byte(src))
	require.NoError(t, err)
	assert.True(t, mod.Imports.Has("/w/b.tsx"))
}

func TestExtractIdempotent(t *testing.T) {
	src := []byte("'use client'\nimport B from './b'\nimport C from './c'\n")
	e := newTestExtractor()

	first, err := e.Extract(context.Background(), "/w/a.tsx", src)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), "/w/a.tsx", src)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	big := make([]byte, 0, 1<<20)
	for len(big) < 1<<20 {
		big = append(big, "export const x = <div><span>text</span></div>\n"...)
	}

	_, err := newTestExtractor().Extract(ctx, "/w/a.tsx", big)
	if err != nil {
		assert.True(t, clienterrors.IsParseError(err))
	}
}

func TestOutlineDefinitions(t *testing.T) {
	src := `"use client"
import { memo, forwardRef } from "react"

export default function Page() { return null }
export function Card() { return null }
function helper() {}
class Widget extends React.Component {}
export const Arrow = () => <div />
const Plain = function () { return null }
const Memoized = memo(() => null)
const Forwarded = forwardRef(function Inner(props, ref) { return null })
const NotComponent = 42
const lower = () => null
let Mutable = () => null
`
	outline, err := newTestExtractor().Outline(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	assert.True(t, outline.HasDirective)

	names := make(map[string]types.DefinitionKind)
	for _, def := range outline.Definitions {
		names[def.Name] = def.Kind
	}

	assert.Equal(t, map[string]types.DefinitionKind{
		"Page":      types.DefinitionFunction,
		"Card":      types.DefinitionFunction,
		"Widget":    types.DefinitionClass,
		"Arrow":     types.DefinitionVariable,
		"Plain":     types.DefinitionVariable,
		"Memoized":  types.DefinitionVariable,
		"Forwarded": types.DefinitionVariable,
		"Mutable":   types.DefinitionVariable,
	}, names)

	for _, def := range outline.Definitions {
		if def.Name == "Card" {
			assert.Equal(t, 4, def.NameRange.Start.Line)
			assert.Equal(t, 16, def.NameRange.Start.Column)
			assert.Equal(t, len("Card"), def.NameRange.EndByte-def.NameRange.StartByte)
		}
	}
}

func TestOutlineNestedDefinitionsIgnored(t *testing.T) {
	src := `export function Outer() {
  function Inner() { return null }
  const Nested = () => null
  return <Inner />
}
`
	outline, err := newTestExtractor().Outline(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	require.Len(t, outline.Definitions, 1)
	assert.Equal(t, "Outer", outline.Definitions[0].Name)
}

func TestOutlineUsages(t *testing.T) {
	src := `import B from "./b"
import { C as Renamed } from "./c"
import * as UI from "@/ui"
import Pkg from "some-package"

export default function A() {
  return (
    <B>
      <Renamed />
      <UI.Card>text</UI.Card>
      <Pkg />
      <Local />
      <div />
      <>fragment</>
      <B />
    </B>
  )
}
`
	outline, err := newTestExtractor().Outline(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)

	byName := make(map[string]types.TagUsage)
	for _, u := range outline.Usages {
		byName[u.Name] = u
	}
	require.Len(t, byName, 5)
	assert.NotContains(t, byName, "div")

	b := byName["B"]
	assert.Equal(t, "B", b.Binding)
	assert.Equal(t, "./b", b.Specifier)
	assert.Equal(t, "/w/b.tsx", b.Resolved)
	require.Len(t, b.Ranges, 3)
	assert.Equal(t, 7, b.Ranges[0].Start.Line)
	assert.Equal(t, 5, b.Ranges[0].Start.Column)
	assert.Less(t, b.Ranges[0].StartByte, b.Ranges[1].StartByte)
	assert.Less(t, b.Ranges[1].StartByte, b.Ranges[2].StartByte)

	renamed := byName["Renamed"]
	assert.Equal(t, "./c", renamed.Specifier)
	assert.Equal(t, "/w/c.tsx", renamed.Resolved)
	assert.Len(t, renamed.Ranges, 1)

	card := byName["UI.Card"]
	assert.Equal(t, "UI", card.Binding)
	assert.Equal(t, "@/ui", card.Specifier)
	assert.Equal(t, "/w/ui/index.tsx", card.Resolved)
	assert.Len(t, card.Ranges, 2)

	pkg := byName["Pkg"]
	assert.Equal(t, "some-package", pkg.Specifier)
	assert.Empty(t, pkg.Resolved)

	local := byName["Local"]
	assert.Empty(t, local.Specifier)
	assert.Empty(t, local.Resolved)
}

func TestOutlineSelfImportUnresolved(t *testing.T) {
	src := "import Self from './self'\nexport const X = () => <Self />\n"
	outline, err := newTestExtractor().Outline(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	require.Len(t, outline.Usages, 1)
	assert.Equal(t, "./self", outline.Usages[0].Specifier)
	assert.Empty(t, outline.Usages[0].Resolved)
}

func TestIsComponentName(t *testing.T) {
	assert.True(t, isComponentName("Button"))
	assert.True(t, isComponentName("UI.Card"))
	assert.True(t, isComponentName("Édition"))
	assert.False(t, isComponentName("button"))
	assert.False(t, isComponentName("_Private"))
	assert.False(t, isComponentName(""))
}

func TestBindingOf(t *testing.T) {
	assert.Equal(t, "Button", bindingOf("Button"))
	assert.Equal(t, "UI", bindingOf("UI.Card.Header"))
}

// baseMapResolver additionally reports probe bases for relative specifiers.
type baseMapResolver struct {
	mapResolver
}

func (baseMapResolver) BasePath(specifier, fromPath string) (string, bool) {
	if strings.HasPrefix(specifier, "./") {
		return "/w/" + strings.TrimPrefix(specifier, "./"), true
	}
	return "", false
}

func TestExtractMissingBases(t *testing.T) {
	e := NewExtractor(baseMapResolver{mapResolver{"./b": "/w/b.tsx"}}, "use client")
	src := `import B from './b'
import Later from './later'
import Again from './later'
import React from 'react'
`
	mod, err := e.Extract(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"/w/b.tsx"}, mod.Imports.Sorted())
	assert.Equal(t, []string{"/w/later"}, mod.Missing)

	// without base reporting nothing is recorded
	plain, err := newTestExtractor().Extract(context.Background(), "/w/a.tsx", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, plain.Missing)
}
