package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	clienterrors "github.com/TheAmanM/next-client/internal/errors"
	"github.com/TheAmanM/next-client/internal/types"
)

// writeProject lays out a small Next.js style project and returns its root.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"app/page.tsx":              "import Button from '@/components/button'\nexport default function Page() { return <Button>go</Button> }\n",
		"components/button.tsx":     "'use client'\nimport Icon from './icon'\nexport default function Button() { return <Icon /> }\n",
		"components/icon.tsx":       "export default function Icon() { return null }\n",
		"lib/util.ts":               "export const x = 1\n",
		"node_modules/pkg/index.js": "'use client'\n",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func resetFlags() {
	for _, f := range []*StandardFlags{scanFlags, statusFlags, explainFlags, highlightsFlags} {
		f.OutputFormat = "table"
		f.Verbose = false
		f.Quiet = false
		f.ClientOnly = false
	}
	scanCycles = false
	scanStats = false
	versionFormat = "text"
	versionShort = false
	cfgFile = ""
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestScanJSON(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "scan", "--root", dir, "-o", "json")
	require.NoError(t, err)

	var result scanOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	statuses := make(map[string]string)
	for _, row := range result.Modules {
		statuses[row.Path] = row.Status
	}
	assert.Equal(t, map[string]string{
		"app/page.tsx":          "server",
		"components/button.tsx": "client",
		"components/icon.tsx":   "client",
		"lib/util.ts":           "server",
	}, statuses)
}

func TestScanClientOnlyTable(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "scan", "--root", dir, "--client-only")
	require.NoError(t, err)

	assert.Contains(t, out, "components/button.tsx")
	assert.Contains(t, out, "components/icon.tsx")
	assert.NotContains(t, out, "lib/util.ts")
	assert.Contains(t, out, "Total: 2 modules, 2 client")
}

func TestScanYAMLWithCycles(t *testing.T) {
	dir := writeProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "a.ts"), []byte("import './b'\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib", "b.ts"), []byte("import './a'\n"), 0o644))

	out, err := execute(t, "scan", "--root", dir, "-o", "yaml", "--cycles")
	require.NoError(t, err)

	var result scanOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	require.Len(t, result.Cycles, 1)
	assert.Equal(t, []string{"lib/a.ts", "lib/b.ts", "lib/a.ts"}, result.Cycles[0])
}

func TestScanRejectsUnknownFormat(t *testing.T) {
	dir := writeProject(t)

	_, err := execute(t, "scan", "--root", dir, "-o", "xml")
	assert.Error(t, err)
}

func TestStatusCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "status", "--root", dir,
		filepath.Join(dir, "components", "icon.tsx"),
		filepath.Join(dir, "node_modules", "pkg", "index.js"))
	require.NoError(t, err)

	assert.Contains(t, out, "components/icon.tsx: client")
	assert.Contains(t, out, "node_modules/pkg/index.js: not_found")
}

func TestStatusRequiresExistingFile(t *testing.T) {
	dir := writeProject(t)

	_, err := execute(t, "status", "--root", dir, filepath.Join(dir, "nope.tsx"))
	assert.Error(t, err)
}

func TestExplainCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "explain", "--root", dir, "-o", "json", filepath.Join(dir, "components", "icon.tsx"))
	require.NoError(t, err)

	var result explainOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "client", result.Status)
	assert.Equal(t, []string{"components/icon.tsx", "components/button.tsx"}, result.Chain)

	out, err = execute(t, "explain", "--root", dir, filepath.Join(dir, "lib", "util.ts"))
	require.NoError(t, err)
	assert.Contains(t, out, "lib/util.ts: server")
}

func TestHighlightsCommand(t *testing.T) {
	dir := writeProject(t)

	out, err := execute(t, "highlights", "--root", dir, "-o", "json", filepath.Join(dir, "app", "page.tsx"))
	require.NoError(t, err)

	var h types.Highlights
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.True(t, h.Ready)
	assert.Empty(t, h.Definitions)
	require.Len(t, h.Usages, 2)
	assert.Equal(t, 1, h.Usages[0].Start.Line)

	out, err = execute(t, "highlights", "--root", dir, filepath.Join(dir, "components", "button.tsx"))
	require.NoError(t, err)
	assert.Contains(t, out, "definition 3:25-3:31")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "go_version")

	_, err = execute(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestWriteErrorCounts(t *testing.T) {
	var buf bytes.Buffer
	writeErrorCounts(&buf, map[clienterrors.ErrorType]int{
		clienterrors.ErrorTypeParse: 2,
		clienterrors.ErrorTypeIO:    1,
	})
	assert.Equal(t, "scan_errors{type=io} 1\nscan_errors{type=parse} 2\n", buf.String())

	buf.Reset()
	writeErrorCounts(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("JSON", validFormats))
	assert.Error(t, ValidateFormat("csv", validFormats))

	flags := &StandardFlags{OutputFormat: "table", Quiet: true, Verbose: true}
	assert.Error(t, flags.ValidateFlags())
}
