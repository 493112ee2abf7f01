package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-inventory/internal/hydrate"
)

func TestGetPrintsEncodedElement(t *testing.T) {
	code, stdout, stderr := run(t, "get", "layout", "LexEntry", "detail", "Normal")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, `<layout class="LexEntry"`)
	assert.Contains(t, stdout, `ref="Etymology"`)

	code, stdout, _ = run(t, "get", "layout", "LexEntry", "detail", "Normal", "--as", "yaml")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "label: Main")
}

func TestGetStores(t *testing.T) {
	code, stdout, stderr := run(t, "get", "layout", "LexEntry", "detail", "Normal", "--store", "base")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, `ref="Headword"`)
	assert.NotContains(t, stdout, "Etymology")

	code, _, stderr = run(t, "get", "layout", "LexEntry", "detail", "Normal", "--store", "nowhere")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "unknown store")
}

func TestGetMiss(t *testing.T) {
	code, _, stderr := run(t, "get", "layout", "LexEntry", "detail", "Missing")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "no main element for layout: LexEntry-detail-Missing")

	code, stdout, _ := run(t, "--format", "json", "get", "layout", "LexEntry", "detail", "Missing")
	assert.Equal(t, ExitFailure, code)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERROR", resp.Error.Code)
}

func TestGetJSONEnvelope(t *testing.T) {
	code, stdout, stderr := run(t, "--format", "json", "get", "layout", "LexEntry", "detail", "Brief")
	require.Equal(t, ExitSuccess, code, stderr)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Name     string `json:"name"`
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "layout", resp.Data.Name)
	assert.Len(t, resp.Data.Children, 3)
}

func TestListAndSelect(t *testing.T) {
	code, stdout, stderr := run(t, "list", "layout", "LexEntry", "detail")
	require.Equal(t, ExitSuccess, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 3)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "layout("), line)
	}

	code, stdout, stderr = run(t, "select", `name == "part" && attrs.ref == args.ref`, "--arg", "ref=Senses")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "\n"), 2)

	code, _, stderr = run(t, "select", `attrs.ref`)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "predicate failed")
}

func TestTrace(t *testing.T) {
	code, stdout, stderr := run(t, "trace", "layout", "LexEntry", "detail", "Normal")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "key: layout: LexEntry-detail-Normal")
	assert.Contains(t, stdout, "02-override.yaml")
	assert.Contains(t, stdout, "01-base.fwlayout")

	code, stdout, _ = run(t, "--format", "json", "trace", "layout", "LexEntry", "detail", "Brief")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, `"store":"alterations"`)
}

func TestDumpFormats(t *testing.T) {
	out := filepath.Join(t.TempDir(), "inventory.cbor")
	code, _, stderr := run(t, "dump", "--as", "cbor", "--out", out, "--expand", "en")
	require.Equal(t, ExitSuccess, code, stderr)

	doc, err := hydrate.NewDecoder().DecodeFile(out)
	require.NoError(t, err)
	assert.Equal(t, "Main", doc.Name)
	var names []string
	for _, child := range doc.Children {
		names = append(names, child.AttrOr("name", ""))
	}
	assert.Contains(t, names, "Brief")
	assert.Contains(t, names, "Gloss-en")

	code, stdout, _ := run(t, "dump", "--as", "json")
	require.Equal(t, ExitSuccess, code)
	assert.True(t, json.Valid([]byte(stdout)))

	code, _, stderr = run(t, "dump", "--as", "toml")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, stderr, "unknown encoding")
}

func TestDescribe(t *testing.T) {
	code, stdout, stderr := run(t, "describe")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "class,type,name")
	assert.Contains(t, stdout, "duplicate suffixes: 01")

	code, stdout, stderr = run(t, "--format", "json", "describe", "--openapi", "--title", "Layouts")
	require.Equal(t, ExitSuccess, code, stderr)
	var resp struct {
		Data struct {
			Format   string         `json:"format"`
			Document map[string]any `json:"document"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "openapi", resp.Data.Format)
	assert.Equal(t, "Layouts", resp.Data.Document["info"].(map[string]any)["title"])
}

func TestPersistAndReset(t *testing.T) {
	userDir := t.TempDir()

	code, stdout, stderr := run(t, "--user-dir", userDir, "persist", "testdata/gloss-override.xml")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "persisted layout: LexSense-jtview-Gloss")

	entries, err := os.ReadDir(userDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	code, stdout, _ = run(t, "--user-dir", userDir, "get", "layout", "LexSense", "jtview", "Gloss")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, `ref="Custom"`)

	code, stdout, stderr = run(t, "--user-dir", userDir, "--format", "json", "reset")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, entries[0].Name())

	code, stdout, _ = run(t, "--user-dir", userDir, "get", "layout", "LexSense", "jtview", "Gloss")
	require.Equal(t, ExitSuccess, code)
	assert.NotContains(t, stdout, "Custom")
}

func TestPersistWithoutUserDir(t *testing.T) {
	code, _, stderr := run(t, "persist", "testdata/gloss-override.xml")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "persist")
}

func TestPersistRejectsOverrideOfOverride(t *testing.T) {
	userDir := t.TempDir()
	code, _, stderr := run(t, "--user-dir", userDir, "persist", "testdata/normal-override.xml")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "OVERRIDE_CHAIN")

	entries, err := os.ReadDir(userDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	code, _, stderr := runContext(t, ctx, "watch", "--events", "--debounce", "10ms")
	assert.Equal(t, ExitSuccess, code, stderr)
}
