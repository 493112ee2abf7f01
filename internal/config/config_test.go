package config

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inventory "github.com/goliatone/go-inventory"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, path, err := Load(context.Background(), LoadOptions{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, inventory.DefaultPattern, cfg.Pattern)
	assert.Equal(t, "expr", cfg.Evaluator)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 200*time.Millisecond, cfg.Watch.Debounce)
	assert.Error(t, cfg.Validate(), "path and keys are required")
}

func TestLoadCUEFile(t *testing.T) {
	cfg, path, err := Load(context.Background(), LoadOptions{Dir: "testdata"})
	require.NoError(t, err)
	assert.Equal(t, "testdata/inventory.cue", path)

	assert.Equal(t, "/LayoutInventory/*", cfg.Path)
	assert.Equal(t, "*.fwlayout", cfg.Pattern)
	assert.Equal(t, []string{"defaults", "extensions"}, cfg.Dirs)
	assert.Equal(t, "user", cfg.UserDir)
	assert.Equal(t, 3, cfg.Version)
	assert.Equal(t, "cel", cfg.Evaluator)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, DescriptorSpec{Name: "layoutType", Link: "layout", Label: "label"}, cfg.Descriptor)
	assert.Equal(t, map[string][]string{
		"layout": {"class", "type", "name"},
		"part":   {"ref"},
	}, cfg.KeyTable())
	require.NoError(t, cfg.Validate())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("INVENTORY_USER_DIR", "/override")
	t.Setenv("INVENTORY_VERSION", "7")
	t.Setenv("INVENTORY_LOG_LEVEL", "warn")

	cfg, _, err := Load(context.Background(), LoadOptions{FilePath: "testdata/inventory.cue"})
	require.NoError(t, err)
	assert.Equal(t, "/override", cfg.UserDir)
	assert.Equal(t, 7, cfg.Version)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/LayoutInventory/*", cfg.Path)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{name: "unknown field", file: "testdata/unknown_field.cue", want: "colour"},
		{name: "evaluator enum", file: "testdata/bad_evaluator.cue", want: "evaluator"},
		{name: "empty attributes", file: "testdata/empty_attributes.cue", want: "attributes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(context.Background(), LoadOptions{FilePath: tt.file})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := Load(context.Background(), LoadOptions{FilePath: "testdata/missing.cue"})
	require.ErrorIs(t, err, ErrNoConfigFile)
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Load(ctx, LoadOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Path = "/LayoutInventory/*"
		cfg.Keys = []KeySpec{{Element: "layout", Attributes: []string{"name"}}}
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "duplicate key", mutate: func(c *Config) {
			c.Keys = append(c.Keys, KeySpec{Element: "layout", Attributes: []string{"class"}})
		}, want: "duplicate element"},
		{name: "empty attributes", mutate: func(c *Config) {
			c.Keys[0].Attributes = nil
		}, want: "attributes are required"},
		{name: "unknown evaluator", mutate: func(c *Config) { c.Evaluator = "lua" }, want: "unknown evaluator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestOptionsOpenInventory(t *testing.T) {
	cfg := Default()
	cfg.Path = "/LayoutInventory/*"
	cfg.Dirs = []string{"../../testdata/defaults"}
	cfg.Keys = []KeySpec{
		{Element: "layout", Attributes: []string{"class", "type", "name"}},
		{Element: "part", Attributes: []string{"ref"}},
		{Element: "sublayout", Attributes: []string{"name"}},
	}
	cfg.Descriptor = DescriptorSpec{Name: "layoutType", Link: "layout", Label: "label"}

	opts, err := cfg.Options(nil)
	require.NoError(t, err)
	inv, err := inventory.Open(context.Background(), opts...)
	require.NoError(t, err)

	normal, ok := inv.Get("layout", "LexEntry", "detail", "Normal")
	require.True(t, ok)
	assert.Equal(t, "Main", normal.AttrOr("label", ""))
	assert.Len(t, inv.Descriptors(), 1)
}

func TestOptionsRejectsJSWithoutBuildTag(t *testing.T) {
	if inventory.NewJSEvaluator() != nil {
		t.Skip("built with js_eval")
	}
	cfg := Default()
	cfg.Path = "/LayoutInventory/*"
	cfg.Keys = []KeySpec{{Element: "layout", Attributes: []string{"name"}}}
	cfg.Evaluator = "js"
	_, err := cfg.Options(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "js_eval")
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("dropped element", "key", "layout Normal")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"key":"layout Normal"`)

	cfg.Log.Level = "loud"
	_, err = cfg.Logger(&buf)
	require.Error(t, err)
}
