// Package config loads CLI configuration from a CUE file validated against an
// embedded schema, merged into viper with defaults and INVENTORY_* environment
// overrides.
package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	inventory "github.com/goliatone/go-inventory"
)

const (
	// EnvPrefix prefixes every environment override, e.g. INVENTORY_USER_DIR.
	EnvPrefix = "INVENTORY"
	// FileName is the config file looked up in the working directory.
	FileName = "inventory.cue"
)

//go:embed schema.cue
var schema string

// ErrNoConfigFile is returned when an explicit config path does not exist.
var ErrNoConfigFile = errors.New("config: file not found")

// KeySpec lists the key attributes of one element name.
type KeySpec struct {
	Element    string   `mapstructure:"element"`
	Attributes []string `mapstructure:"attributes"`
}

// DescriptorSpec names the descriptor element persisted next to named variants.
type DescriptorSpec struct {
	Name  string `mapstructure:"name"`
	Link  string `mapstructure:"link"`
	Label string `mapstructure:"label"`
}

// LogConfig selects the charmbracelet/log level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config is the decoded CLI configuration.
type Config struct {
	Path       string         `mapstructure:"path"`
	Pattern    string         `mapstructure:"pattern"`
	Dirs       []string       `mapstructure:"dirs"`
	UserDir    string         `mapstructure:"user_dir"`
	Version    int            `mapstructure:"version"`
	Keys       []KeySpec      `mapstructure:"keys"`
	Descriptor DescriptorSpec `mapstructure:"descriptor"`
	Evaluator  string         `mapstructure:"evaluator"`
	Log        LogConfig      `mapstructure:"log"`
	Watch      WatchConfig    `mapstructure:"watch"`
}

// LoadOptions controls where Load looks for a config file.
type LoadOptions struct {
	// FilePath is used exclusively when set.
	FilePath string
	// Dir is searched for FileName when FilePath is empty.
	Dir string
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Pattern:   inventory.DefaultPattern,
		Dirs:      []string{},
		Evaluator: "expr",
		Log:       LogConfig{Level: "info", Format: "text"},
		Watch:     WatchConfig{Debounce: 200 * time.Millisecond},
	}
}

// Load resolves the configuration and returns it with the file path it was
// read from ("" when only defaults and environment applied).
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	defaults := Default()
	v.SetDefault("path", defaults.Path)
	v.SetDefault("pattern", defaults.Pattern)
	v.SetDefault("dirs", defaults.Dirs)
	v.SetDefault("user_dir", defaults.UserDir)
	v.SetDefault("version", defaults.Version)
	v.SetDefault("evaluator", defaults.Evaluator)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolved := opts.FilePath
	if resolved != "" {
		if !fileExists(resolved) {
			return nil, "", fmt.Errorf("%w: %s", ErrNoConfigFile, resolved)
		}
	} else {
		candidate := FileName
		if opts.Dir != "" {
			candidate = filepath.Join(opts.Dir, FileName)
		}
		if fileExists(candidate) {
			resolved = candidate
		}
	}
	if resolved != "" {
		if err := loadCUEIntoViper(v, resolved); err != nil {
			return nil, "", err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, resolved, nil
}

// loadCUEIntoViper validates the file against #Config and merges it into v.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(schema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("config: compile schema: %w", schemaValue.Err())
	}
	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatError(err, path)
	}

	var values map[string]any
	if err := unified.Decode(&values); err != nil {
		return formatError(err, path)
	}
	if err := v.MergeConfigMap(values); err != nil {
		return fmt.Errorf("config: merge %s: %w", path, err)
	}
	return nil
}

func formatError(err error, path string) error {
	list := cueerrors.Errors(err)
	if len(list) == 0 {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	lines := make([]string, 0, len(list))
	for _, e := range list {
		msg := e.Error()
		if p := strings.Join(cueerrors.Path(e), "."); p != "" && !strings.HasPrefix(msg, p) {
			msg = p + ": " + msg
		}
		lines = append(lines, msg)
	}
	return fmt.Errorf("config: %s: %s", path, strings.Join(lines, "; "))
}

// Validate checks what the schema cannot: required fields once environment
// overrides have applied.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("config: path is required")
	}
	if len(c.Keys) == 0 {
		return errors.New("config: at least one key entry is required")
	}
	seen := map[string]struct{}{}
	for i, key := range c.Keys {
		if key.Element == "" || len(key.Attributes) == 0 {
			return fmt.Errorf("config: keys[%d]: element and attributes are required", i)
		}
		if _, dup := seen[key.Element]; dup {
			return fmt.Errorf("config: keys[%d]: duplicate element %q", i, key.Element)
		}
		seen[key.Element] = struct{}{}
	}
	switch c.Evaluator {
	case "", "expr", "cel", "js":
	default:
		return fmt.Errorf("config: unknown evaluator %q", c.Evaluator)
	}
	return nil
}

// KeyTable converts the key list into the table inventory.WithKeys expects.
func (c *Config) KeyTable() map[string][]string {
	table := make(map[string][]string, len(c.Keys))
	for _, key := range c.Keys {
		table[key.Element] = append([]string(nil), key.Attributes...)
	}
	return table
}

// Options maps the configuration onto inventory options. logger may be nil.
func (c *Config) Options(logger inventory.Logger) ([]inventory.Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	opts := []inventory.Option{
		inventory.WithPath(c.Path),
		inventory.WithKeys(c.KeyTable()),
		inventory.WithDirs(c.Dirs...),
		inventory.WithVersion(c.Version),
	}
	if c.Pattern != "" {
		opts = append(opts, inventory.WithPattern(c.Pattern))
	}
	if c.UserDir != "" {
		opts = append(opts, inventory.WithUserDir(c.UserDir))
	}
	if c.Descriptor.Name != "" {
		opts = append(opts, inventory.WithDescriptor(inventory.Descriptor{
			Name:      c.Descriptor.Name,
			LinkAttr:  c.Descriptor.Link,
			LabelAttr: c.Descriptor.Label,
		}))
	}
	if logger != nil {
		opts = append(opts, inventory.WithLogger(logger))
	}
	switch c.Evaluator {
	case "cel":
		opts = append(opts, inventory.WithEvaluator(inventory.NewCELEvaluator()))
	case "js":
		evaluator := inventory.NewJSEvaluator()
		if evaluator == nil {
			return nil, errors.New("config: js evaluator requires the js_eval build tag")
		}
		opts = append(opts, inventory.WithEvaluator(evaluator))
	}
	return opts, nil
}

// Logger builds a charmbracelet logger writing to w.
func (c *Config) Logger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	formatter := log.TextFormatter
	switch c.Log.Format {
	case "json":
		formatter = log.JSONFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:    "inventory",
		Level:     level,
		Formatter: formatter,
	}), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
