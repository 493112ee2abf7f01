package inventory

import (
	"strings"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/internal/files"
	"github.com/goliatone/go-inventory/internal/hydrate"
	"github.com/goliatone/go-inventory/pkg/activity"
	"github.com/goliatone/go-inventory/pkg/state"
)

// DefaultPattern matches every file in a source directory.
const DefaultPattern = "*"

// Option configures an Inventory.
type Option func(*config)

type config struct {
	keys       map[string][]string
	rawPath    string
	path       element.Path
	pattern    string
	dirs       []string
	userDir    string
	version    int
	merger     Merger
	enumerator Enumerator
	logger     Logger
	hooks      activity.Hooks
	channel    string
	store      state.Store
	decoder    *hydrate.Decoder
	descriptor Descriptor
	evaluator  Evaluator
	cache      ProgramCache
	functions  *FunctionRegistry
	evalLogger EvaluatorLogger
	schema     SchemaGenerator
	unifySkip  func(*element.Element) bool
	optionErrs []error
}

func applyOptions(opts []Option) config {
	cfg := config{
		keys:    map[string][]string{},
		pattern: DefaultPattern,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = LogEvaluations(cfg.logger)
	}
	if cfg.decoder == nil {
		cfg.decoder = hydrate.NewDecoder()
	}
	if cfg.enumerator == nil {
		cfg.enumerator = EnumeratorFunc(files.OrderedFiles)
	}
	if cfg.store == nil {
		cfg.store = state.NewFileStore(cfg.decoder)
	}
	if cfg.schema == nil {
		cfg.schema = DefaultSchemaGenerator()
	}
	if cfg.descriptor.Name != "" && cfg.descriptor.LinkAttr != "" {
		if _, ok := cfg.keys[cfg.descriptor.Name]; !ok {
			cfg.keys[cfg.descriptor.Name] = []string{cfg.descriptor.LinkAttr}
		}
	}
	return cfg
}

// Enumerator lists the source files of a directory in load order.
type Enumerator interface {
	Files(dir, pattern string) ([]string, error)
}

// EnumeratorFunc adapts a function to Enumerator.
type EnumeratorFunc func(dir, pattern string) ([]string, error)

// Files implements Enumerator.
func (f EnumeratorFunc) Files(dir, pattern string) ([]string, error) {
	if f == nil {
		return nil, nil
	}
	return f(dir, pattern)
}

// Descriptor names the companion "type" element of named variants. A
// descriptor element links to a variant through LinkAttr, carries the
// display label in LabelAttr and holds a first child whose "class"
// attribute names the variant's class.
type Descriptor struct {
	Name      string
	LinkAttr  string
	LabelAttr string
}

// WithKeys sets the key attributes per element name. Later calls add to or
// replace earlier entries.
func WithKeys(table map[string][]string) Option {
	return func(cfg *config) {
		for name, attrs := range table {
			cfg.keys[name] = append([]string(nil), attrs...)
		}
	}
}

// WithPath sets the structural location of inventory elements in every
// source, e.g. "/LayoutInventory/*". Parse errors surface from New.
func WithPath(path string) Option {
	return func(cfg *config) {
		cfg.rawPath = path
	}
}

// WithPattern sets the glob used to enumerate source directories.
func WithPattern(pattern string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(pattern) != "" {
			cfg.pattern = pattern
		}
	}
}

// WithDirs appends default source directories, loaded in the given order.
func WithDirs(dirs ...string) Option {
	return func(cfg *config) {
		for _, dir := range dirs {
			if strings.TrimSpace(dir) != "" {
				cfg.dirs = append(cfg.dirs, dir)
			}
		}
	}
}

// WithUserDir sets the user override directory, loaded last and the target
// of PersistOverride.
func WithUserDir(dir string) Option {
	return func(cfg *config) {
		cfg.userDir = dir
	}
}

// WithVersion sets the current configuration version. Zero disables
// reconciliation.
func WithVersion(version int) Option {
	return func(cfg *config) {
		cfg.version = version
	}
}

// WithMerger injects the old-version merger used during reconciliation.
func WithMerger(merger Merger) Option {
	return func(cfg *config) {
		cfg.merger = merger
	}
}

// WithEnumerator replaces the default ordered directory listing.
func WithEnumerator(enumerator Enumerator) Option {
	return func(cfg *config) {
		cfg.enumerator = enumerator
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithActivityHooks registers activity hooks notified after each committed
// load and persistence operation.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return func(cfg *config) {
		for _, hook := range hooks {
			if hook != nil {
				cfg.hooks = append(cfg.hooks, hook)
			}
		}
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.channel = channel
	}
}

// WithStateStore replaces the store used for the user override layer.
func WithStateStore(store state.Store) Option {
	return func(cfg *config) {
		cfg.store = store
	}
}

// WithDecoder replaces the source decoder.
func WithDecoder(decoder *hydrate.Decoder) Option {
	return func(cfg *config) {
		cfg.decoder = decoder
	}
}

// WithDescriptor configures the named-variant companion element. The
// descriptor name is keyed by its link attribute unless WithKeys says
// otherwise.
func WithDescriptor(descriptor Descriptor) Option {
	return func(cfg *config) {
		cfg.descriptor = descriptor
	}
}

// WithEvaluator configures the predicate engine used by Select.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = evaluator
	}
}

// WithProgramCache registers a program cache used by the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// WithSchemaGenerator configures a custom schema generator for Describe.
func WithSchemaGenerator(generator SchemaGenerator) Option {
	return func(cfg *config) {
		cfg.schema = generator
	}
}

// WithUnifySkip makes Unified return main untouched whenever skip accepts
// it, for elements whose children must never merge.
func WithUnifySkip(skip func(main *element.Element) bool) Option {
	return func(cfg *config) {
		cfg.unifySkip = skip
	}
}
