package inventory

import (
	"context"
	"errors"
	"sync"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/internal/files"
	"github.com/goliatone/go-inventory/layering"
	"github.com/goliatone/go-inventory/pkg/activity"
)

// Inventory serves keyed lookups over configuration elements loaded from
// ordered sources. It is safe for concurrent use; a single mutex guards all
// state because lookups resolve derivations lazily.
type Inventory struct {
	mu sync.Mutex

	cfg     config
	keys    element.Keys
	unifier *layering.Unifier
	emitter *activity.Emitter

	current *stores
	// explicit holds Load paths applied before the user layer, late those
	// applied after it.
	explicit   []string
	late       []string
	userLoaded bool
	stamps     []files.Stamp
	generation uint64
}

// New constructs an empty inventory. Nothing is read until Load, Reload or
// LoadUserOverrides runs.
func New(opts ...Option) (*Inventory, error) {
	cfg := applyOptions(opts)
	if len(cfg.optionErrs) > 0 {
		return nil, errors.Join(cfg.optionErrs...)
	}
	path, err := element.ParsePath(cfg.rawPath)
	if err != nil {
		return nil, &ConfigError{Code: ErrCodeMalformedPath, Message: err.Error()}
	}
	cfg.path = path

	keys := element.NewKeys(cfg.keys)
	if cfg.evaluator == nil {
		cfg.evaluator = defaultEvaluator(cfg)
	}
	return &Inventory{
		cfg:     cfg,
		keys:    keys,
		unifier: newUnifier(keys, cfg.unifySkip),
		emitter: activity.NewEmitter(cfg.hooks, cfg.channel),
		current: newStores(keys),
	}, nil
}

// Open constructs an inventory and performs the first full load.
func Open(ctx context.Context, opts ...Option) (*Inventory, error) {
	inv, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := inv.Reload(ctx); err != nil {
		return nil, err
	}
	return inv, nil
}

// Get returns the Main element for name and positional key values, resolving
// a pending derivation on first request. Missing trailing values are absent.
func (inv *Inventory) Get(name string, values ...string) (*element.Element, bool) {
	return inv.GetKey(inv.keys.Lookup(name, element.Values(values...)...))
}

// GetKey is Get for an explicit key, which may carry absent values.
func (inv *Inventory) GetKey(key element.Key) (*element.Element, bool) {
	key = inv.normalize(key)
	inv.mu.Lock()
	defer inv.mu.Unlock()
	el, effects, err := inv.current.resolve(key, map[string]bool{})
	if err != nil {
		inv.cfg.logger.Warn("cannot resolve element", "key", key.String(), "err", err)
		return nil, false
	}
	inv.current.apply(effects)
	return el, el != nil
}

// GetAll returns the Main elements named name whose leading key values equal
// partial, in store order. Pending derivations of that name are resolved
// first.
func (inv *Inventory) GetAll(name string, partial ...element.Value) []*element.Element {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.current.resolvePending(name)
	return inv.current.main.Select(func(el *element.Element) bool {
		return inv.keys.MatchPartial(el, name, partial)
	})
}

// GetAlteration returns the raw derivation or override node stored for the
// key, if any.
func (inv *Inventory) GetAlteration(name string, values ...string) (*element.Element, bool) {
	key := inv.keys.Lookup(name, element.Values(values...)...)
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.current.alterations.Get(key)
}

// GetBase returns what the alteration for the key was applied to: the saved
// pre-override element for an override, the resolved base for a derivation.
func (inv *Inventory) GetBase(name string, values ...string) (*element.Element, bool) {
	key := inv.keys.Lookup(name, element.Values(values...)...)
	inv.mu.Lock()
	defer inv.mu.Unlock()
	alt, ok := inv.current.alterations.Get(key)
	if !ok {
		return nil, false
	}
	if inv.current.isOverride(alt) {
		return inv.current.base.Get(key)
	}
	baseName, _ := alt.Attr(BaseAttr)
	return inv.current.lookup(key.WithLast(element.V(baseName)))
}

func newUnifier(keys element.Keys, skip func(*element.Element) bool) *layering.Unifier {
	if skip == nil {
		return layering.NewUnifier(keys)
	}
	return layering.NewUnifier(keys, layering.WithSkip(skip))
}

// Unified returns main with alteration's children unified into it. Results
// are memoized per pair until the next load.
func (inv *Inventory) Unified(main, alteration *element.Element) *element.Element {
	return inv.unifier.Children(main, alteration)
}

// Root returns a synthetic "Main" element holding every resolved element.
// Pending derivations are resolved first.
func (inv *Inventory) Root() *element.Element {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.current.resolvePending("")
	return inv.current.main.Root()
}

// Descriptors returns the descriptor elements in Main.
func (inv *Inventory) Descriptors() []*element.Element {
	name := inv.cfg.descriptor.Name
	if name == "" {
		return nil
	}
	return inv.GetAll(name)
}

// Keys returns the key table.
func (inv *Inventory) Keys() element.Keys {
	return inv.keys
}

// Path returns the structural path of inventory elements.
func (inv *Inventory) Path() element.Path {
	return inv.cfg.path
}

// Version returns the configured current version, zero when unversioned.
func (inv *Inventory) Version() int {
	return inv.cfg.version
}

// Generation counts committed load passes.
func (inv *Inventory) Generation() uint64 {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.generation
}

// Len reports the number of elements currently in Main.
func (inv *Inventory) Len() int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.current.main.Len()
}

func (inv *Inventory) normalize(key element.Key) element.Key {
	want := len(inv.keys.For(key.Name))
	if len(key.Values) == want {
		return key
	}
	return inv.keys.Lookup(key.Name, key.Values...)
}
