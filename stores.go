package inventory

import (
	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/layering"
)

// Reserved attribute names.
const (
	BaseAttr    = "base"
	VersionAttr = "version"
	TagAttr     = "tagForWs"
)

// Kind records how an element reached a store.
type Kind string

const (
	KindPlain      Kind = "plain"
	KindOverride   Kind = "override"
	KindDerivation Kind = "derivation"
	KindResolved   Kind = "resolved"
	KindMerged     Kind = "merged"
	KindOverridden Kind = "overridden"
)

type origin struct {
	path string
	kind Kind
}

// stores is one complete inventory state. A load pass works on a clone and
// the inventory swaps it in on success.
type stores struct {
	keys        element.Keys
	main        *element.Store
	base        *element.Store
	alterations *element.Store
	cache       *lookupCache
	origins     map[element.StoreID]map[string]origin
	resolved    map[string]element.Key
	tagged      []element.Key
}

func newStores(keys element.Keys) *stores {
	return &stores{
		keys:        keys,
		main:        element.NewStore(element.StoreMain, keys),
		base:        element.NewStore(element.StoreBase, keys),
		alterations: element.NewStore(element.StoreAlterations, keys),
		cache:       newLookupCache(),
		origins: map[element.StoreID]map[string]origin{
			element.StoreMain:        {},
			element.StoreBase:        {},
			element.StoreAlterations: {},
		},
		resolved: map[string]element.Key{},
	}
}

func (s *stores) clone() *stores {
	out := &stores{
		keys:        s.keys,
		main:        s.main.Clone(),
		base:        s.base.Clone(),
		alterations: s.alterations.Clone(),
		cache:       newLookupCache(),
		origins:     make(map[element.StoreID]map[string]origin, len(s.origins)),
		resolved:    make(map[string]element.Key, len(s.resolved)),
		tagged:      append([]element.Key(nil), s.tagged...),
	}
	for id, byKey := range s.origins {
		copied := make(map[string]origin, len(byKey))
		for k, v := range byKey {
			copied[k] = v
		}
		out.origins[id] = copied
	}
	for k, v := range s.resolved {
		out.resolved[k] = v
	}
	return out
}

func (s *stores) store(id element.StoreID) *element.Store {
	switch id {
	case element.StoreMain:
		return s.main
	case element.StoreBase:
		return s.base
	case element.StoreAlterations:
		return s.alterations
	default:
		return nil
	}
}

func (s *stores) setOrigin(id element.StoreID, key element.Key, o origin) {
	s.origins[id][key.Canonical()] = o
}

func (s *stores) originOf(id element.StoreID, key element.Key) (origin, bool) {
	o, ok := s.origins[id][key.Canonical()]
	return o, ok
}

func (s *stores) putMain(key element.Key, el *element.Element, o origin) {
	s.main.Put(el)
	s.cache.put(element.StoreMain, key, el)
	s.cache.dropMisses()
	s.setOrigin(element.StoreMain, key, o)
}

func (s *stores) removeMain(key element.Key) {
	s.main.Remove(key)
	s.cache.drop(element.StoreMain, key)
	delete(s.origins[element.StoreMain], key.Canonical())
}

func (s *stores) putAlteration(key element.Key, el *element.Element, o origin) {
	s.alterations.Put(el)
	s.cache.drop(element.StoreAlterations, key)
	s.cache.dropMisses()
	s.setOrigin(element.StoreAlterations, key, o)
}

func (s *stores) removeAlteration(key element.Key) {
	s.alterations.Remove(key)
	s.cache.drop(element.StoreAlterations, key)
	delete(s.origins[element.StoreAlterations], key.Canonical())
}

func (s *stores) removeBase(key element.Key) {
	s.base.Remove(key)
	delete(s.origins[element.StoreBase], key.Canonical())
}

// dropResolved removes every lazily resolved derivation from Main so it is
// resolved again against the current bases on the next lookup.
func (s *stores) dropResolved() {
	for canonical, key := range s.resolved {
		s.removeMain(key)
		delete(s.resolved, canonical)
	}
}

func (s *stores) track(key element.Key, el *element.Element) {
	if !el.BoolAttr(TagAttr, false) {
		return
	}
	for _, existing := range s.tagged {
		if existing.Equal(key) {
			return
		}
	}
	s.tagged = append(s.tagged, key)
}

// isOverride reports whether el's base names its own trailing key value.
func (s *stores) isOverride(el *element.Element) bool {
	baseName, ok := el.Attr(BaseAttr)
	if !ok {
		return false
	}
	last, ok := s.keys.Of(el).Last()
	return ok && last.Equal(element.V(baseName))
}

// classify places el in the stores per the base protocol and reports how.
func (s *stores) classify(el *element.Element, path string) (Kind, error) {
	key := s.keys.Of(el)
	baseName, hasBase := el.Attr(BaseAttr)
	if !hasBase {
		s.removeAlteration(key)
		s.removeBase(key)
		delete(s.resolved, key.Canonical())
		s.dropResolved()
		s.putMain(key, el, origin{path: path, kind: KindPlain})
		s.track(key, el)
		return KindPlain, nil
	}

	last, ok := key.Last()
	if !ok {
		return "", newConfigError(ErrCodeMalformedElement, key, "element %q has a base but no key attributes", el.Name)
	}
	if last.Equal(element.V(baseName)) {
		return KindOverride, s.override(key, el, path)
	}

	delete(s.resolved, key.Canonical())
	s.removeMain(key)
	s.removeBase(key)
	s.dropResolved()
	s.putAlteration(key, el, origin{path: path, kind: KindDerivation})
	s.track(key, el)
	return KindDerivation, nil
}

func (s *stores) override(key element.Key, el *element.Element, path string) error {
	current, ok := s.lookup(key)
	if !ok {
		return newConfigError(ErrCodeMissingBase, key, "override of %s has nothing to override", key)
	}
	if s.base.Has(key) {
		return newConfigError(ErrCodeOverrideChain, key, "%s is already overridden", key)
	}
	previous, _ := s.originOf(element.StoreMain, key)
	delete(s.resolved, key.Canonical())
	s.dropResolved()

	s.base.Put(current)
	s.setOrigin(element.StoreBase, key, previous)
	s.putMain(key, layering.Unify(el, current, s.keys), origin{path: path, kind: KindOverride})
	s.putAlteration(key, el, origin{path: path, kind: KindOverride})
	s.track(key, el)
	return nil
}

// withdrawOverride undoes an override of key that was read from path,
// putting the saved base back into Main. It reports whether it did.
func (s *stores) withdrawOverride(key element.Key, path string) bool {
	o, ok := s.originOf(element.StoreAlterations, key)
	if !ok || o.kind != KindOverride || o.path != path {
		return false
	}
	saved, ok := s.base.Get(key)
	if !ok {
		return false
	}
	previous, _ := s.originOf(element.StoreBase, key)
	s.removeAlteration(key)
	s.removeBase(key)
	delete(s.resolved, key.Canonical())
	s.dropResolved()
	s.putMain(key, saved, previous)
	return true
}

// putMerged inserts a reconciled element straight into Main.
func (s *stores) putMerged(el *element.Element, path string) {
	key := s.keys.Of(el)
	delete(s.resolved, key.Canonical())
	s.dropResolved()
	s.putMain(key, el, origin{path: path, kind: KindMerged})
}

// validate checks that every pending derivation reaches a Main element
// without revisiting a key. Errors name the derivation's source.
func (s *stores) validate() error {
	for _, alt := range s.alterations.All() {
		if err := s.validateChain(alt); err != nil {
			if o, ok := s.originOf(element.StoreAlterations, s.keys.Of(alt)); ok {
				err.Path = o.path
			}
			return err
		}
	}
	return nil
}

func (s *stores) validateChain(alt *element.Element) *ConfigError {
	key := s.keys.Of(alt)
	if s.main.Has(key) || s.isOverride(alt) {
		return nil
	}
	seen := map[string]bool{}
	current := key
	for !s.main.Has(current) {
		next, ok := s.alterations.Get(current)
		if !ok {
			return newConfigError(ErrCodeUnresolvedBase, key, "base %s cannot be found", current)
		}
		if seen[current.Canonical()] {
			return newConfigError(ErrCodeDerivationCycle, key, "derivation chain revisits %s", current)
		}
		seen[current.Canonical()] = true
		baseName, _ := next.Attr(BaseAttr)
		following := current.WithLast(element.V(baseName))
		if following.Equal(current) {
			return newConfigError(ErrCodeUnresolvedBase, key, "override %s has no base in Main", current)
		}
		current = following
	}
	return nil
}
