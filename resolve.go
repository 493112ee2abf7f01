package inventory

import (
	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/layering"
)

type effectKind int

const (
	effectCache effectKind = iota
	effectMiss
	effectInsert
)

// effect is one store or cache update produced by resolve. The caller
// applies effects while holding the inventory lock.
type effect struct {
	kind effectKind
	key  element.Key
	node *element.Element
	path string
}

// resolve finds the Main element for key, lazily unifying a pending
// derivation with its (recursively resolved) base. It reads only; the
// returned effects record what should be cached or inserted.
func (s *stores) resolve(key element.Key, seen map[string]bool) (*element.Element, []effect, error) {
	if el, hit := s.cache.get(element.StoreMain, key); hit {
		return el, nil, nil
	}
	if el, ok := s.main.Get(key); ok {
		return el, []effect{{kind: effectCache, key: key, node: el}}, nil
	}
	alt, ok := s.alterations.Get(key)
	if !ok {
		return nil, []effect{{kind: effectMiss, key: key}}, nil
	}
	canonical := key.Canonical()
	if seen[canonical] {
		return nil, nil, newConfigError(ErrCodeDerivationCycle, key, "derivation chain revisits %s", key)
	}
	seen[canonical] = true

	baseName, _ := alt.Attr(BaseAttr)
	baseKey := key.WithLast(element.V(baseName))
	if baseKey.Equal(key) {
		return nil, []effect{{kind: effectMiss, key: key}}, nil
	}
	base, effects, err := s.resolve(baseKey, seen)
	if err != nil {
		return nil, nil, err
	}
	if base == nil {
		return nil, append(effects, effect{kind: effectMiss, key: key}), nil
	}
	unified := layering.Unify(alt, base, s.keys)
	o, _ := s.originOf(element.StoreAlterations, key)
	return unified, append(effects, effect{kind: effectInsert, key: key, node: unified, path: o.path}), nil
}

func (s *stores) apply(effects []effect) {
	for _, eff := range effects {
		switch eff.kind {
		case effectCache:
			s.cache.put(element.StoreMain, eff.key, eff.node)
		case effectMiss:
			s.cache.put(element.StoreMain, eff.key, nil)
		case effectInsert:
			s.main.Put(eff.node)
			s.cache.put(element.StoreMain, eff.key, eff.node)
			s.setOrigin(element.StoreMain, eff.key, origin{path: eff.path, kind: KindResolved})
			s.resolved[eff.key.Canonical()] = eff.key
		}
	}
}

// lookup resolves key and applies the resulting effects. Resolution errors
// surface at load time through validate and are treated as misses here.
func (s *stores) lookup(key element.Key) (*element.Element, bool) {
	el, effects, err := s.resolve(key, map[string]bool{})
	if err != nil {
		return nil, false
	}
	s.apply(effects)
	return el, el != nil
}

// resolvePending resolves every pending derivation, optionally restricted to
// one element name.
func (s *stores) resolvePending(name string) {
	for _, alt := range s.alterations.All() {
		if name != "" && alt.Name != name {
			continue
		}
		key := s.keys.Of(alt)
		if !s.main.Has(key) {
			s.lookup(key)
		}
	}
}
