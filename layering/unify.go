// Package layering unifies an alteration element with the base element it
// modifies, producing a new element. Inputs are never mutated.
package layering

import (
	"sync"

	"github.com/goliatone/go-inventory/element"
)

// ReorderAttr, when "true" on an alteration, makes the alteration's children
// drive the order of the unified children instead of the base's.
const ReorderAttr = "reorder"

// Unify composes alteration over base. Alteration attributes win; base
// attributes not present on the alteration are appended. Children are paired
// by element name and key values (per keys) and unified recursively.
//
// A nil base yields a copy of alteration, a nil alteration a copy of base.
func Unify(alteration, base *element.Element, keys element.Keys) *element.Element {
	if base == nil {
		return alteration.Clone()
	}
	if alteration == nil {
		return base.Clone()
	}

	unified := &element.Element{
		Name: alteration.Name,
		Text: alteration.Text,
	}
	if unified.Text == "" {
		unified.Text = base.Text
	}
	unified.Attrs = make([]element.Attr, 0, len(alteration.Attrs)+len(base.Attrs))
	unified.Attrs = append(unified.Attrs, alteration.Attrs...)
	for _, attr := range base.Attrs {
		if !unified.HasAttr(attr.Name) {
			unified.Attrs = append(unified.Attrs, attr)
		}
	}
	unified.Children = unifyChildren(alteration, base, keys)
	return unified
}

func unifyChildren(alteration, base *element.Element, keys element.Keys) []*element.Element {
	reorder := alteration.BoolAttr(ReorderAttr, false)
	orderBy, others := base.Children, alteration.Children
	if reorder {
		orderBy, others = alteration.Children, base.Children
	}

	used := make([]bool, len(others))
	out := make([]*element.Element, 0, len(orderBy)+len(others))
	for _, item := range orderBy {
		var other *element.Element
		if idx := matchAvailable(others, used, item, keys); idx >= 0 {
			used[idx] = true
			other = others[idx]
		}
		if reorder {
			out = append(out, Unify(item, other, keys))
		} else {
			out = append(out, Unify(other, item, keys))
		}
	}
	for i, item := range others {
		if !used[i] {
			out = append(out, item.Clone())
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// matchAvailable returns the index of the first unused candidate sharing
// target's name and key values, or -1.
func matchAvailable(candidates []*element.Element, used []bool, target *element.Element, keys element.Keys) int {
	for i, candidate := range candidates {
		if used[i] {
			continue
		}
		if keys.Match(candidate, target) {
			return i
		}
	}
	return -1
}

// Unifier memoizes unification of a (main, alteration) pair where the result
// keeps main's name and attributes and merges alteration's children into
// main's. Results are shared; callers must not mutate them.
type Unifier struct {
	keys element.Keys

	mu   sync.Mutex
	memo map[pair]*element.Element
	skip func(main *element.Element) bool
}

type pair struct {
	main       *element.Element
	alteration *element.Element
}

// UnifierOption configures a Unifier.
type UnifierOption func(*Unifier)

// WithSkip registers a predicate; when it accepts main, Children returns main
// unchanged.
func WithSkip(skip func(main *element.Element) bool) UnifierOption {
	return func(u *Unifier) {
		u.skip = skip
	}
}

// NewUnifier constructs a memoizing Unifier.
func NewUnifier(keys element.Keys, opts ...UnifierOption) *Unifier {
	u := &Unifier{
		keys: keys,
		memo: map[pair]*element.Element{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	return u
}

// Children returns main with alteration's children unified into it. The same
// pointer pair always yields the same result.
func (u *Unifier) Children(main, alteration *element.Element) *element.Element {
	if main == nil {
		return nil
	}
	if alteration == nil || (u.skip != nil && u.skip(main)) {
		return main
	}
	key := pair{main: main, alteration: alteration}

	u.mu.Lock()
	defer u.mu.Unlock()
	if result, ok := u.memo[key]; ok {
		return result
	}
	result := &element.Element{
		Name:  main.Name,
		Attrs: append([]element.Attr(nil), main.Attrs...),
		Text:  main.Text,
	}
	result.Children = unifyChildren(alteration, main, u.keys)
	u.memo[key] = result
	return result
}

// Reset drops every memoized result.
func (u *Unifier) Reset() {
	u.mu.Lock()
	u.memo = map[pair]*element.Element{}
	u.mu.Unlock()
}

// Len reports the number of memoized results.
func (u *Unifier) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.memo)
}
