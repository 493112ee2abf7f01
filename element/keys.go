package element

import (
	"strings"

	"golang.org/x/text/cases"
)

// Value is one key attribute value. The zero Value is "absent", which never
// equals a present empty string.
type Value struct {
	text    string
	present bool
}

// Absent is the key value of a missing attribute.
var Absent = Value{}

// V returns a present key value.
func V(text string) Value {
	return Value{text: text, present: true}
}

// Values converts plain strings into present key values.
func Values(texts ...string) []Value {
	out := make([]Value, len(texts))
	for i, text := range texts {
		out[i] = V(text)
	}
	return out
}

// Present reports whether the attribute was present.
func (v Value) Present() bool { return v.present }

// Text returns the attribute text (empty when absent).
func (v Value) Text() string { return v.text }

// Equal compares values case-insensitively; absent only equals absent.
func (v Value) Equal(other Value) bool {
	if v.present != other.present {
		return false
	}
	return !v.present || fold(v.text) == fold(other.text)
}

func (v Value) String() string {
	if !v.present {
		return "<absent>"
	}
	return v.text
}

// Key identifies an element: its name plus the values of the key attributes
// configured for that name, in order.
type Key struct {
	Name   string
	Values []Value
}

// NewKey builds a key from present values.
func NewKey(name string, texts ...string) Key {
	return Key{Name: name, Values: Values(texts...)}
}

// Last returns the trailing key value, the one a base reference matches.
func (k Key) Last() (Value, bool) {
	if len(k.Values) == 0 {
		return Absent, false
	}
	return k.Values[len(k.Values)-1], true
}

// WithLast returns a copy of k with the trailing value replaced.
func (k Key) WithLast(value Value) Key {
	out := Key{Name: k.Name, Values: make([]Value, len(k.Values))}
	copy(out.Values, k.Values)
	if len(out.Values) > 0 {
		out.Values[len(out.Values)-1] = value
	}
	return out
}

// WithValue returns a copy of k with value i replaced.
func (k Key) WithValue(i int, value Value) Key {
	out := Key{Name: k.Name, Values: make([]Value, len(k.Values))}
	copy(out.Values, k.Values)
	if i >= 0 && i < len(out.Values) {
		out.Values[i] = value
	}
	return out
}

// Equal compares names exactly and values case-insensitively.
func (k Key) Equal(other Key) bool {
	if k.Name != other.Name || len(k.Values) != len(other.Values) {
		return false
	}
	for i := range k.Values {
		if !k.Values[i].Equal(other.Values[i]) {
			return false
		}
	}
	return true
}

// Canonical returns the folded form used to index stores and caches.
func (k Key) Canonical() string {
	var b strings.Builder
	b.WriteString(k.Name)
	for _, value := range k.Values {
		b.WriteByte(0x1f)
		if !value.present {
			b.WriteByte('!')
			continue
		}
		b.WriteByte('=')
		b.WriteString(fold(value.text))
	}
	return b.String()
}

func (k Key) String() string {
	if len(k.Values) == 0 {
		return k.Name
	}
	parts := make([]string, len(k.Values))
	for i, value := range k.Values {
		parts[i] = value.String()
	}
	return k.Name + ": " + strings.Join(parts, "-")
}

// Keys maps element names to their ordered key attribute names. It is built
// once and read-only afterwards.
type Keys struct {
	attrs map[string][]string
}

// NewKeys copies table into a Keys value.
func NewKeys(table map[string][]string) Keys {
	attrs := make(map[string][]string, len(table))
	for name, list := range table {
		attrs[name] = append([]string(nil), list...)
	}
	return Keys{attrs: attrs}
}

// For returns the key attributes configured for name (nil when none).
func (k Keys) For(name string) []string {
	list := k.attrs[name]
	if len(list) == 0 {
		return nil
	}
	return append([]string(nil), list...)
}

// Trailing returns the last key attribute for name, the one a base
// reference must match.
func (k Keys) Trailing(name string) (string, bool) {
	list := k.attrs[name]
	if len(list) == 0 {
		return "", false
	}
	return list[len(list)-1], true
}

// Table returns a copy of the configured mapping.
func (k Keys) Table() map[string][]string {
	out := make(map[string][]string, len(k.attrs))
	for name, list := range k.attrs {
		out[name] = append([]string(nil), list...)
	}
	return out
}

// Of computes the key of el.
func (k Keys) Of(el *Element) Key {
	if el == nil {
		return Key{}
	}
	list := k.attrs[el.Name]
	key := Key{Name: el.Name, Values: make([]Value, len(list))}
	for i, attr := range list {
		if value, ok := el.Attr(attr); ok {
			key.Values[i] = V(value)
		}
	}
	return key
}

// Lookup builds a key for name from positional values. Missing trailing
// positions are treated as absent.
func (k Keys) Lookup(name string, values ...Value) Key {
	list := k.attrs[name]
	key := Key{Name: name, Values: make([]Value, len(list))}
	copy(key.Values, values)
	return key
}

// Match reports whether a and b share name and key values.
func (k Keys) Match(a, b *Element) bool {
	if a == nil || b == nil || a.Name != b.Name {
		return false
	}
	for _, attr := range k.attrs[a.Name] {
		av, aok := a.Attr(attr)
		bv, bok := b.Attr(attr)
		if !V(av).Equal(V(bv)) || aok != bok {
			return false
		}
	}
	return true
}

// MatchPartial reports whether el carries name and agrees with the leading
// values given; absent values require the attribute to be missing.
func (k Keys) MatchPartial(el *Element, name string, values []Value) bool {
	if el == nil || el.Name != name {
		return false
	}
	list := k.attrs[name]
	n := min(len(list), len(values))
	for i := 0; i < n; i++ {
		value, ok := el.Attr(list[i])
		var got Value
		if ok {
			got = V(value)
		}
		if !got.Equal(values[i]) {
			return false
		}
	}
	return true
}

func fold(s string) string {
	return cases.Fold().String(s)
}
