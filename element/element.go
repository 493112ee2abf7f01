package element

import (
	"fmt"
	"strings"
)

// Attr is a single attribute on an Element. Order is preserved.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a named node with ordered attributes and ordered children.
//
// Elements placed in a Store are treated as immutable: callers that need a
// variant must Clone first (or use WithAttr, which clones for them).
type Element struct {
	Name     string     `json:"name"`
	Attrs    []Attr     `json:"attrs,omitempty"`
	Children []*Element `json:"children,omitempty"`
	Text     string     `json:"text,omitempty"`
}

// New constructs an element from name and alternating attribute name/value
// pairs. A trailing unpaired name is ignored.
func New(name string, pairs ...string) *Element {
	el := &Element{Name: name}
	for i := 0; i+1 < len(pairs); i += 2 {
		el.Attrs = append(el.Attrs, Attr{Name: pairs[i], Value: pairs[i+1]})
	}
	return el
}

// Append adds children to e and returns e for chaining.
func (e *Element) Append(children ...*Element) *Element {
	for _, child := range children {
		if child != nil {
			e.Children = append(e.Children, child)
		}
	}
	return e
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, attr := range e.Attrs {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or fallback when absent.
func (e *Element) AttrOr(name, fallback string) string {
	if value, ok := e.Attr(name); ok {
		return value
	}
	return fallback
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// BoolAttr reads an optional boolean attribute ("true"/"false", any case).
func (e *Element) BoolAttr(name string, fallback bool) bool {
	value, ok := e.Attr(name)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	default:
		return fallback
	}
}

// SetAttr sets an attribute in place, replacing an existing value or
// appending a new attribute. Only use on elements not yet placed in a Store.
func (e *Element) SetAttr(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// RemoveAttr deletes the named attribute in place.
func (e *Element) RemoveAttr(name string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return
		}
	}
}

// WithAttr returns a deep copy of e with the attribute set.
func (e *Element) WithAttr(name, value string) *Element {
	clone := e.Clone()
	clone.SetAttr(name, value)
	return clone
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	clone := &Element{
		Name: e.Name,
		Text: e.Text,
	}
	if len(e.Attrs) > 0 {
		clone.Attrs = make([]Attr, len(e.Attrs))
		copy(clone.Attrs, e.Attrs)
	}
	if len(e.Children) > 0 {
		clone.Children = make([]*Element, len(e.Children))
		for i, child := range e.Children {
			clone.Children[i] = child.Clone()
		}
	}
	return clone
}

// Equal reports structural equality: same name, text, attributes in the same
// order and pairwise equal children.
func (e *Element) Equal(other *Element) bool {
	if e == nil || other == nil {
		return e == other
	}
	if e.Name != other.Name || e.Text != other.Text {
		return false
	}
	if len(e.Attrs) != len(other.Attrs) || len(e.Children) != len(other.Children) {
		return false
	}
	for i := range e.Attrs {
		if e.Attrs[i] != other.Attrs[i] {
			return false
		}
	}
	for i := range e.Children {
		if !e.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// FirstChild returns the first child element, or nil.
func (e *Element) FirstChild() *Element {
	if e == nil || len(e.Children) == 0 {
		return nil
	}
	return e.Children[0]
}

// Child returns the first child with the given name, or nil.
func (e *Element) Child(name string) *Element {
	if e == nil {
		return nil
	}
	for _, child := range e.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Walk visits e and its descendants depth-first in document order. Returning
// false from fn skips the element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if e == nil || fn == nil {
		return
	}
	if !fn(e) {
		return
	}
	for _, child := range e.Children {
		child.Walk(fn)
	}
}

// ToMap exposes the element as plain data for expression environments.
func (e *Element) ToMap() map[string]any {
	if e == nil {
		return nil
	}
	attrs := make(map[string]any, len(e.Attrs))
	for _, attr := range e.Attrs {
		attrs[attr.Name] = attr.Value
	}
	children := make([]any, 0, len(e.Children))
	for _, child := range e.Children {
		children = append(children, child.ToMap())
	}
	return map[string]any{
		"name":     e.Name,
		"attrs":    attrs,
		"children": children,
		"text":     e.Text,
	}
}

// String renders a compact single-line form, e.g. layout(class=A,type=B)[2].
func (e *Element) String() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Name)
	b.WriteByte('(')
	for i, attr := range e.Attrs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%s", attr.Name, attr.Value)
	}
	b.WriteByte(')')
	if len(e.Children) > 0 {
		fmt.Fprintf(&b, "[%d]", len(e.Children))
	}
	return b.String()
}
