package element

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPath reports a structural path that is not of the form
// /outer/.../inner/*.
var ErrMalformedPath = errors.New("element: malformed path")

// Path is the fixed structural location of inventory elements inside a
// source document, e.g. /LayoutInventory/* or /Parts/bin/*.
type Path struct {
	parents []string
}

// ParsePath validates and parses a structural path.
func ParsePath(raw string) (Path, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || !strings.HasSuffix(raw, "/*") || len(raw) < 4 {
		return Path{}, fmt.Errorf("%w: %q must look like /outer/*", ErrMalformedPath, raw)
	}
	segments := strings.Split(raw[1:len(raw)-2], "/")
	for _, segment := range segments {
		if segment == "" || segment == "*" || strings.ContainsAny(segment, "[]@") {
			return Path{}, fmt.Errorf("%w: %q has an invalid segment %q", ErrMalformedPath, raw, segment)
		}
	}
	return Path{parents: segments}, nil
}

// MustParsePath is ParsePath for static configuration; it panics on error.
func MustParsePath(raw string) Path {
	path, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return path
}

// Parents returns the wrapper element names from outermost to innermost.
func (p Path) Parents() []string {
	return append([]string(nil), p.parents...)
}

// IsZero reports whether the path was never parsed.
func (p Path) IsZero() bool {
	return len(p.parents) == 0
}

func (p Path) String() string {
	if p.IsZero() {
		return ""
	}
	return "/" + strings.Join(p.parents, "/") + "/*"
}

// Containers returns every innermost wrapper element reachable from doc.
func (p Path) Containers(doc *Element) []*Element {
	if doc == nil || p.IsZero() || doc.Name != p.parents[0] {
		return nil
	}
	current := []*Element{doc}
	for _, name := range p.parents[1:] {
		var next []*Element
		for _, el := range current {
			for _, child := range el.Children {
				if child.Name == name {
					next = append(next, child)
				}
			}
		}
		current = next
	}
	return current
}

// Select returns the inventory elements of doc in document order.
func (p Path) Select(doc *Element) []*Element {
	var out []*Element
	for _, container := range p.Containers(doc) {
		out = append(out, container.Children...)
	}
	return out
}

// Wrap builds the minimal document holding children at the path.
func (p Path) Wrap(children ...*Element) *Element {
	if p.IsZero() {
		return nil
	}
	root := &Element{Name: p.parents[0]}
	inner := root
	for _, name := range p.parents[1:] {
		next := &Element{Name: name}
		inner.Children = append(inner.Children, next)
		inner = next
	}
	inner.Append(children...)
	return root
}
