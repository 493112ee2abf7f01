package inventory

import (
	"context"
	"errors"
	"strconv"

	"github.com/goliatone/go-inventory/element"
)

// MakeOverride builds an override of the layout at the head of path that
// sets attr to value on the last part ref in path. path runs from a layout
// through the part refs leading to the target; when it passes through a
// sublayout the element after the last sublayout becomes the head. The
// override is a stamped copy of the head and the second result is the part
// ref inside it that carries attr.
func MakeOverride(path []*element.Element, attr, value string, version int) (*element.Element, *element.Element, error) {
	start := overrideHead(path)
	if start >= len(path) || path[start] == nil {
		return nil, nil, errors.New("inventory: override path has no layout")
	}
	result := path[start].Clone()
	result.SetAttr(VersionAttr, strconv.Itoa(version))

	var target *element.Element
	current := result
	for i := start + 1; i < len(path); i++ {
		node := path[i]
		if node == nil || node.Name != "part" {
			continue
		}
		ref, ok := node.Attr("ref")
		if !ok {
			continue
		}
		if parent := parentIn(path[:i], node); parent != nil && parent.Name == "indent" {
			current = adoptParent(current, parent)
		}
		child := matchingPartRef(current, node, ref)
		if child == nil {
			child = element.New("part", "ref", ref)
			if ref == "Custom" {
				if param := node.AttrOr("param", ""); param != "" {
					child.SetAttr("param", param)
				}
			}
			current.Append(child)
		}
		target = child
		current = child
	}
	if target == nil {
		return nil, nil, errors.New("inventory: override path has no part ref")
	}
	target.SetAttr(attr, value)
	return result, target, nil
}

// PersistAttrOverride builds an override with MakeOverride, stamped with the
// inventory version, and persists it.
func (inv *Inventory) PersistAttrOverride(ctx context.Context, path []*element.Element, attr, value string) (*element.Element, error) {
	override, _, err := MakeOverride(path, attr, value, inv.Version())
	if err != nil {
		return nil, err
	}
	if err := inv.PersistOverride(ctx, override); err != nil {
		return nil, err
	}
	return override, nil
}

func overrideHead(path []*element.Element) int {
	for i := len(path) - 1; i > 0; i-- {
		if path[i] != nil && path[i].Name == "sublayout" {
			return i + 1
		}
	}
	return 0
}

// parentIn finds the element holding node as a direct child within the
// trees of earlier, searching the nearest entries first.
func parentIn(earlier []*element.Element, node *element.Element) *element.Element {
	for i := len(earlier) - 1; i >= 0; i-- {
		var parent *element.Element
		earlier[i].Walk(func(el *element.Element) bool {
			if parent != nil {
				return false
			}
			for _, child := range el.Children {
				if child == node {
					parent = el
					return false
				}
			}
			return true
		})
		if parent != nil {
			return parent
		}
	}
	return nil
}

// adoptParent returns current's child named like parent, adding a copy of
// parent without children when there is none.
func adoptParent(current, parent *element.Element) *element.Element {
	if existing := current.Child(parent.Name); existing != nil {
		return existing
	}
	shallow := &element.Element{Name: parent.Name, Attrs: append([]element.Attr(nil), parent.Attrs...)}
	current.Append(shallow)
	return shallow
}

// matchingPartRef finds the child of parent referring to ref. Custom parts
// must also agree on param.
func matchingPartRef(parent, node *element.Element, ref string) *element.Element {
	param, hasParam := node.Attr("param")
	for _, child := range parent.Children {
		if childRef, ok := child.Attr("ref"); !ok || childRef != ref {
			continue
		}
		if ref != "Custom" {
			return child
		}
		if childParam, ok := child.Attr("param"); ok == hasParam && childParam == param {
			return child
		}
	}
	return nil
}
