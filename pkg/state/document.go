package state

import (
	"fmt"

	"github.com/goliatone/go-inventory/element"
)

// Upsert returns a copy of doc in which every element replaces the first
// element under path with the same key, or is appended to the first
// container. A nil doc starts from an empty document at path.
func Upsert(doc *element.Element, path element.Path, keys element.Keys, elements ...*element.Element) (*element.Element, error) {
	out, containers, err := editable(doc, path)
	if err != nil {
		return nil, err
	}
	for _, el := range elements {
		if el == nil {
			continue
		}
		if !replaceMatch(containers, keys, el) {
			containers[0].Append(el.Clone())
		}
	}
	return out, nil
}

// Rewrite returns a copy of doc whose elements under path are exactly
// survivors, held by the first container. Content outside the containers is
// kept.
func Rewrite(doc *element.Element, path element.Path, survivors []*element.Element) (*element.Element, error) {
	out, containers, err := editable(doc, path)
	if err != nil {
		return nil, err
	}
	for _, container := range containers {
		container.Children = nil
	}
	for _, el := range survivors {
		containers[0].Append(el.Clone())
	}
	return out, nil
}

func editable(doc *element.Element, path element.Path) (*element.Element, []*element.Element, error) {
	if path.IsZero() {
		return nil, nil, fmt.Errorf("state: structural path is required")
	}
	var out *element.Element
	if doc == nil {
		out = path.Wrap()
	} else {
		out = doc.Clone()
	}
	containers := path.Containers(out)
	if len(containers) == 0 {
		return nil, nil, fmt.Errorf("state: document %q has no container at %s", out.Name, path)
	}
	return out, containers, nil
}

func replaceMatch(containers []*element.Element, keys element.Keys, el *element.Element) bool {
	for _, container := range containers {
		for i, child := range container.Children {
			if keys.Match(child, el) {
				container.Children[i] = el.Clone()
				return true
			}
		}
	}
	return false
}
