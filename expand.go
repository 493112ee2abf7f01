package inventory

import (
	"sort"
	"strings"

	"github.com/goliatone/go-inventory/element"
)

// ExpandTagged adds a per-tag copy of every loaded element flagged
// tagForWs="true". The copy is named "<name>-<tag>"; its sublayout children
// and non-empty part params get the same suffix. Copies that already exist
// are left alone. It returns the number of elements added.
func (inv *Inventory) ExpandTagged(tag string) (int, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return 0, nil
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	scratch := inv.current.clone()
	tagged := append([]element.Key(nil), scratch.tagged...)
	added := 0
	for _, key := range tagged {
		el, ok := scratch.lookup(key)
		if !ok || !el.BoolAttr(TagAttr, false) {
			continue
		}
		name, ok := el.Attr("name")
		if !ok {
			continue
		}
		expanded := el.Clone()
		expanded.RemoveAttr(BaseAttr)
		expanded.SetAttr("name", name+"-"+tag)
		if _, exists := scratch.lookup(inv.keys.Of(expanded)); exists {
			continue
		}
		for _, child := range expanded.Children {
			switch child.Name {
			case "sublayout":
				if sub, ok := child.Attr("name"); ok {
					child.SetAttr("name", sub+"-"+tag)
				}
			case "part":
				if param := child.AttrOr("param", ""); param != "" {
					child.SetAttr("param", param+"-"+tag)
				}
			}
		}
		o, _ := scratch.originOf(element.StoreMain, key)
		if _, err := scratch.classify(expanded, o.path); err != nil {
			return 0, err
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}
	scratch.tagged = tagged
	inv.current = scratch
	inv.unifier.Reset()
	inv.cfg.logger.Debug("expanded tagged elements", "tag", tag, "added", added)
	return added, nil
}

// DuplicateKeys returns the distinct duplicate suffixes (the text after '%')
// found in Main key values, sorted.
func (inv *Inventory) DuplicateKeys() []string {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	seen := map[string]struct{}{}
	for _, el := range inv.current.main.All() {
		for _, value := range inv.keys.Of(el).Values {
			text := value.Text()
			idx := strings.IndexRune(text, duplicateMarker)
			if idx < 0 || idx == len(text)-1 {
				continue
			}
			seen[text[idx+1:]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for suffix := range seen {
		out = append(out, suffix)
	}
	sort.Strings(out)
	return out
}
