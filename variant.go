package inventory

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-inventory/element"
)

// Markers separating a base name from a named-variant or duplicate suffix.
const (
	variantMarker   = '#'
	duplicateMarker = '%'
	reversalMarker  = '-'
	fallbackMarker  = '_'
)

// StripVariant splits a named-variant or duplicate suffix off the "name"
// key value. It applies only when the third key attribute is "name"; the
// first of '#', '%' or '-' past the start wins, then '_'.
func StripVariant(key element.Key, attrs []string) (element.Key, string, bool) {
	if len(attrs) <= 2 || attrs[2] != "name" || len(key.Values) < 3 {
		return key, "", false
	}
	value := key.Values[2]
	if !value.Present() {
		return key, "", false
	}
	name := value.Text()
	idx := strings.IndexAny(name, string([]rune{variantMarker, duplicateMarker, reversalMarker}))
	if idx <= 0 {
		idx = strings.IndexRune(name, fallbackMarker)
	}
	if idx <= 0 {
		return key, "", false
	}
	return key.WithValue(2, element.V(name[:idx])), name[idx:], true
}

// variantTag returns the "#tag" part of a named variant, cut before any
// duplicate suffix.
func variantTag(name string) (string, bool) {
	idx := strings.IndexRune(name, variantMarker)
	if idx <= 0 {
		return "", false
	}
	tag := name[idx:]
	if cut := strings.IndexRune(tag, duplicateMarker); cut >= 0 {
		tag = tag[:cut]
	}
	return tag, tag != ""
}

// findDescriptor returns the Main descriptor whose link attribute ends with
// the variant tag of el.
func (inv *Inventory) findDescriptor(s *stores, el *element.Element) *element.Element {
	d := inv.cfg.descriptor
	if d.Name == "" || d.LinkAttr == "" {
		return nil
	}
	tag, ok := variantTag(el.AttrOr("name", ""))
	if !ok {
		return nil
	}
	for _, candidate := range s.main.Select(func(e *element.Element) bool { return e.Name == d.Name }) {
		if strings.HasSuffix(candidate.AttrOr(d.LinkAttr, ""), tag) {
			return candidate
		}
	}
	return nil
}

// overrideFileStem names the user file holding el: <label>_<class> for a
// named variant with a descriptor, the primary key value otherwise.
func (inv *Inventory) overrideFileStem(el, descriptor *element.Element) (string, error) {
	if descriptor != nil {
		label := descriptor.AttrOr(inv.cfg.descriptor.LabelAttr, "")
		class := descriptor.FirstChild().AttrOr("class", "")
		if label != "" && class != "" {
			return sanitizeFileStem(label + "_" + class), nil
		}
	}
	attrs := inv.keys.For(el.Name)
	if len(attrs) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoKeyAttributes, el.Name)
	}
	value := el.AttrOr(attrs[0], "")
	if value == "" {
		return "", fmt.Errorf("%w: %s lacks %q", ErrNoKeyAttributes, el.Name, attrs[0])
	}
	return sanitizeFileStem(value), nil
}

func (inv *Inventory) overridePath(stem string) string {
	suffix := strings.TrimLeft(inv.cfg.pattern, "*")
	if strings.ContainsAny(suffix, "*?[{/") {
		suffix = ""
	}
	return filepath.Join(inv.cfg.userDir, stem+suffix)
}

func sanitizeFileStem(stem string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '-'
		default:
			return r
		}
	}, stem)
}
