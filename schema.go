package inventory

import (
	"sort"

	"github.com/goliatone/go-inventory/element"
)

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

// SchemaFormatDescriptors represents per-element-name descriptors.
const SchemaFormatDescriptors SchemaFormat = "descriptors"

// SchemaDocument encapsulates a generated schema output alongside its format
// identifier. Document must be JSON-serialisable.
type SchemaDocument struct {
	Format   SchemaFormat `json:"format"`
	Document any          `json:"document"`
}

// SchemaGenerator describes the shape of an inventory. Implementations must
// be safe for concurrent use and return an empty document for a nil root.
type SchemaGenerator interface {
	Generate(root *element.Element, keys element.Keys) (SchemaDocument, error)
}

// ElementDescriptor summarises every element sharing one name.
type ElementDescriptor struct {
	Name       string   `json:"name"`
	Keys       []string `json:"keys,omitempty"`
	Count      int      `json:"count"`
	TopLevel   int      `json:"top_level"`
	Attributes []string `json:"attributes,omitempty"`
	Children   []string `json:"children,omitempty"`
}

// DefaultSchemaGenerator returns the built-in descriptor-based generator.
func DefaultSchemaGenerator() SchemaGenerator {
	return descriptorGenerator{}
}

type descriptorGenerator struct{}

func (descriptorGenerator) Generate(root *element.Element, keys element.Keys) (SchemaDocument, error) {
	return SchemaDocument{Format: SchemaFormatDescriptors, Document: DescribeElements(root, keys)}, nil
}

// DescribeElements summarises every element name under root's children,
// sorted by name. A nil root yields an empty slice.
func DescribeElements(root *element.Element, keys element.Keys) []ElementDescriptor {
	out := []ElementDescriptor{}
	if root == nil {
		return out
	}
	type acc struct {
		desc     ElementDescriptor
		attrs    map[string]struct{}
		children map[string]struct{}
	}
	byName := map[string]*acc{}
	get := func(name string) *acc {
		a, ok := byName[name]
		if !ok {
			a = &acc{
				desc:     ElementDescriptor{Name: name, Keys: keys.For(name)},
				attrs:    map[string]struct{}{},
				children: map[string]struct{}{},
			}
			byName[name] = a
		}
		return a
	}
	for _, top := range root.Children {
		get(top.Name).desc.TopLevel++
		top.Walk(func(el *element.Element) bool {
			a := get(el.Name)
			a.desc.Count++
			for _, attr := range el.Attrs {
				a.attrs[attr.Name] = struct{}{}
			}
			for _, child := range el.Children {
				a.children[child.Name] = struct{}{}
			}
			return true
		})
	}

	for _, a := range byName {
		a.desc.Attributes = sortedSet(a.attrs)
		a.desc.Children = sortedSet(a.children)
		out = append(out, a.desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe generates a schema document for the resolved inventory.
func (inv *Inventory) Describe() (SchemaDocument, error) {
	return inv.cfg.schema.Generate(inv.Root(), inv.keys)
}
