package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-inventory/element"
)

// Keys reserved inside an element mapping of the YAML/JSON layout:
//
//	layout:
//	  class: LexEntry
//	  children:
//	    - part: {ref: Headword}
//	  "#text": optional character data
const (
	ChildrenKey = "children"
	TextKey     = "#text"
)

// YAMLCodec reads and writes element trees as YAML. An element is a
// single-key mapping from its name to a mapping of scalar attributes, an
// optional children sequence and optional text.
type YAMLCodec struct{}

func (YAMLCodec) Decode(payload []byte) (*element.Element, error) {
	return decodeTree(payload)
}

func (YAMLCodec) Encode(doc *element.Element) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yamlElement(doc)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSONCodec reads JSON with comments and trailing commas and writes plain
// JSON, using the same layout as YAMLCodec.
type JSONCodec struct{}

func (JSONCodec) Decode(payload []byte) (*element.Element, error) {
	return decodeTree(jsonc.ToJSON(payload))
}

func (JSONCodec) Encode(doc *element.Element) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, doc, ""); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func decodeTree(payload []byte) (*element.Element, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(payload, &node); err != nil {
		return nil, err
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, fmt.Errorf("document has no root element")
	}
	return nodeElement(node.Content[0])
}

func nodeElement(node *yaml.Node) (*element.Element, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return nil, fmt.Errorf("line %d: element must be a single-key mapping", node.Line)
	}
	name, body := node.Content[0], node.Content[1]
	el := &element.Element{Name: name.Value}
	switch body.Kind {
	case yaml.ScalarNode:
		if body.Tag != "!!null" && body.Value != "" {
			el.Text = strings.TrimSpace(body.Value)
		}
		return el, nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("line %d: element %q must map to attributes", body.Line, el.Name)
	}
	for i := 0; i+1 < len(body.Content); i += 2 {
		key, value := body.Content[i], body.Content[i+1]
		switch {
		case key.Value == ChildrenKey && value.Kind == yaml.SequenceNode:
			for _, item := range value.Content {
				child, err := nodeElement(item)
				if err != nil {
					return nil, err
				}
				el.Append(child)
			}
		case key.Value == TextKey && value.Kind == yaml.ScalarNode:
			el.Text = strings.TrimSpace(value.Value)
		case value.Kind == yaml.ScalarNode:
			attr := value.Value
			if value.Tag == "!!null" {
				attr = ""
			}
			el.Attrs = append(el.Attrs, element.Attr{Name: key.Value, Value: attr})
		default:
			return nil, fmt.Errorf("line %d: attribute %q of %q must be a scalar", value.Line, key.Value, el.Name)
		}
	}
	return el, nil
}

func yamlElement(el *element.Element) *yaml.Node {
	body := &yaml.Node{Kind: yaml.MappingNode}
	for _, attr := range el.Attrs {
		body.Content = append(body.Content, yamlString(attr.Name), yamlString(attr.Value))
	}
	if el.Text != "" {
		body.Content = append(body.Content, yamlString(TextKey), yamlString(el.Text))
	}
	if len(el.Children) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, child := range el.Children {
			seq.Content = append(seq.Content, yamlElement(child))
		}
		body.Content = append(body.Content, yamlString(ChildrenKey), seq)
	}
	if len(body.Content) == 0 {
		body.Style = yaml.FlowStyle
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{yamlString(el.Name), body}}
}

func yamlString(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// writeJSON emits members in element order; encoding/json maps would sort
// them.
func writeJSON(buf *bytes.Buffer, el *element.Element, indent string) error {
	inner := indent + "  "
	name, err := json.Marshal(el.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, "{%s: {", name)
	first := true
	member := func(key string) error {
		raw, err := json.Marshal(key)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(buf, "\n%s%s: ", inner, raw)
		return nil
	}
	for _, attr := range el.Attrs {
		if err := member(attr.Name); err != nil {
			return err
		}
		value, err := json.Marshal(attr.Value)
		if err != nil {
			return err
		}
		buf.Write(value)
	}
	if el.Text != "" {
		if err := member(TextKey); err != nil {
			return err
		}
		value, err := json.Marshal(el.Text)
		if err != nil {
			return err
		}
		buf.Write(value)
	}
	if len(el.Children) > 0 {
		if err := member(ChildrenKey); err != nil {
			return err
		}
		buf.WriteByte('[')
		for i, child := range el.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("\n" + inner + "  ")
			if err := writeJSON(buf, child, inner+"  "); err != nil {
				return err
			}
		}
		buf.WriteString("\n" + inner + "]")
	}
	if !first {
		buf.WriteString("\n" + indent)
	}
	buf.WriteString("}}")
	return nil
}
