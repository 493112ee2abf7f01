package hydrate

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-inventory/element"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>` + "\n"

// XMLCodec reads and writes element trees as XML. Comments and processing
// instructions are dropped; character data is trimmed. Attribute prefixes,
// namespace declarations included, are kept as written.
type XMLCodec struct{}

func (XMLCodec) Decode(payload []byte) (*element.Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	var (
		stack []*element.Element
		root  *element.Element
	)
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &element.Element{Name: t.Name.Local}
			for _, attr := range t.Attr {
				el.Attrs = append(el.Attrs, element.Attr{Name: xmlAttrName(attr.Name), Value: attr.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = el
			} else {
				stack[len(stack)-1].Append(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %q", t.Name.Local)
			}
			if open := stack[len(stack)-1].Name; open != t.Name.Local {
				return nil, fmt.Errorf("end element %q does not close %q", t.Name.Local, open)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if text := strings.TrimSpace(string(t)); text != "" {
				current := stack[len(stack)-1]
				current.Text += text
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return root, nil
}

func (XMLCodec) Encode(doc *element.Element) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := encodeXML(enc, doc); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func encodeXML(enc *xml.Encoder, el *element.Element) error {
	start := xml.StartElement{Name: xml.Name{Local: el.Name}}
	for _, attr := range el.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attr.Name}, Value: attr.Value})
	}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if el.Text != "" {
		if err := enc.EncodeToken(xml.CharData(el.Text)); err != nil {
			return err
		}
	}
	for _, child := range el.Children {
		if err := encodeXML(enc, child); err != nil {
			return err
		}
	}
	return enc.EncodeToken(start.End())
}

// xmlAttrName rebuilds the qualified name of a raw attribute.
func xmlAttrName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}
