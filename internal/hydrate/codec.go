package hydrate

import (
	"path/filepath"
	"strings"

	"github.com/goliatone/go-inventory/element"
)

// Format names a source encoding.
type Format string

const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Codec decodes a whole document into its root element and encodes it back.
type Codec interface {
	Decode(payload []byte) (*element.Element, error)
	Encode(doc *element.Element) ([]byte, error)
}

// FormatFor picks the format from a file extension. Unknown extensions
// (.fwlayout, .xml, ...) are XML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json", ".jsonc":
		return FormatJSON
	case ".cbor":
		return FormatCBOR
	default:
		return FormatXML
	}
}

// ParseFormat converts a user supplied name into a Format.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "xml":
		return FormatXML, true
	case "yaml", "yml":
		return FormatYAML, true
	case "json", "jsonc":
		return FormatJSON, true
	case "cbor":
		return FormatCBOR, true
	default:
		return "", false
	}
}
