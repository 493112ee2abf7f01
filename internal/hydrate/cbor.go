package hydrate

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/goliatone/go-inventory/element"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("hydrate: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("hydrate: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORCodec stores documents as deterministic CBOR maps shaped like the JSON
// element form (name, attrs, children, text).
type CBORCodec struct{}

func (CBORCodec) Decode(payload []byte) (*element.Element, error) {
	var doc element.Element
	if err := cborDec.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("cbor document has no root element name")
	}
	return &doc, nil
}

func (CBORCodec) Encode(doc *element.Element) ([]byte, error) {
	return cborEnc.Marshal(doc)
}
