package inventory

import (
	"encoding/json"

	"github.com/goliatone/go-inventory/element"
)

// Trace captures where an element came from across the three stores.
type Trace struct {
	Key    string       `json:"key"`
	Layers []Provenance `json:"layers"`
}

// Provenance details one store's contribution to a traced key.
type Provenance struct {
	Store  string           `json:"store"`
	Origin string           `json:"origin,omitempty"`
	Kind   Kind             `json:"kind,omitempty"`
	Found  bool             `json:"found"`
	Value  *element.Element `json:"value,omitempty"`
}

// Trace reports Main, Base and Alterations entries for name and key values,
// with the source file and classification of each. Main is resolved first.
func (inv *Inventory) Trace(name string, values ...string) Trace {
	key := inv.keys.Lookup(name, element.Values(values...)...)
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.current.lookup(key)

	trace := Trace{Key: key.String()}
	for _, id := range []element.StoreID{element.StoreMain, element.StoreBase, element.StoreAlterations} {
		layer := Provenance{Store: id.String()}
		if el, ok := inv.current.store(id).Get(key); ok {
			layer.Found = true
			layer.Value = el
			if o, ok := inv.current.originOf(id, key); ok {
				layer.Origin = o.path
				layer.Kind = o.kind
			}
		}
		trace.Layers = append(trace.Layers, layer)
	}
	return trace
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
