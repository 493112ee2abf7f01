package element

// StoreID names one of the three stores an inventory keeps.
type StoreID int

const (
	// StoreUnknown guards against zero-value misuse.
	StoreUnknown StoreID = iota
	// StoreMain holds the resolved elements served to callers.
	StoreMain
	// StoreBase holds the pre-override version of overridden elements.
	StoreBase
	// StoreAlterations holds raw derivation and override nodes.
	StoreAlterations
)

func (id StoreID) String() string {
	switch id {
	case StoreMain:
		return "main"
	case StoreBase:
		return "base"
	case StoreAlterations:
		return "alterations"
	default:
		return "unknown"
	}
}

// ParseStoreID converts a string into the matching StoreID. Unrecognised
// values return StoreUnknown.
func ParseStoreID(value string) StoreID {
	switch value {
	case "main", "MAIN":
		return StoreMain
	case "base", "BASE":
		return StoreBase
	case "alterations", "ALTERATIONS", "alteration":
		return StoreAlterations
	default:
		return StoreUnknown
	}
}

// Store is an ordered collection of top-level elements indexed by key.
// Elements live in slots addressed by stable indices; replacing an element
// swaps its slot, removing one clears it. A Store is not safe for concurrent
// use; the owning inventory serialises access.
type Store struct {
	id    StoreID
	keys  Keys
	slots []*Element
	index map[string]int
	live  int
}

// NewStore constructs an empty store.
func NewStore(id StoreID, keys Keys) *Store {
	return &Store{
		id:    id,
		keys:  keys,
		index: map[string]int{},
	}
}

// ID reports which store this is.
func (s *Store) ID() StoreID {
	if s == nil {
		return StoreUnknown
	}
	return s.id
}

// Keys returns the key table used to index the store.
func (s *Store) Keys() Keys {
	return s.keys
}

// Len returns the number of live elements.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.live
}

// Put inserts el, replacing any element with the same key in its slot.
// The replaced element is returned.
func (s *Store) Put(el *Element) *Element {
	if el == nil {
		return nil
	}
	canonical := s.keys.Of(el).Canonical()
	if slot, ok := s.index[canonical]; ok {
		previous := s.slots[slot]
		s.slots[slot] = el
		return previous
	}
	s.index[canonical] = len(s.slots)
	s.slots = append(s.slots, el)
	s.live++
	return nil
}

// Get returns the element stored under key.
func (s *Store) Get(key Key) (*Element, bool) {
	if s == nil {
		return nil, false
	}
	slot, ok := s.index[key.Canonical()]
	if !ok {
		return nil, false
	}
	return s.slots[slot], true
}

// Has reports whether key is present.
func (s *Store) Has(key Key) bool {
	_, ok := s.Get(key)
	return ok
}

// Remove deletes the element stored under key and returns it.
func (s *Store) Remove(key Key) (*Element, bool) {
	canonical := key.Canonical()
	slot, ok := s.index[canonical]
	if !ok {
		return nil, false
	}
	previous := s.slots[slot]
	s.slots[slot] = nil
	delete(s.index, canonical)
	s.live--
	return previous, true
}

// All returns the live elements in slot order.
func (s *Store) All() []*Element {
	return s.Select(nil)
}

// Select returns the top-level elements accepted by match (all when nil).
func (s *Store) Select(match func(*Element) bool) []*Element {
	if s == nil {
		return nil
	}
	out := make([]*Element, 0, s.live)
	for _, el := range s.slots {
		if el == nil {
			continue
		}
		if match == nil || match(el) {
			out = append(out, el)
		}
	}
	return out
}

// Descendants returns every element at any depth accepted by match, in
// document order.
func (s *Store) Descendants(match func(*Element) bool) []*Element {
	var out []*Element
	s.Walk(func(el *Element) bool {
		if match == nil || match(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Walk visits every element depth-first in document order.
func (s *Store) Walk(fn func(*Element) bool) {
	if s == nil {
		return
	}
	for _, el := range s.slots {
		if el != nil {
			el.Walk(fn)
		}
	}
}

// Root returns a synthetic "Main" element whose children are the live
// elements. The children are shared, not copied.
func (s *Store) Root() *Element {
	return &Element{Name: "Main", Children: s.All()}
}

// Clone returns a store sharing the (immutable) elements but owning its
// slots and index, so it can be modified without affecting s.
func (s *Store) Clone() *Store {
	clone := &Store{
		id:    s.id,
		keys:  s.keys,
		slots: make([]*Element, len(s.slots)),
		index: make(map[string]int, len(s.index)),
		live:  s.live,
	}
	copy(clone.slots, s.slots)
	for key, slot := range s.index {
		clone.index[key] = slot
	}
	return clone
}
