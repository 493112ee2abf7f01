package element

import "testing"

func newTestStore() *Store {
	return NewStore(StoreMain, NewKeys(map[string][]string{"e": {"id"}}))
}

func TestStorePutReplacesInSlot(t *testing.T) {
	store := newTestStore()
	store.Put(New("e", "id", "1", "val", "foo"))
	store.Put(New("e", "id", "2"))
	previous := store.Put(New("e", "id", "1", "val", "bar"))

	if previous == nil || previous.AttrOr("val", "") != "foo" {
		t.Fatalf("expected replaced element returned, got %v", previous)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 elements, got %d", store.Len())
	}
	all := store.All()
	if all[0].AttrOr("val", "") != "bar" {
		t.Fatalf("expected replacement to keep slot position, got %v", all)
	}
}

func TestStoreGetRemove(t *testing.T) {
	store := newTestStore()
	store.Put(New("e", "id", "A"))

	if _, ok := store.Get(NewKey("e", "a")); !ok {
		t.Fatalf("expected case-insensitive hit")
	}
	if _, ok := store.Get(Key{Name: "e", Values: []Value{Absent}}); ok {
		t.Fatalf("expected absent key to miss")
	}
	if _, ok := store.Remove(NewKey("e", "A")); !ok {
		t.Fatalf("expected remove to succeed")
	}
	if store.Len() != 0 || store.Has(NewKey("e", "A")) {
		t.Fatalf("expected store to be empty")
	}
	store.Put(New("e", "id", "A"))
	if store.Len() != 1 || len(store.All()) != 1 {
		t.Fatalf("expected re-insert after removal, got %d", store.Len())
	}
}

func TestStoreCloneIsIndependent(t *testing.T) {
	store := newTestStore()
	store.Put(New("e", "id", "1"))

	clone := store.Clone()
	clone.Put(New("e", "id", "2"))
	clone.Remove(NewKey("e", "1"))

	if store.Len() != 1 || !store.Has(NewKey("e", "1")) {
		t.Fatalf("expected original store untouched")
	}
	if clone.Len() != 1 || !clone.Has(NewKey("e", "2")) {
		t.Fatalf("unexpected clone contents %v", clone.All())
	}
}

func TestStoreDescendants(t *testing.T) {
	store := newTestStore()
	store.Put(New("e", "id", "1").Append(New("part", "ref", "x"), New("part", "ref", "y")))
	store.Put(New("e", "id", "2").Append(New("part", "ref", "z")))

	parts := store.Descendants(func(el *Element) bool { return el.Name == "part" })
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if parts[2].AttrOr("ref", "") != "z" {
		t.Fatalf("expected document order, got %v", parts)
	}
}

func TestParseStoreID(t *testing.T) {
	for _, id := range []StoreID{StoreMain, StoreBase, StoreAlterations} {
		if got := ParseStoreID(id.String()); got != id {
			t.Fatalf("round trip %v -> %v", id, got)
		}
	}
	if ParseStoreID("other") != StoreUnknown {
		t.Fatalf("expected unknown for unrecognised input")
	}
}
