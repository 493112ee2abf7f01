package activity

import (
	"reflect"
	"testing"
)

func TestBuildInventoryEvents(t *testing.T) {
	input := InventoryEventInput{
		Root:       "/LayoutInventory/*",
		Files:      []string{"a.fwlayout", "b.fwlayout"},
		Elements:   7,
		Generation: 2,
	}

	loaded := BuildLoadedEvent(input)
	if loaded.Verb != VerbLoaded || loaded.ObjectType != ObjectInventory || loaded.ObjectID != "/LayoutInventory/*" {
		t.Fatalf("unexpected loaded event %+v", loaded)
	}
	if loaded.Metadata["elements"] != 7 || loaded.Metadata["generation"] != uint64(2) {
		t.Fatalf("unexpected metadata %+v", loaded.Metadata)
	}
	if !reflect.DeepEqual(loaded.Metadata["files"], input.Files) {
		t.Fatalf("expected files metadata, got %v", loaded.Metadata["files"])
	}
	input.Files[0] = "changed"
	if loaded.Metadata["files"].([]string)[0] != "a.fwlayout" {
		t.Fatalf("expected files to be copied")
	}

	reloaded := BuildReloadedEvent(InventoryEventInput{})
	if reloaded.Verb != VerbReloaded || reloaded.ObjectID != ObjectInventory {
		t.Fatalf("unexpected reloaded event %+v", reloaded)
	}
}

func TestBuildElementEvents(t *testing.T) {
	cases := []struct {
		name  string
		build func(ElementEventInput) Event
		verb  string
	}{
		{name: "overridden", build: BuildOverriddenEvent, verb: VerbOverridden},
		{name: "merged", build: BuildMergedEvent, verb: VerbMerged},
		{name: "dropped", build: BuildDroppedEvent, verb: VerbDropped},
		{name: "persisted", build: BuildPersistedEvent, verb: VerbPersisted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := tc.build(ElementEventInput{
				Key:     " layout: LexEntry-detail-Normal ",
				Source:  "user/LexEntry.fwlayout",
				Version: "3",
				Reason:  "no match",
			})
			if event.Verb != tc.verb || event.ObjectType != ObjectElement {
				t.Fatalf("unexpected event %+v", event)
			}
			if event.ObjectID != "layout: LexEntry-detail-Normal" {
				t.Fatalf("unexpected object id %q", event.ObjectID)
			}
			want := map[string]any{"source": "user/LexEntry.fwlayout", "version": "3", "reason": "no match"}
			if !reflect.DeepEqual(want, event.Metadata) {
				t.Fatalf("unexpected metadata %+v", event.Metadata)
			}
		})
	}

	fallback := BuildDroppedEvent(ElementEventInput{Source: "a.fwlayout"})
	if fallback.ObjectID != "a.fwlayout" {
		t.Fatalf("expected source fallback, got %q", fallback.ObjectID)
	}
	if BuildDroppedEvent(ElementEventInput{}).ObjectID != ObjectElement {
		t.Fatalf("expected object type fallback")
	}
}
