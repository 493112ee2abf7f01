package state_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/pkg/state"
)

type storeFactory struct {
	name string
	new  func(t *testing.T) (state.Store, string)
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", new: func(t *testing.T) (state.Store, string) {
			return state.NewMemoryStore(), filepath.Join(string(filepath.Separator), "user")
		}},
		{name: "file", new: func(t *testing.T) (state.Store, string) {
			return state.NewFileStore(nil), t.TempDir()
		}},
	}
}

func sampleDoc() *element.Element {
	return element.New("LayoutInventory").Append(
		element.New("layout", "class", "LexEntry", "type", "detail", "name", "Normal").Append(
			element.New("part", "ref", "Headword"),
		),
	)
}

func TestStoreContracts(t *testing.T) {
	ctx := context.Background()
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			store, dir := factory.new(t)
			ref := state.Ref{Path: filepath.Join(dir, "LexEntry.fwlayout")}

			if _, _, ok, err := store.Load(ctx, ref); err != nil || ok {
				t.Fatalf("expected missing document, got ok=%t err=%v", ok, err)
			}

			meta, err := store.Save(ctx, ref, sampleDoc(), state.Meta{Extra: map[string]string{"by": "test"}})
			if err != nil {
				t.Fatalf("save: %v", err)
			}
			if meta.ETag == "" || meta.UpdatedAt.IsZero() || meta.Extra["by"] != "test" {
				t.Fatalf("unexpected save meta %+v", meta)
			}

			doc, loaded, ok, err := store.Load(ctx, ref)
			if err != nil || !ok {
				t.Fatalf("load: ok=%t err=%v", ok, err)
			}
			if !doc.Equal(sampleDoc()) {
				t.Fatalf("loaded document mismatch: %s", doc)
			}
			if loaded.ETag != meta.ETag {
				t.Fatalf("expected etag %q, got %q", meta.ETag, loaded.ETag)
			}

			changed := sampleDoc()
			changed.Children[0].SetAttr("visible", "false")
			if _, err := store.Save(ctx, ref, changed, state.Meta{ETag: "stale"}); !errors.Is(err, state.ErrETagMismatch) {
				t.Fatalf("expected etag mismatch, got %v", err)
			}
			next, err := store.Save(ctx, ref, changed, state.Meta{ETag: loaded.ETag})
			if err != nil {
				t.Fatalf("save with matching etag: %v", err)
			}
			if next.ETag == loaded.ETag {
				t.Fatalf("expected a new etag after content change")
			}

			other := state.Ref{Path: filepath.Join(dir, "LexSense.fwlayout")}
			if _, err := store.Save(ctx, other, sampleDoc(), state.Meta{}); err != nil {
				t.Fatalf("save other: %v", err)
			}
			refs, err := store.List(ctx, dir, "*.fwlayout")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(refs) != 2 || refs[0].Path != ref.Path || refs[1].Path != other.Path {
				t.Fatalf("unexpected listing %v", refs)
			}

			if err := store.Delete(ctx, ref); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := store.Delete(ctx, ref); err != nil {
				t.Fatalf("second delete should be a no-op: %v", err)
			}
			if _, _, ok, _ := store.Load(ctx, ref); ok {
				t.Fatalf("expected deleted document to be gone")
			}
		})
	}
}

func TestRefIdentifierRequiresPath(t *testing.T) {
	if _, err := (state.Ref{}).Identifier(); err == nil {
		t.Fatalf("expected error for empty ref")
	}
	id, err := state.Ref{Path: "user/./a.fwlayout"}.Identifier()
	if err != nil || id != filepath.Join("user", "a.fwlayout") {
		t.Fatalf("unexpected identifier %q %v", id, err)
	}
}

func TestFileStoreWritesCodecByExtension(t *testing.T) {
	dir := t.TempDir()
	store := state.NewFileStore(nil)
	path := filepath.Join(dir, "LexEntry.yaml")
	if _, err := store.Save(context.Background(), state.Ref{Path: path}, sampleDoc(), state.Meta{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(raw) == 0 || raw[0] == '<' {
		t.Fatalf("expected yaml output, got %q", raw)
	}
}

func TestListMissingDirectory(t *testing.T) {
	refs, err := state.NewFileStore(nil).List(context.Background(), filepath.Join(t.TempDir(), "missing"), "*.fwlayout")
	if err != nil || len(refs) != 0 {
		t.Fatalf("expected empty listing, got %v %v", refs, err)
	}
}
