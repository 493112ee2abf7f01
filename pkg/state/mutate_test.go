package state_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-inventory/element"
	"github.com/goliatone/go-inventory/pkg/state"
)

var (
	inventoryPath = element.MustParsePath("/LayoutInventory/*")
	layoutKeys    = element.NewKeys(map[string][]string{
		"layout":     {"class", "type", "name"},
		"layoutType": {"label"},
	})
)

type failingStore struct {
	state.Store
	loadErr error
	saves   int
}

func (s *failingStore) Load(ctx context.Context, ref state.Ref) (*element.Element, state.Meta, bool, error) {
	if s.loadErr != nil {
		return nil, state.Meta{}, false, s.loadErr
	}
	return s.Store.Load(ctx, ref)
}

func (s *failingStore) Save(ctx context.Context, ref state.Ref, doc *element.Element, meta state.Meta) (state.Meta, error) {
	s.saves++
	return s.Store.Save(ctx, ref, doc, meta)
}

func TestMutateCreatesDocument(t *testing.T) {
	store := state.NewMemoryStore()
	ref := state.Ref{Path: "/user/LexEntry.fwlayout"}
	override := element.New("layout", "class", "LexEntry", "type", "detail", "name", "Normal", "base", "Normal")

	doc, meta, err := state.Mutate(context.Background(), store, ref, state.Meta{}, func(doc *element.Element) (*element.Element, error) {
		if doc != nil {
			t.Fatalf("expected nil document on first mutate")
		}
		return state.Upsert(doc, inventoryPath, layoutKeys, override)
	})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if meta.ETag == "" {
		t.Fatalf("expected saved etag")
	}
	want := inventoryPath.Wrap(override)
	if !doc.Equal(want) {
		t.Fatalf("unexpected document %s", doc)
	}
}

func TestMutateETagMismatchDoesNotCallMutator(t *testing.T) {
	store := state.NewMemoryStore()
	ref := state.Ref{Path: "/user/a.fwlayout"}
	if _, err := store.Save(context.Background(), ref, inventoryPath.Wrap(), state.Meta{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	called := false
	_, _, err := state.Mutate(context.Background(), store, ref, state.Meta{ETag: "other"}, func(doc *element.Element) (*element.Element, error) {
		called = true
		return doc, nil
	})
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected etag mismatch, got %v", err)
	}
	if called {
		t.Fatalf("mutator must not run on etag mismatch")
	}
}

func TestMutateErrorsDoNotSave(t *testing.T) {
	store := &failingStore{Store: state.NewMemoryStore()}
	ref := state.Ref{Path: "/user/a.fwlayout"}
	boom := errors.New("boom")

	if _, _, err := state.Mutate(context.Background(), store, ref, state.Meta{}, func(*element.Element) (*element.Element, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	if _, _, err := state.Mutate(context.Background(), store, ref, state.Meta{}, func(*element.Element) (*element.Element, error) {
		return nil, nil
	}); err == nil {
		t.Fatalf("expected error for nil document")
	}
	store.loadErr = boom
	if _, _, err := state.Mutate(context.Background(), store, ref, state.Meta{}, func(doc *element.Element) (*element.Element, error) {
		return doc, nil
	}); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no saves, got %d", store.saves)
	}
	if _, _, err := state.Mutate(context.Background(), nil, ref, state.Meta{}, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestUpsertReplacesMatchingElement(t *testing.T) {
	doc := element.New("LayoutInventory").Append(
		element.New("layoutType", "label", "Lexeme"),
		element.New("layout", "class", "LexEntry", "type", "detail", "name", "Normal", "visible", "true"),
	)
	before := doc.Clone()
	replacement := element.New("layout", "class", "LexEntry", "type", "detail", "name", "normal", "visible", "false")
	added := element.New("layout", "class", "LexSense", "type", "detail", "name", "Normal")

	out, err := state.Upsert(doc, inventoryPath, layoutKeys, replacement, added)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !doc.Equal(before) {
		t.Fatalf("input document was mutated")
	}
	if len(out.Children) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(out.Children))
	}
	if !out.Children[1].Equal(replacement) || !out.Children[2].Equal(added) {
		t.Fatalf("unexpected upsert result %v", out.Children)
	}
}

func TestRewriteKeepsContentOutsideContainers(t *testing.T) {
	path := element.MustParsePath("/Root/Layouts/*")
	doc := element.New("Root").Append(
		element.New("Header", "v", "1"),
		element.New("Layouts").Append(element.New("layout", "name", "old")),
	)
	survivor := element.New("layout", "name", "kept")

	out, err := state.Rewrite(doc, path, []*element.Element{survivor})
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !out.Children[0].Equal(element.New("Header", "v", "1")) {
		t.Fatalf("expected header to be kept")
	}
	if got := path.Select(out); len(got) != 1 || !got[0].Equal(survivor) {
		t.Fatalf("unexpected survivors %v", got)
	}

	if _, err := state.Rewrite(element.New("Other"), path, nil); err == nil {
		t.Fatalf("expected error for document without container")
	}
}
