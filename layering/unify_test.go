package layering

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-inventory/element"
)

func TestUnifyFromFixture(t *testing.T) {
	fx := loadUnifyFixture(t, "unify.json")
	keys := element.NewKeys(fx.Keys)

	for _, tc := range fx.Cases {
		t.Run(tc.Name, func(t *testing.T) {
			var alterationBefore, baseBefore *element.Element
			if tc.Alteration != nil {
				alterationBefore = tc.Alteration.Clone()
			}
			if tc.Base != nil {
				baseBefore = tc.Base.Clone()
			}

			got := Unify(tc.Alteration, tc.Base, keys)
			if !got.Equal(tc.Expect) {
				t.Fatalf("unified element mismatch:\nwant: %s\n got: %s", dump(tc.Expect), dump(got))
			}
			if !tc.Alteration.Equal(alterationBefore) || !tc.Base.Equal(baseBefore) {
				t.Fatalf("expected inputs to stay untouched")
			}
		})
	}
}

func TestUnifyReturnsFreshNodes(t *testing.T) {
	keys := element.NewKeys(map[string][]string{"P": {"k"}})
	base := element.New("e").Append(element.New("P", "k", "1"))
	alteration := element.New("e", "x", "1")

	got := Unify(alteration, base, keys)
	if got.Children[0] == base.Children[0] {
		t.Fatalf("expected copied children, got shared pointer")
	}
	if Unify(nil, nil, keys) != nil {
		t.Fatalf("expected nil when both inputs are nil")
	}
}

func TestUnifierMemoizesPairs(t *testing.T) {
	keys := element.NewKeys(map[string][]string{"part": {"ref"}})
	main := element.New("layout", "name", "Full").Append(element.New("part", "ref", "a"))
	alteration := element.New("part", "ref", "x").Append(element.New("part", "ref", "a", "visible", "false"))

	unifier := NewUnifier(keys)
	first := unifier.Children(main, alteration)
	second := unifier.Children(main, alteration)
	if first != second {
		t.Fatalf("expected memoized result for the same pair")
	}
	if first.AttrOr("name", "") != "Full" || first.HasAttr("ref") {
		t.Fatalf("expected main's attributes only, got %s", first)
	}
	if first.Children[0].AttrOr("visible", "") != "false" {
		t.Fatalf("expected alteration child merged, got %s", dump(first))
	}
	if unifier.Len() != 1 {
		t.Fatalf("expected one memo entry, got %d", unifier.Len())
	}

	unifier.Reset()
	if unifier.Len() != 0 {
		t.Fatalf("expected memo cleared")
	}
}

func TestUnifierSkip(t *testing.T) {
	main := element.New("layout").Append(element.New("part", "ref", "AsLexemeForm", "shouldNotMerge", "true"))
	unifier := NewUnifier(element.NewKeys(nil), WithSkip(func(main *element.Element) bool {
		for _, child := range main.Children {
			if child.BoolAttr("shouldNotMerge", false) {
				return true
			}
		}
		return false
	}))

	if got := unifier.Children(main, element.New("part").Append(element.New("x"))); got != main {
		t.Fatalf("expected skip predicate to return main unchanged")
	}
}

type unifyFixture struct {
	Description string              `json:"description"`
	Keys        map[string][]string `json:"keys"`
	Cases       []unifyFixtureCase  `json:"cases"`
}

type unifyFixtureCase struct {
	Name       string           `json:"name"`
	Alteration *element.Element `json:"alteration"`
	Base       *element.Element `json:"base"`
	Expect     *element.Element `json:"expect"`
}

func loadUnifyFixture(t *testing.T, name string) unifyFixture {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	var fx unifyFixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("decode fixture %s: %v", name, err)
	}
	return fx
}

func dump(el *element.Element) string {
	raw, err := json.Marshal(el)
	if err != nil {
		return el.String()
	}
	return string(raw)
}
