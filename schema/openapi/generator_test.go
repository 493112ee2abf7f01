package openapi

import (
	"context"
	"testing"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/element"
)

func TestGeneratorDescribesInventory(t *testing.T) {
	inv, err := inventory.Open(context.Background(),
		inventory.WithPath("/LayoutInventory/*"),
		inventory.WithDirs("../../testdata/defaults"),
		inventory.WithKeys(map[string][]string{
			"layout": {"class", "type", "name"},
			"part":   {"ref"},
		}),
		Option(
			WithTitle("Layouts", "2.0.0"),
			WithEndpoint("GET", "/layouts"),
			WithSummary("All layouts"),
			WithMediaTypes("application/json", " ", "application/cbor"),
		),
	)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	doc, err := inv.Describe()
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if doc.Format != SchemaFormatOpenAPI {
		t.Fatalf("expected openapi format, got %q", doc.Format)
	}
	root := doc.Document.(map[string]any)
	if root["openapi"] != "3.0.3" {
		t.Fatalf("unexpected openapi version %v", root["openapi"])
	}
	info := root["info"].(map[string]any)
	if info["title"] != "Layouts" || info["version"] != "2.0.0" {
		t.Fatalf("unexpected info %v", info)
	}
	op := root["paths"].(map[string]any)["/layouts"].(map[string]any)["get"].(map[string]any)
	if op["summary"] != "All layouts" || op["operationId"] != "get:/layouts" {
		t.Fatalf("unexpected operation %v", op)
	}
	content := op["responses"].(map[string]any)["200"].(map[string]any)["content"].(map[string]any)
	if len(content) != 2 || content["application/cbor"] == nil {
		t.Fatalf("expected json and cbor media types, got %v", content)
	}

	schemas := root["components"].(map[string]any)["schemas"].(map[string]any)
	layout, ok := schemas["layout"].(map[string]any)
	if !ok {
		t.Fatalf("expected layout component, got %v", schemas)
	}
	keys := layout["x-key-attributes"].([]any)
	if len(keys) != 3 || keys[2] != "name" {
		t.Fatalf("unexpected key attributes %v", keys)
	}
	attrs := layout["properties"].(map[string]any)["attrs"].(map[string]any)["properties"].(map[string]any)
	for _, name := range []string{"class", "type", "name", "base", "label"} {
		if _, ok := attrs[name]; !ok {
			t.Fatalf("expected attribute %q in layout schema, got %v", name, attrs)
		}
	}
	children := layout["properties"].(map[string]any)["children"].(map[string]any)["items"].(map[string]any)
	if _, ok := children["oneOf"]; !ok {
		t.Fatalf("expected oneOf for mixed layout children, got %v", children)
	}

	main := schemas["Main"].(map[string]any)
	items := main["properties"].(map[string]any)["children"].(map[string]any)["items"].(map[string]any)
	if _, ok := items["oneOf"]; !ok {
		t.Fatalf("expected layout and layoutType at top level, got %v", items)
	}
}

func TestGeneratorEmptyRoot(t *testing.T) {
	doc, err := NewGenerator().Generate(nil, element.NewKeys(nil))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	schemas := doc.Document.(map[string]any)["components"].(map[string]any)["schemas"].(map[string]any)
	if len(schemas) != 1 {
		t.Fatalf("expected only the root component, got %v", schemas)
	}
}

func TestComponentNamesAreUnique(t *testing.T) {
	names := newComponentNames()
	names.reserve("Main")
	cases := []struct {
		element string
		want    string
	}{
		{element: "Main", want: "Main_2"},
		{element: "part", want: "part"},
		{element: "part", want: "part"},
		{element: "x:y z", want: "x_y_z"},
	}
	for _, tc := range cases {
		if got := names.nameFor(tc.element); got != tc.want {
			t.Fatalf("nameFor(%q) = %q, want %q", tc.element, got, tc.want)
		}
	}
}

func TestValidateDocument(t *testing.T) {
	_, err := NewGenerator(WithEndpoint("", "layouts")).Generate(nil, element.NewKeys(nil))
	if err == nil {
		t.Fatalf("expected relative path to be rejected")
	}
}
