// Package openapi describes inventory element shapes as an OpenAPI 3
// document with one component schema per element name.
package openapi

import (
	"fmt"
	"sort"

	inventory "github.com/goliatone/go-inventory"
	"github.com/goliatone/go-inventory/element"
)

// SchemaFormatOpenAPI identifies documents produced by this generator.
const SchemaFormatOpenAPI inventory.SchemaFormat = "openapi"

const openAPIVersion = "3.0.3"

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI schema generator.
func NewGenerator(opts ...GeneratorOption) inventory.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into an Inventory.
func Option(opts ...GeneratorOption) inventory.Option {
	return inventory.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(root *element.Element, keys element.Keys) (inventory.SchemaDocument, error) {
	names := newComponentNames()
	names.reserve(g.config.root)

	descriptors := inventory.DescribeElements(root, keys)
	schemas := make(map[string]any, len(descriptors)+1)
	var topLevel []string
	for _, d := range descriptors {
		schemas[names.nameFor(d.Name)] = elementSchema(d, names)
		if d.TopLevel > 0 {
			topLevel = append(topLevel, d.Name)
		}
	}
	schemas[g.config.root] = rootSchema(topLevel, names)

	doc := map[string]any{
		"openapi": openAPIVersion,
		"info":    g.buildInfo(),
		"paths":   g.buildPaths(),
		"components": map[string]any{
			"schemas": schemas,
		},
	}
	if err := validateDocument(doc); err != nil {
		return inventory.SchemaDocument{}, err
	}
	return inventory.SchemaDocument{Format: SchemaFormatOpenAPI, Document: doc}, nil
}

func elementSchema(d inventory.ElementDescriptor, names *componentNames) map[string]any {
	attrs := make(map[string]any, len(d.Attributes))
	for _, attr := range d.Attributes {
		attrs[attr] = map[string]any{"type": "string"}
	}
	properties := map[string]any{
		"name": map[string]any{"type": "string", "enum": []any{d.Name}},
		"attrs": map[string]any{
			"type":       "object",
			"properties": attrs,
		},
		"text": map[string]any{"type": "string"},
	}
	if len(d.Children) > 0 {
		properties["children"] = map[string]any{
			"type":  "array",
			"items": childItems(d.Children, names),
		}
	}
	schema := map[string]any{
		"type":       "object",
		"required":   []any{"name"},
		"properties": properties,
		"x-count":    d.Count,
	}
	if len(d.Keys) > 0 {
		keys := make([]any, 0, len(d.Keys))
		for _, key := range d.Keys {
			keys = append(keys, key)
		}
		schema["x-key-attributes"] = keys
	}
	return schema
}

func rootSchema(topLevel []string, names *componentNames) map[string]any {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
	if len(topLevel) > 0 {
		schema["properties"].(map[string]any)["children"] = map[string]any{
			"type":  "array",
			"items": childItems(topLevel, names),
		}
	}
	return schema
}

func childItems(children []string, names *componentNames) map[string]any {
	if len(children) == 1 {
		return map[string]any{"$ref": names.ref(children[0])}
	}
	sorted := append([]string(nil), children...)
	sort.Strings(sorted)
	refs := make([]any, 0, len(sorted))
	for _, child := range sorted {
		refs = append(refs, map[string]any{"$ref": names.ref(child)})
	}
	return map[string]any{"oneOf": refs}
}

func (g generator) buildInfo() map[string]any {
	info := map[string]any{
		"title":   g.config.title,
		"version": g.config.version,
	}
	if g.config.description != "" {
		info["description"] = g.config.description
	}
	return info
}

func (g generator) buildPaths() map[string]any {
	content := make(map[string]any, len(g.config.mediaTypes))
	for _, mediaType := range g.config.mediaTypes {
		content[mediaType] = map[string]any{
			"schema": map[string]any{"$ref": "#/components/schemas/" + g.config.root},
		}
	}
	operation := map[string]any{
		"operationId": g.config.operationID(),
		"responses": map[string]any{
			"200": map[string]any{
				"description": "Resolved inventory",
				"content":     content,
			},
		},
	}
	if g.config.summary != "" {
		operation["summary"] = g.config.summary
	}
	return map[string]any{
		g.config.path: map[string]any{
			g.config.method: operation,
		},
	}
}

func validateDocument(doc map[string]any) error {
	info, _ := doc["info"].(map[string]any)
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title is required")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version is required")
	}
	paths, _ := doc["paths"].(map[string]any)
	for path := range paths {
		if len(path) == 0 || path[0] != '/' {
			return fmt.Errorf("openapi: path %q must start with '/'", path)
		}
	}
	return nil
}
