package openapi

import "strings"

type generatorConfig struct {
	title       string
	version     string
	description string
	path        string
	method      string
	summary     string
	mediaTypes  []string
	root        string
}

func defaultGeneratorConfig() generatorConfig {
	return generatorConfig{
		title:      "Inventory",
		version:    "1.0.0",
		path:       "/inventory",
		method:     "get",
		mediaTypes: []string{"application/json"},
		root:       "Main",
	}
}

// operationID is derived from the method and path, e.g. "get:/inventory".
func (cfg generatorConfig) operationID() string {
	return cfg.method + ":" + cfg.path
}

// GeneratorOption configures the OpenAPI generator. Empty arguments keep the
// defaults.
type GeneratorOption func(*generatorConfig)

// WithTitle sets info.title and, when given, info.version.
func WithTitle(title, version string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if title != "" {
			cfg.title = title
		}
		if version != "" {
			cfg.version = version
		}
	}
}

// WithDescription sets info.description.
func WithDescription(description string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.description = description
	}
}

// WithEndpoint sets the method and path of the operation returning the
// resolved inventory (default GET /inventory).
func WithEndpoint(method, path string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if method != "" {
			cfg.method = strings.ToLower(method)
		}
		if path != "" {
			cfg.path = path
		}
	}
}

// WithSummary sets the operation summary.
func WithSummary(summary string) GeneratorOption {
	return func(cfg *generatorConfig) {
		cfg.summary = summary
	}
}

// WithMediaTypes lists the response media types, e.g. "application/cbor"
// next to the JSON default.
func WithMediaTypes(types ...string) GeneratorOption {
	return func(cfg *generatorConfig) {
		var kept []string
		for _, t := range types {
			if t = strings.TrimSpace(t); t != "" {
				kept = append(kept, t)
			}
		}
		if len(kept) > 0 {
			cfg.mediaTypes = kept
		}
	}
}

// WithRootComponent names the component for the root element (default
// "Main").
func WithRootComponent(name string) GeneratorOption {
	return func(cfg *generatorConfig) {
		if name != "" {
			cfg.root = name
		}
	}
}
