package openapi

import (
	"fmt"
	"regexp"
)

var invalidComponentChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// componentNames maps element names onto unique, OpenAPI-safe component
// names.
type componentNames struct {
	byElement map[string]string
	used      map[string]struct{}
}

func newComponentNames() *componentNames {
	return &componentNames{
		byElement: map[string]string{},
		used:      map[string]struct{}{},
	}
}

func (c *componentNames) reserve(name string) {
	c.used[name] = struct{}{}
}

func (c *componentNames) nameFor(element string) string {
	if name, ok := c.byElement[element]; ok {
		return name
	}
	base := invalidComponentChars.ReplaceAllString(element, "_")
	if base == "" {
		base = "Element"
	}
	name := base
	for i := 2; ; i++ {
		if _, taken := c.used[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	c.used[name] = struct{}{}
	c.byElement[element] = name
	return name
}

func (c *componentNames) ref(element string) string {
	return "#/components/schemas/" + c.nameFor(element)
}
