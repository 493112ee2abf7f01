package inventory

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-inventory/element"
)

var errEmptyExpression = errors.New("expression must not be empty")

// Identifiers every engine binds for the element under test. Registry
// functions may not reuse them.
var ruleIdentifiers = map[string]struct{}{
	"name": {}, "attrs": {}, "children": {}, "text": {},
	"key": {}, "depth": {}, "now": {}, "args": {}, "metadata": {},
	"attr": {}, "hasAttr": {}, "hasChild": {}, "call": {},
}

func isRuleIdentifier(name string) bool {
	_, ok := ruleIdentifiers[name]
	return ok
}

// ruleVariables flattens ctx into the variables a predicate sees.
func ruleVariables(ctx RuleContext) map[string]any {
	vars := map[string]any{
		"name":     "",
		"text":     "",
		"attrs":    map[string]any{},
		"children": []any{},
		"key":      ctx.Key,
		"depth":    ctx.Depth,
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if el := ctx.Element; el != nil {
		vars["name"] = el.Name
		vars["text"] = el.Text
		attrs := make(map[string]any, len(el.Attrs))
		for _, attr := range el.Attrs {
			attrs[attr.Name] = attr.Value
		}
		vars["attrs"] = attrs
		children := make([]any, 0, len(el.Children))
		for _, child := range el.Children {
			children = append(children, child.ToMap())
		}
		vars["children"] = children
	}
	return vars
}

// elementHelpers are the attr, hasAttr and hasChild functions bound to el.
type elementHelpers struct {
	el *element.Element
}

func (h elementHelpers) attr(name string) string { return h.el.AttrOr(name, "") }

func (h elementHelpers) hasAttr(name string) bool { return h.el.HasAttr(name) }

func (h elementHelpers) hasChild(name string) bool { return h.el.Child(name) != nil }

func (h elementHelpers) bind(vars map[string]any) map[string]any {
	vars["attr"] = h.attr
	vars["hasAttr"] = h.hasAttr
	vars["hasChild"] = h.hasChild
	return vars
}

// boolRule enforces a bool result at run time for rules compiled with
// ExpectBool.
type boolRule struct {
	engine string
	expr   string
	rule   CompiledRule
}

func (r boolRule) Evaluate(ctx RuleContext) (any, error) {
	value, err := r.rule.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := value.(bool); !ok {
		return nil, wrapEvaluationError(r.engine, r.expr, ctx.keyLabel(), fmt.Errorf("predicate returned %T, want bool", value))
	}
	return value, nil
}

func finishRule(engine, expr string, cfg compileConfig, rule CompiledRule) CompiledRule {
	if cfg.expectBool {
		return boolRule{engine: engine, expr: expr, rule: rule}
	}
	return rule
}
