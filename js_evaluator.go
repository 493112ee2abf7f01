//go:build js_eval

package inventory

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs predicates as JavaScript expressions with goja. Every
// evaluation gets a fresh runtime.
type jsEvaluator struct {
	evaluatorConfig
}

// NewJSEvaluator constructs an Evaluator backed by goja.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	return &jsEvaluator{evaluatorConfig: applyEvaluatorOptions(opts)}
}

// Engine returns "js".
func (e *jsEvaluator) Engine() string { return engineJS }

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *jsEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineJS, errEmptyExpression)
	}
	cfg := applyCompileOptions(opts)
	program, err := e.program(expression, cfg)
	if err != nil {
		return nil, err
	}
	rule := &jsRule{evaluator: e, program: program, expression: expression}
	return finishRule(engineJS, expression, cfg, rule), nil
}

// program ignores ExpectBool; the result is checked after each run.
func (e *jsEvaluator) program(expression string, cfg compileConfig) (*goja.Program, error) {
	if cached, ok := e.cached(engineJS, expression, cfg); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	source := fmt.Sprintf("(function(){ return (%s); })()", expression)
	program, err := goja.Compile("predicate", source, true)
	if err != nil {
		return nil, wrapCompileError(engineJS, expression, err)
	}
	e.store(engineJS, expression, cfg, program)
	return program, nil
}

func (e *jsEvaluator) runtime(ctx RuleContext) (*goja.Runtime, error) {
	vm := goja.New()
	vars := elementHelpers{el: ctx.Element}.bind(ruleVariables(ctx))
	vars["call"] = e.registry.Call
	for _, name := range e.registry.Names() {
		vars[name] = e.registry.bound(name)
	}
	for name, value := range vars {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	return vm, nil
}

type jsRule struct {
	evaluator  *jsEvaluator
	program    *goja.Program
	expression string
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	vm, err := r.evaluator.runtime(ctx)
	if err != nil {
		return nil, wrapEvaluationError(engineJS, r.expression, ctx.keyLabel(), err)
	}
	value, err := vm.RunProgram(r.program)
	if err != nil {
		return nil, wrapEvaluationError(engineJS, r.expression, ctx.keyLabel(), err)
	}
	return value.Export(), nil
}

func jsEvaluatorAvailable() bool {
	return true
}
