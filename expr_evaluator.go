package inventory

import (
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

const engineExpr = "expr"

// exprEvaluator is the default engine, backed by github.com/expr-lang/expr.
// Attribute values are strings, so attrs.visible == "false" is the way to
// test a flag.
type exprEvaluator struct {
	evaluatorConfig
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	return &exprEvaluator{evaluatorConfig: applyEvaluatorOptions(opts)}
}

// Engine returns "expr".
func (e *exprEvaluator) Engine() string { return engineExpr }

func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *exprEvaluator) Compile(expression string, opts ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError(engineExpr, errEmptyExpression)
	}
	cfg := applyCompileOptions(opts)
	program, err := e.program(expression, cfg)
	if err != nil {
		return nil, err
	}
	rule := &exprRule{evaluator: e, program: program, expression: expression}
	return finishRule(engineExpr, expression, cfg, rule), nil
}

func (e *exprEvaluator) program(expression string, cfg compileConfig) (*exprvm.Program, error) {
	if cached, ok := e.cached(engineExpr, expression, cfg); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	options := []exprlang.Option{
		exprlang.Env(exprPrototype()),
		exprlang.AllowUndefinedVariables(),
	}
	if cfg.expectBool {
		options = append(options, exprlang.AsBool())
	}
	for _, name := range e.registry.Names() {
		options = append(options, exprlang.Function(name, e.registry.bound(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapCompileError(engineExpr, expression, err)
	}
	e.store(engineExpr, expression, cfg, program)
	return program, nil
}

// exprPrototype declares the variable types predicates are checked against.
// Run-time environments must use the same types.
func exprPrototype() map[string]any {
	var helpers elementHelpers
	return helpers.bind(map[string]any{
		"name":     "",
		"text":     "",
		"attrs":    map[string]any{},
		"children": []any{},
		"key":      "",
		"depth":    0,
		"now":      time.Time{},
		"args":     map[string]any{},
		"metadata": map[string]any{},
		"call":     func(string, ...any) (any, error) { return nil, nil },
	})
}

func (e *exprEvaluator) environment(ctx RuleContext) map[string]any {
	env := elementHelpers{el: ctx.Element}.bind(ruleVariables(ctx))
	env["call"] = e.registry.Call
	return env
}

type exprRule struct {
	evaluator  *exprEvaluator
	program    *exprvm.Program
	expression string
}

func (r *exprRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	result, err := exprlang.Run(r.program, r.evaluator.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError(engineExpr, r.expression, ctx.keyLabel(), err)
	}
	return result, nil
}
